package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plaenen/bidibip/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeService struct {
	name     string
	j        *journal
	startErr error
	healthy  error
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.j.add("start " + s.name)
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.j.add("stop " + s.name)
	return nil
}

func (s *fakeService) HealthCheck(context.Context) error { return s.healthy }

func TestRunStartsInOrderAndStopsInReverse(t *testing.T) {
	j := &journal{}
	r := runner.New([]runner.Service{
		&fakeService{name: "nats", j: j},
		&fakeService{name: "bot", j: j},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return len(j.list()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"start nats", "start bot", "stop bot", "stop nats"}, j.list())
}

func TestRunStopsStartedServicesOnFailure(t *testing.T) {
	j := &journal{}
	boom := errors.New("login failed")
	r := runner.New([]runner.Service{
		&fakeService{name: "nats", j: j},
		&fakeService{name: "gateway", j: j, startErr: boom},
		&fakeService{name: "bot", j: j},
	})

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start nats", "stop nats"}, j.list())
}

func TestHealthCheck(t *testing.T) {
	sick := errors.New("disconnected")
	r := runner.New([]runner.Service{
		&fakeService{name: "ok", j: &journal{}},
		&fakeService{name: "gateway", j: &journal{}, healthy: sick},
	})
	assert.ErrorIs(t, r.HealthCheck(context.Background()), sick)
}
