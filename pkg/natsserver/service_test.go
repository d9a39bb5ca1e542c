package natsserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/plaenen/bidibip/pkg/natsserver"
	"github.com/plaenen/bidibip/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := natsserver.NewService()

	assert.Equal(t, "embedded-nats", svc.Name())
	assert.Empty(t, svc.URL())
	assert.ErrorIs(t, svc.HealthCheck(ctx), natsserver.ErrNotStarted)
	require.NoError(t, svc.Stop(ctx))

	require.NoError(t, svc.Start(ctx))
	require.NotEmpty(t, svc.URL())
	require.NoError(t, svc.HealthCheck(ctx))

	nc, err := nats.Connect(svc.URL())
	require.NoError(t, err)
	assert.True(t, nc.IsConnected())
	nc.Close()

	require.NoError(t, svc.Stop(ctx))
	assert.Error(t, svc.HealthCheck(ctx))
}

func TestServerWithToken(t *testing.T) {
	srv, err := natsserver.Start(natsserver.WithToken("s3cret"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(5 * time.Second) })

	_, err = srv.Connect()
	assert.Error(t, err)

	nc, err := srv.Connect(nats.Token("s3cret"))
	require.NoError(t, err)
	nc.Close()
}

func TestServiceWithRunner(t *testing.T) {
	svc := natsserver.NewService()
	r := runner.New([]runner.Service{svc})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.URL() != "" }, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, r.HealthCheck(context.Background()))

	cancel()
	assert.NoError(t, <-done)
}
