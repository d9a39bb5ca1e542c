package bot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/bot"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/dispatch"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/platform/memory"
	"github.com/plaenen/bidibip/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingModule struct {
	p        platform.Platform
	startErr error
	started  bool
}

func (m *pingModule) Name() string { return "ping" }

func (m *pingModule) Commands() []command.Spec {
	return []command.Spec{command.New("ping", "Répond pong")}
}

func (m *pingModule) Start(context.Context) error {
	m.started = true
	return m.startErr
}

func (m *pingModule) Handle(ctx context.Context, inv *module.Invocation) error {
	_, err := m.p.Reply(ctx, inv.Interaction(), platform.Text("pong"))
	return err
}

func newService(t *testing.T, ping *pingModule, events chan platform.Event) (*bot.Service, *memory.Platform) {
	t.Helper()
	p := memory.New()
	ping.p = p
	reg := module.NewRegistry()
	require.NoError(t, reg.Register(ping))
	d := dispatch.New(reg, access.NewRoleGate("member"), draft.NewWorkflow(p, draft.NewStore()), p)
	return bot.New(reg, p, d, events), p
}

func TestServiceSyncsStartsAndDispatches(t *testing.T) {
	ctx := context.Background()
	events := make(chan platform.Event, 1)
	ping := &pingModule{startErr: errors.New("ignored")}
	svc, p := newService(t, ping, events)

	assert.ErrorIs(t, svc.HealthCheck(ctx), bot.ErrNotStarted)
	require.NoError(t, svc.Start(ctx))
	assert.True(t, ping.started)
	assert.NoError(t, svc.HealthCheck(ctx))

	synced := p.Commands()
	require.Len(t, synced, 1)
	assert.Equal(t, "ping", synced[0].Name())

	events <- platform.CommandEvent{
		Interaction: memory.NewInteraction("guild", "general", platform.User{ID: "u1"}),
		Name:        "ping",
	}
	require.Eventually(t, func() bool { return len(p.Calls(memory.OpReply)) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop(ctx))
	assert.ErrorIs(t, svc.HealthCheck(ctx), bot.ErrStopped)
}

func TestServiceStartFailsWhenSyncFails(t *testing.T) {
	svc, p := newService(t, &pingModule{}, make(chan platform.Event))
	p.FailOn(memory.OpSync, errors.New("gateway down"))

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, platform.ErrPlatform)
}

func TestServiceUnderRunner(t *testing.T) {
	events := make(chan platform.Event)
	svc, _ := newService(t, &pingModule{}, events)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runner.New([]runner.Service{svc}).Run(ctx) }()

	require.Eventually(t, func() bool { return svc.HealthCheck(context.Background()) == nil }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}
