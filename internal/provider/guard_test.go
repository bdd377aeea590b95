package provider

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

func TestGuard_PassThroughWhenDisabled(t *testing.T) {
	var calls int
	inner := AdapterFunc(func(context.Context, agent.Identity, string, Request, CallOptions) (string, error) {
		calls++
		return "ok", nil
	})
	cfg := GuardConfig{}
	assert.False(t, cfg.Enabled())

	g := NewGuard(inner, cfg, nil)
	out, err := g.Call(context.Background(), agent.Identity{ID: "a"}, "k", Request{}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestGuard_BreakerOpensAfterFailures(t *testing.T) {
	var calls int
	inner := AdapterFunc(func(context.Context, agent.Identity, string, Request, CallOptions) (string, error) {
		calls++
		return "", &AdapterError{Status: 503, Err: ErrServer}
	})
	g := NewGuard(inner, GuardConfig{Breaker: true, Failures: 2, OpenFor: time.Minute}, zaptest.NewLogger(t))
	id := agent.Identity{ID: "flaky", Model: "m"}

	for i := 0; i < 2; i++ {
		_, err := g.Call(context.Background(), id, "k", Request{}, CallOptions{})
		require.ErrorIs(t, err, ErrServer)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State("flaky"))

	_, err := g.Call(context.Background(), id, "k", Request{}, CallOptions{})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 2, calls, "open breaker does not reach the vendor")

	assert.Equal(t, gobreaker.StateClosed, g.State("other"))
}

func TestGuard_CallerFaultsDoNotTrip(t *testing.T) {
	inner := AdapterFunc(func(context.Context, agent.Identity, string, Request, CallOptions) (string, error) {
		return "", &AdapterError{Err: ErrCredentialMissing}
	})
	g := NewGuard(inner, GuardConfig{Breaker: true, Failures: 1}, nil)
	for i := 0; i < 3; i++ {
		_, err := g.Call(context.Background(), agent.Identity{ID: "a"}, "", Request{}, CallOptions{})
		require.ErrorIs(t, err, ErrCredentialMissing)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State("a"))
}

func TestGuard_RateLimitHonoursContext(t *testing.T) {
	inner := AdapterFunc(func(context.Context, agent.Identity, string, Request, CallOptions) (string, error) {
		return "ok", nil
	})
	// One token, refilled once a minute.
	g := NewGuard(inner, GuardConfig{PerMinute: 1, Burst: 1}, nil)
	id := agent.Identity{ID: "a"}

	_, err := g.Call(context.Background(), id, "k", Request{}, CallOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Call(ctx, id, "k", Request{}, CallOptions{})
	require.ErrorIs(t, err, ErrRateLimit)
}
