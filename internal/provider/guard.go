package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

// Default breaker settings.
const (
	defaultBreakerFailures uint32 = 5
	defaultBreakerTimeout         = 30 * time.Second
	defaultBreakerInterval        = 60 * time.Second
)

// GuardConfig enables per-agent protection. Both mechanisms hold state across
// requests and are off by default.
type GuardConfig struct {
	Breaker   bool          `yaml:"breaker,omitempty"`
	Failures  uint32        `yaml:"failures,omitempty"`
	OpenFor   time.Duration `yaml:"openFor,omitempty"`
	Interval  time.Duration `yaml:"interval,omitempty"`
	PerMinute float64       `yaml:"perMinute,omitempty"` // 0 disables rate limiting
	Burst     int           `yaml:"burst,omitempty"`
}

// Enabled reports whether any protection is configured.
func (c GuardConfig) Enabled() bool {
	return c.Breaker || c.PerMinute > 0
}

var _ Adapter = (*Guard)(nil)

// Guard wraps an Adapter with a circuit breaker and a token bucket per agent.
type Guard struct {
	inner  Adapter
	cfg    GuardConfig
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
	limiters map[string]*rate.Limiter
}

// NewGuard wraps inner. A zero cfg makes Guard a pass-through.
func NewGuard(inner Adapter, cfg GuardConfig, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Failures == 0 {
		cfg.Failures = defaultBreakerFailures
	}
	if cfg.OpenFor == 0 {
		cfg.OpenFor = defaultBreakerTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultBreakerInterval
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Guard{
		inner:    inner,
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[string]),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Call implements Adapter.
func (g *Guard) Call(ctx context.Context, id agent.Identity, credential string, req Request, opts CallOptions) (string, error) {
	if lim := g.limiter(id.ID); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", &AdapterError{Agent: id.ID, Model: id.Model, Message: "local rate limit: " + err.Error(), Err: ErrRateLimit}
		}
	}

	cb := g.breaker(id.ID)
	if cb == nil {
		return g.inner.Call(ctx, id, credential, req, opts)
	}
	out, err := cb.Execute(func() (string, error) {
		return g.inner.Call(ctx, id, credential, req, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &AdapterError{Agent: id.ID, Model: id.Model, Message: err.Error(), Err: ErrCircuitOpen}
	}
	return out, err
}

// State returns the breaker state for an agent, or closed when untracked.
func (g *Guard) State(agentID string) gobreaker.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[agentID]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

func (g *Guard) limiter(agentID string) *rate.Limiter {
	if g.cfg.PerMinute <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.limiters[agentID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(g.cfg.PerMinute/60.0), g.cfg.Burst)
		g.limiters[agentID] = lim
	}
	return lim
}

func (g *Guard) breaker(agentID string) *gobreaker.CircuitBreaker[string] {
	if !g.cfg.Breaker {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[agentID]
	if ok {
		return cb
	}
	failures := g.cfg.Failures
	cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "agent:" + agentID,
		MaxRequests: 1,
		Interval:    g.cfg.Interval,
		Timeout:     g.cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller faults do not count against the vendor.
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerFault(err)
		},
	})
	g.breakers[agentID] = cb
	return cb
}
