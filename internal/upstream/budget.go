package upstream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/giantswarm/mcp-zendesk/internal/logging"
)

// State is the position of a Budget in its throttling state machine.
type State string

// Budget states.
const (
	StateAvailable  State = "available"
	StateThrottled  State = "throttled"
	StateBackingOff State = "backing_off"
)

// Config holds the rate and backoff settings of a Budget.
type Config struct {
	// RequestsPerMinute is the token refill rate. Zero or less disables the
	// token bucket.
	// Default: 200 (the Zendesk Team plan allowance).
	RequestsPerMinute int

	// Burst is the bucket size.
	// Default: 10.
	Burst int

	// BaseDelay is the first exponential delay when no Retry-After is sent.
	// Default: 1 second.
	BaseDelay time.Duration

	// MaxDelay caps the exponential delay.
	// Default: 60 seconds.
	MaxDelay time.Duration

	// MaxRetryAfter caps server-provided hints.
	// Default: 5 minutes.
	MaxRetryAfter time.Duration

	// MaxConsecutiveThrottles is the number of rejections a single call
	// absorbs before it fails with UnavailableError.
	// Default: 5.
	MaxConsecutiveThrottles int
}

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute:       200,
		Burst:                   10,
		BaseDelay:               1 * time.Second,
		MaxDelay:                60 * time.Second,
		MaxRetryAfter:           5 * time.Minute,
		MaxConsecutiveThrottles: 5,
	}
}

// MetricsRecorder receives budget events.
type MetricsRecorder interface {
	RecordThrottle(ctx context.Context, hinted bool)
	RecordBackoffWait(ctx context.Context, wait time.Duration)
	RecordUnavailable(ctx context.Context, reason string)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordThrottle(context.Context, bool)             {}
func (noopMetricsRecorder) RecordBackoffWait(context.Context, time.Duration) {}
func (noopMetricsRecorder) RecordUnavailable(context.Context, string)        {}

// Snapshot is a point-in-time view of a Budget.
type Snapshot struct {
	State                State         `json:"state"`
	TokensRemaining      int           `json:"tokens_remaining"`
	RefillRate           float64       `json:"refill_rate_per_second"`
	NextRetryAfter       time.Duration `json:"next_retry_after,omitempty"`
	ConsecutiveThrottles int           `json:"consecutive_throttles"`
	Unlimited            bool          `json:"unlimited,omitempty"`
}

// Budget is the shared rate and backoff state for all outbound calls.
// It is safe for concurrent use.
type Budget struct {
	mu          sync.Mutex
	state       State
	consecutive int
	retryAt     time.Time
	schedule    *backoff.ExponentialBackOff

	limiter *rate.Limiter
	config  Config
	logger  *slog.Logger
	metrics MetricsRecorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Budget.
type Option func(*Budget)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Budget) {
		b.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(b *Budget) {
		if metrics != nil {
			b.metrics = metrics
		}
	}
}

// withClock replaces time for tests.
func withClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Budget) {
		b.now = now
		b.sleep = sleep
	}
}

// New creates a Budget. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Budget {
	def := DefaultConfig()
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = def.MaxRetryAfter
	}
	if cfg.MaxConsecutiveThrottles <= 0 {
		cfg.MaxConsecutiveThrottles = def.MaxConsecutiveThrottles
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}

	schedule := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         cfg.MaxDelay,
	}
	schedule.Reset()

	b := &Budget{
		state:    StateAvailable,
		schedule: schedule,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		config:   cfg,
		logger:   slog.Default(),
		metrics:  noopMetricsRecorder{},
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the effective configuration.
func (b *Budget) Config() Config {
	return b.config
}

// Acquire blocks while the budget is backing off, then takes one token.
// It returns the context error if ctx ends first.
func (b *Budget) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		wait := b.retryAt.Sub(b.now())
		if wait <= 0 && b.state != StateAvailable {
			b.state = StateAvailable
		}
		b.mu.Unlock()

		if wait <= 0 {
			break
		}
		b.metrics.RecordBackoffWait(ctx, wait)
		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return b.limiter.Wait(ctx)
}

// Throttled records a rate-limit rejection and schedules the next retry.
// retryAfter is the server's hint, or zero. attempt is how many times the
// caller's operation has now been rejected; once it exceeds the configured
// ceiling Throttled returns an *UnavailableError.
//
// Rejections that arrive while a backoff window is still open belong to that
// window: they may extend it with a longer hint but do not advance the
// exponential schedule.
func (b *Budget) Throttled(ctx context.Context, retryAfter time.Duration, attempt int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.RecordThrottle(ctx, retryAfter > 0)
	now := b.now()

	if attempt > b.config.MaxConsecutiveThrottles {
		b.metrics.RecordUnavailable(ctx, "throttle_ceiling")
		b.logger.Warn("Zendesk throttle ceiling exceeded",
			logging.Err(ErrThrottled),
			"attempt", attempt,
			"max", b.config.MaxConsecutiveThrottles)
		return &UnavailableError{
			Reason:   "rate limit retries exhausted",
			Hint:     "Zendesk kept rejecting requests with 429; wait a minute and try again or lower ZENDESK_RATE_LIMIT_RPM",
			Attempts: attempt,
			Cause:    ErrThrottled,
		}
	}

	b.state = StateThrottled
	var wait time.Duration
	if now.Before(b.retryAt) {
		wait = b.retryAt.Sub(now)
	} else {
		b.consecutive++
		wait = b.schedule.NextBackOff()
	}
	if retryAfter > 0 {
		wait = min(retryAfter, b.config.MaxRetryAfter)
	}

	if next := now.Add(wait); next.After(b.retryAt) {
		b.retryAt = next
	}
	b.state = StateBackingOff

	b.logger.Info("Zendesk rate limit hit, backing off",
		logging.State(string(b.state)),
		"wait", wait,
		"hinted", retryAfter > 0,
		"attempt", attempt,
		"consecutive_throttles", b.consecutive)
	return nil
}

// Succeeded resets the consecutive throttle count and the exponential schedule.
func (b *Budget) Succeeded() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive = 0
	b.schedule.Reset()
	if !b.now().Before(b.retryAt) {
		b.state = StateAvailable
	}
}

// Do runs fn under the budget. A *ThrottledError from fn is absorbed: the
// budget backs off and fn is called again, up to the throttle ceiling counted
// for this call alone. Any other result is returned.
func (b *Budget) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	for {
		if err := b.Acquire(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			attempt++
			if uerr := b.Throttled(ctx, throttled.RetryAfter, attempt); uerr != nil {
				return uerr
			}
			continue
		}
		if err == nil {
			b.Succeeded()
		}
		return err
	}
}

// Snapshot returns the current state.
func (b *Budget) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	s := Snapshot{
		State:                b.state,
		ConsecutiveThrottles: b.consecutive,
	}
	if wait := b.retryAt.Sub(now); wait > 0 {
		s.NextRetryAfter = wait
	} else if s.State != StateAvailable {
		s.State = StateAvailable
	}

	if b.limiter.Limit() == rate.Inf {
		s.TokensRemaining = b.limiter.Burst()
		s.Unlimited = true
	} else {
		s.TokensRemaining = max(int(b.limiter.TokensAt(now)), 0)
		s.RefillRate = float64(b.limiter.Limit())
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
