package upstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances instantly on sleep and records every wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestBudget(cfg Config) (*Budget, *fakeClock) {
	clock := newFakeClock()
	return New(cfg, withClock(clock.Now, clock.Sleep)), clock
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})
	cfg := b.Config()

	assert.Equal(t, 10, cfg.Burst)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.MaxDelay)
	assert.Equal(t, 5, cfg.MaxConsecutiveThrottles)
	assert.Equal(t, StateAvailable, b.Snapshot().State)
}

func TestBudget_DoHonorsRetryAfterHints(t *testing.T) {
	b, clock := newTestBudget(Config{MaxConsecutiveThrottles: 5})

	hints := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		if calls <= len(hints) {
			return &ThrottledError{RetryAfter: hints[calls-1], StatusCode: 429}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, hints, clock.Sleeps())

	snap := b.Snapshot()
	assert.Equal(t, StateAvailable, snap.State)
	assert.Equal(t, 0, snap.ConsecutiveThrottles)
	assert.Zero(t, snap.NextRetryAfter)
}

func TestBudget_ExponentialScheduleWithoutHint(t *testing.T) {
	b, clock := newTestBudget(Config{
		BaseDelay:               time.Second,
		MaxDelay:                5 * time.Second,
		MaxConsecutiveThrottles: 10,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Throttled(ctx, 0, i+1))
		require.NoError(t, b.Acquire(ctx))
	}
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}, clock.Sleeps())

	b.Succeeded()
	require.NoError(t, b.Throttled(ctx, 0, 1))
	require.NoError(t, b.Acquire(ctx))

	sleeps := clock.Sleeps()
	assert.Equal(t, time.Second, sleeps[len(sleeps)-1], "schedule resets after a success")
}

func TestBudget_RetryAfterIsCapped(t *testing.T) {
	b, clock := newTestBudget(Config{MaxRetryAfter: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, b.Throttled(ctx, time.Hour, 1))
	require.NoError(t, b.Acquire(ctx))
	assert.Equal(t, []time.Duration{30 * time.Second}, clock.Sleeps())
}

func TestBudget_CeilingReturnsUnavailable(t *testing.T) {
	b, clock := newTestBudget(Config{MaxConsecutiveThrottles: 3})

	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return &ThrottledError{StatusCode: 429}
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, clock.Sleeps(), 3)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, ErrThrottled))

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 4, unavailable.Attempts)
	assert.Contains(t, unavailable.UserFacingError(), "rate limit retries exhausted")
}

func TestBudget_OtherErrorsPassThrough(t *testing.T) {
	b, clock := newTestBudget(Config{})
	boom := errors.New("boom")

	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.Sleeps())
}

func TestBudget_AcquireRespectsContext(t *testing.T) {
	b, _ := newTestBudget(Config{})
	require.NoError(t, b.Throttled(context.Background(), 10*time.Second, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBudget_Snapshot(t *testing.T) {
	b, _ := newTestBudget(Config{RequestsPerMinute: 120, Burst: 4})

	snap := b.Snapshot()
	assert.Equal(t, StateAvailable, snap.State)
	assert.Equal(t, 4, snap.TokensRemaining)
	assert.InDelta(t, 2.0, snap.RefillRate, 0.0001)
	assert.False(t, snap.Unlimited)

	require.NoError(t, b.Throttled(context.Background(), 2*time.Second, 1))
	snap = b.Snapshot()
	assert.Equal(t, StateBackingOff, snap.State)
	assert.Equal(t, 2*time.Second, snap.NextRetryAfter)
	assert.Equal(t, 1, snap.ConsecutiveThrottles)
}

func TestBudget_UnlimitedSnapshot(t *testing.T) {
	b, _ := newTestBudget(Config{Burst: 3})

	snap := b.Snapshot()
	assert.True(t, snap.Unlimited)
	assert.Equal(t, 3, snap.TokensRemaining)
}

func TestBudget_ConcurrentCallersWaitForBackoff(t *testing.T) {
	b := New(Config{BaseDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond})
	require.NoError(t, b.Throttled(context.Background(), 0, 1))

	start := time.Now()
	var wg sync.WaitGroup
	elapsed := make([]time.Duration, 5)
	for i := range elapsed {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := b.Acquire(context.Background()); err == nil {
				elapsed[i] = time.Since(start)
			}
		}(i)
	}
	wg.Wait()

	for i, d := range elapsed {
		assert.GreaterOrEqual(t, d, 40*time.Millisecond, "caller %d did not wait", i)
	}
	assert.Equal(t, StateAvailable, b.Snapshot().State)
}

func TestBudget_SimultaneousThrottlesShareOneWindow(t *testing.T) {
	b, clock := newTestBudget(Config{BaseDelay: time.Second, MaxDelay: time.Minute, MaxConsecutiveThrottles: 2})
	ctx := context.Background()

	// Six in-flight calls rejected by the same account-wide 429.
	for i := 0; i < 6; i++ {
		require.NoError(t, b.Throttled(ctx, 0, 1))
	}
	snap := b.Snapshot()
	assert.Equal(t, time.Second, snap.NextRetryAfter)
	assert.Equal(t, 1, snap.ConsecutiveThrottles)

	require.NoError(t, b.Acquire(ctx))
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())

	// A rejection after the window ended is the next consecutive throttle.
	require.NoError(t, b.Throttled(ctx, 0, 1))
	assert.Equal(t, 2*time.Second, b.Snapshot().NextRetryAfter)
	assert.Equal(t, 2, b.Snapshot().ConsecutiveThrottles)
}

func TestBudget_HintExtendsOpenWindow(t *testing.T) {
	b, _ := newTestBudget(Config{BaseDelay: time.Second})
	ctx := context.Background()

	require.NoError(t, b.Throttled(ctx, 0, 1))
	require.NoError(t, b.Throttled(ctx, 10*time.Second, 1))
	require.NoError(t, b.Throttled(ctx, 0, 1))

	snap := b.Snapshot()
	assert.Equal(t, 10*time.Second, snap.NextRetryAfter, "shorter rejections never shrink the window")
	assert.Equal(t, 1, snap.ConsecutiveThrottles)
}

func TestBudget_CeilingIsPerCall(t *testing.T) {
	b := New(Config{BaseDelay: 20 * time.Millisecond, MaxDelay: time.Second, MaxConsecutiveThrottles: 1})

	var (
		mu    sync.Mutex
		calls int
	)
	errs := make([]error, 6)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rejected := false
			errs[i] = b.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				calls++
				mu.Unlock()
				if !rejected {
					rejected = true
					return &ThrottledError{StatusCode: 429}
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d saw a single 429", i)
	}
	assert.Equal(t, 12, calls)
	assert.Equal(t, StateAvailable, b.Snapshot().State)
}
