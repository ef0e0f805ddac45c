package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New(cfg)
	b.nowFn = clock.Now
	return b, clock
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, StateClosed, b.GetState())
	assert.Equal(t, 5, b.failureThreshold)
	assert.Equal(t, 2, b.successThreshold)
	assert.Equal(t, 30*time.Second, b.openTimeout)
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, OpenTimeout: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	require.NoError(t, b.Allow(), "should still be closed below threshold")

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.GetState())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, OpenTimeout: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	require.NoError(t, b.Allow())
	assert.Equal(t, StateClosed, b.GetState())
}

func TestBreaker_HalfOpenLifecycle(t *testing.T) {
	var transitions []string
	b, clock := newTestBreaker(Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.GetState())

	clock.Advance(11 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.GetState())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.GetState())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.GetState())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, OpenTimeout: time.Second})

	b.RecordFailure()
	clock.Advance(2 * time.Second)
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.GetState())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreaker_Do(t *testing.T) {
	errBoom := errors.New("boom")
	errIgnored := errors.New("ignored")
	b, _ := newTestBreaker(Config{
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		IsFailure:        func(err error) bool { return errors.Is(err, errBoom) },
	})

	// Errors not counted as failures pass through without tripping.
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Do(func() error { return errIgnored }), errIgnored)
	}
	assert.Equal(t, StateClosed, b.GetState())

	assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, b.GetState())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_NilDo(t *testing.T) {
	var b *Breaker
	called := false
	require.NoError(t, b.Do(func() error { called = true; return nil }))
	assert.True(t, called)
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := New(Config{FailureThreshold: 100, OpenTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
		go func() {
			defer wg.Done()
			_ = b.Allow()
			_ = b.GetState()
		}()
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.GetState())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
