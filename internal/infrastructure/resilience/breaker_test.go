package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errFailed   = errors.New("failed")
	errRejected = errors.New("rejected")
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func run(b *Breaker, err error) error {
	return b.Do(context.Background(), func(context.Context) error { return err })
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	tests := []struct {
		name  string
		calls []error
		want  State
	}{
		{"successes keep it closed", []error{nil, nil, nil}, StateClosed},
		{"below threshold", []error{errFailed, errFailed}, StateClosed},
		{"at threshold", []error{errFailed, errFailed, errFailed}, StateOpen},
		{"success resets the run", []error{errFailed, errFailed, nil, errFailed, errFailed}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", Settings{Threshold: 3})
			for _, err := range tt.calls {
				_ = run(b, err)
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	clock := newClock()
	b := New("test", Settings{Threshold: 1, Cooldown: time.Minute, Now: clock.Now})

	require.ErrorIs(t, run(b, errFailed), errFailed)
	called := false
	err := b.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(59 * time.Second)
	assert.Equal(t, StateOpen, b.State())
	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerHalfOpen(t *testing.T) {
	clock := newClock()
	b := New("test", Settings{Threshold: 1, Cooldown: time.Second, Probes: 2, Now: clock.Now})

	_ = run(b, errFailed)
	clock.Advance(time.Second)

	// one success is not enough with two probes
	require.NoError(t, run(b, nil))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, run(b, nil))
	assert.Equal(t, StateClosed, b.State())

	_ = run(b, errFailed)
	clock.Advance(time.Second)
	_ = run(b, errFailed)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerLimitsProbes(t *testing.T) {
	clock := newClock()
	b := New("test", Settings{Threshold: 1, Cooldown: time.Second, Now: clock.Now})
	_ = run(b, errFailed)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, run(b, nil), ErrTooManyRequests)
	close(release)
	wg.Wait()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIsSuccessful(t *testing.T) {
	b := New("test", Settings{
		Threshold:    2,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errRejected) },
	})

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, run(b, errRejected), errRejected)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Failures())

	_ = run(b, errFailed)
	assert.Equal(t, uint32(1), b.Failures())
}

func TestBreakerContextCancellation(t *testing.T) {
	b := New("test", Settings{Threshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := b.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	ctx, cancel = context.WithCancel(context.Background())
	err = b.Do(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b := New("test", Settings{Threshold: 1})
	assert.Panics(t, func() {
		_ = b.Do(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestCall(t *testing.T) {
	b := New("test", Settings{})
	got, err := Call(context.Background(), b, func(context.Context) (string, error) {
		return "adapter", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "adapter", got)
}

func TestOnStateChange(t *testing.T) {
	clock := newClock()
	var transitions []string
	b := New("registry", Settings{
		Threshold: 1,
		Cooldown:  time.Second,
		Now:       clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = run(b, errFailed)
	clock.Advance(time.Second)
	_ = run(b, nil)

	assert.Equal(t, []string{
		"registry:closed->open",
		"registry:open->half-open",
		"registry:half-open->closed",
	}, transitions)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
