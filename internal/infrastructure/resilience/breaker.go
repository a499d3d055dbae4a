package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State of a breaker
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Defaults applied to zero Settings fields
const (
	DefaultThreshold = 5
	DefaultCooldown  = 30 * time.Second
	DefaultProbes    = 1
)

// Settings configures a Breaker. Zero fields take the defaults above.
type Settings struct {
	// Threshold is the run of failures that opens the breaker
	Threshold uint32
	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration
	// Probes is both the number of concurrent half-open calls allowed and
	// the run of successes that closes the breaker again
	Probes uint32
	// IsSuccessful classifies a returned error. Errors it accepts do not
	// count as failures, e.g. a registry rejecting a stale version.
	IsSuccessful func(err error) bool
	// OnStateChange is called with the lock held; it must not call back
	// into the breaker
	OnStateChange func(name string, from, to State)
	// Now overrides the clock in tests
	Now func() time.Time
}

// Breaker stops calling a failing dependency until it has had time to
// recover.
type Breaker struct {
	name     string
	settings Settings

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	inflight  uint32
	openedAt  time.Time
	// epoch changes on every transition so late results from an older
	// state are ignored
	epoch uint64
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = DefaultThreshold
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = DefaultCooldown
	}
	if settings.Probes == 0 {
		settings.Probes = DefaultProbes
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = func(err error) bool { return err == nil }
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving an expired open breaker to half-open
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Failures returns the current run of failures
func (b *Breaker) Failures() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Do runs fn if the breaker admits it.
// A cancelled ctx is reported without counting as a failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	epoch, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(epoch, false)
			panic(e)
		}
	}()

	err = fn(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		b.abandon(epoch)
		return err
	}
	b.record(epoch, b.settings.IsSuccessful(err))
	return err
}

// Call runs fn through b and returns its result
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()
	switch b.state {
	case StateOpen:
		return b.epoch, ErrCircuitOpen
	case StateHalfOpen:
		if b.inflight >= b.settings.Probes {
			return b.epoch, ErrTooManyRequests
		}
		b.inflight++
	}
	return b.epoch, nil
}

func (b *Breaker) record(epoch uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()
	if epoch != b.epoch {
		return
	}

	if b.state == StateHalfOpen {
		b.inflight--
		if !success {
			b.transition(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.settings.Probes {
			b.transition(StateClosed)
		}
		return
	}

	if success {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.settings.Threshold {
		b.transition(StateOpen)
	}
}

// abandon frees a half-open probe slot taken by a cancelled call
func (b *Breaker) abandon(epoch uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if epoch == b.epoch && b.state == StateHalfOpen && b.inflight > 0 {
		b.inflight--
	}
}

func (b *Breaker) advance() {
	if b.state == StateOpen && !b.settings.Now().Before(b.openedAt.Add(b.settings.Cooldown)) {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.epoch++
	b.failures, b.successes, b.inflight = 0, 0, 0
	if to == StateOpen {
		b.openedAt = b.settings.Now()
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
