package staking

import (
	"fmt"
	"sort"
	"time"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// Default bookkeeping accounts
const (
	DefaultEscrow   types.Account = "registry-escrow"
	DefaultTreasury types.Account = "registry-treasury"
)

// Engine owns stake parameters and records. It is not safe for concurrent
// use; the registry calls it while holding its writer lock.
type Engine struct {
	params   Params
	stakes   map[string]*Stake
	ledger   Ledger
	clock    Clock
	escrow   types.Account
	treasury types.Account
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the clock used for expiry
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithParams sets the initial parameters
func WithParams(p Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithAccounts sets the escrow and treasury accounts
func WithAccounts(escrow, treasury types.Account) Option {
	return func(e *Engine) {
		if escrow != "" {
			e.escrow = escrow
		}
		if treasury != "" {
			e.treasury = treasury
		}
	}
}

// NewEngine creates an engine over ledger
func NewEngine(ledger Ledger, opts ...Option) *Engine {
	e := &Engine{
		params:   DefaultParams(),
		stakes:   make(map[string]*Stake),
		ledger:   ledger,
		clock:    SystemClock,
		escrow:   DefaultEscrow,
		treasury: DefaultTreasury,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Params() Params { return e.params }
func (e *Engine) Now() time.Time { return e.clock.Now() }
func (e *Engine) Escrow() types.Account { return e.escrow }
func (e *Engine) Ledger() Ledger { return e.ledger }
func (e *Engine) Treasury() types.Account { return e.treasury }

// SetParams replaces the parameters. Existing stakes keep their amount and expiry.
func (e *Engine) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.params = p
	return nil
}

// Quote returns the bond for a reservation period
func (e *Engine) Quote(reservation time.Duration) (uint64, error) {
	if !e.params.Enabled() {
		return 0, ErrStakingDisabled
	}
	if reservation < e.params.MinDuration || reservation <= 0 {
		return 0, fmt.Errorf("%w: %s < %s", ErrDurationTooShort, reservation, e.params.MinDuration)
	}
	return e.params.Bond(reservation)
}

// Reserve takes the bond from staker into escrow and records the stake.
func (e *Engine) Reserve(name string, staker types.Account, reservation time.Duration) (*Stake, error) {
	if _, exists := e.stakes[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrStakeExists, name)
	}
	amount, err := e.Quote(reservation)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.Apply(e.params.Token, Transfer{From: staker, To: e.escrow, Amount: amount}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBond, err)
	}

	stake := &Stake{
		Staker:   staker,
		Token:    e.params.Token,
		Amount:   amount,
		Duration: reservation,
		EndsAt:   e.clock.Now().Add(reservation),
	}
	e.stakes[name] = stake
	return stake, nil
}

// Get returns a copy of the stake for name
func (e *Engine) Get(name string) (Stake, bool) {
	s, ok := e.stakes[name]
	if !ok {
		return Stake{}, false
	}
	return *s, true
}

// Status derives the lifecycle state for name
func (e *Engine) Status(name string, placeholder bool) Status {
	return StatusAt(e.stakes[name], placeholder, e.clock.Now())
}

// Release refunds the full bond to the staker and drops the record.
// A missing record is a no-op.
func (e *Engine) Release(name string) error {
	return e.ReleaseAll([]string{name})
}

// ReleaseAll refunds every named bond, all or nothing. Names without a
// stake are skipped. Refunds are grouped by token into one Apply each;
// escrow balances are checked for every group before any money moves, and
// a group that still fails rolls back the groups already applied.
func (e *Engine) ReleaseAll(names []string) error {
	groups := make(map[string][]Transfer)
	var tokens []string
	var released []string
	for _, name := range names {
		s, ok := e.stakes[name]
		if !ok {
			continue
		}
		if _, seen := groups[s.Token]; !seen {
			tokens = append(tokens, s.Token)
		}
		groups[s.Token] = append(groups[s.Token], Transfer{From: e.escrow, To: s.Staker, Amount: s.Amount})
		released = append(released, name)
	}
	if len(released) == 0 {
		return nil
	}

	for _, token := range tokens {
		need := total(groups[token])
		if have := e.ledger.BalanceOf(token, e.escrow); have < need {
			return fmt.Errorf("refund stakes %v: %w: %s holds %d, needs %d",
				released, ErrInsufficientFunds, e.escrow, have, need)
		}
	}

	for i, token := range tokens {
		if err := e.ledger.Apply(token, groups[token]...); err != nil {
			for _, done := range tokens[:i] {
				if rerr := e.ledger.Apply(done, reverse(groups[done])...); rerr != nil {
					return fmt.Errorf("refund stakes %v: %w (rollback failed: %v)", released, err, rerr)
				}
			}
			return fmt.Errorf("refund stakes %v: %w", released, err)
		}
	}

	for _, name := range released {
		delete(e.stakes, name)
	}
	return nil
}

func total(transfers []Transfer) uint64 {
	var sum uint64
	for _, t := range transfers {
		sum += t.Amount
	}
	return sum
}

func reverse(transfers []Transfer) []Transfer {
	out := make([]Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = Transfer{From: t.To, To: t.From, Amount: t.Amount}
	}
	return out
}

// CanBurn reports whether name may be burned right now
func (e *Engine) CanBurn(name string, placeholder bool) error {
	if e.Status(name, placeholder) != StatusReadyToBurn {
		return fmt.Errorf("%w: %s", ErrNotReadyToBurn, name)
	}
	return nil
}

// Burn pays out an expired bond and drops the record.
func (e *Engine) Burn(name string, placeholder bool, burner types.Account) (Stake, error) {
	if err := e.CanBurn(name, placeholder); err != nil {
		return Stake{}, err
	}
	s := e.stakes[name]

	toBurner, toTreasury := e.params.split(s.Amount)
	err := e.ledger.Apply(s.Token,
		Transfer{From: e.escrow, To: burner, Amount: toBurner},
		Transfer{From: e.escrow, To: e.treasury, Amount: toTreasury},
	)
	if err != nil {
		return Stake{}, fmt.Errorf("pay out stake %s: %w", name, err)
	}

	delete(e.stakes, name)
	return *s, nil
}

// Forget drops a record without moving funds
func (e *Engine) Forget(name string) {
	delete(e.stakes, name)
}

// RestoreAll installs records read from a snapshot. Escrow must cover
// every restored bond: a shortfall is credited through the ledger's Fund
// hook, and a ledger without one fails with ErrInsufficientFunds. Nothing
// is installed on error.
func (e *Engine) RestoreAll(stakes map[string]Stake) error {
	need := make(map[string]uint64)
	var tokens []string
	for _, s := range stakes {
		if _, seen := need[s.Token]; !seen {
			tokens = append(tokens, s.Token)
		}
		need[s.Token] += s.Amount
	}
	sort.Strings(tokens)

	shortfall := make(map[string]uint64)
	for _, token := range tokens {
		if have := e.ledger.BalanceOf(token, e.escrow); have < need[token] {
			shortfall[token] = need[token] - have
		}
	}
	if len(shortfall) > 0 {
		funder, ok := e.ledger.(Funder)
		if !ok {
			return fmt.Errorf("restore stakes: %w: escrow %s cannot cover restored bonds", ErrInsufficientFunds, e.escrow)
		}
		for _, token := range tokens {
			if amount := shortfall[token]; amount > 0 {
				if err := funder.Fund(token, e.escrow, amount); err != nil {
					return fmt.Errorf("restore stakes: fund escrow: %w", err)
				}
			}
		}
	}

	for name, s := range stakes {
		s := s
		e.stakes[name] = &s
	}
	return nil
}

// Names returns the names with an active stake, sorted
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.stakes))
	for name := range e.stakes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of active stakes
func (e *Engine) Len() int {
	return len(e.stakes)
}
