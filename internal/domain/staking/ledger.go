package staking

import (
	"fmt"
	"sync"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// Transfer moves Amount of a token between two accounts
type Transfer struct {
	From   types.Account
	To     types.Account
	Amount uint64
}

// Ledger moves bond tokens. Apply is all-or-nothing across transfers.
type Ledger interface {
	Apply(token string, transfers ...Transfer) error
	BalanceOf(token string, account types.Account) uint64
}

// Funder is implemented by ledgers that can credit an account out of thin
// air. Restoring stakes into a fresh ledger uses it to refill escrow.
type Funder interface {
	Fund(token string, account types.Account, amount uint64) error
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[types.Account]uint64
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]map[types.Account]uint64)}
}

// Mint credits amount to account
func (l *MemoryLedger) Mint(token string, account types.Account, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts(token)[account] += amount
}

// Fund implements Funder
func (l *MemoryLedger) Fund(token string, account types.Account, amount uint64) error {
	l.Mint(token, account, amount)
	return nil
}

// BalanceOf returns the balance of account
func (l *MemoryLedger) BalanceOf(token string, account types.Account) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[token][account]
}

// Apply validates every transfer against running balances, then commits.
func (l *MemoryLedger) Apply(token string, transfers ...Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := l.accounts(token)
	pending := make(map[types.Account]uint64)
	balance := func(a types.Account) uint64 {
		if v, ok := pending[a]; ok {
			return v
		}
		return accounts[a]
	}

	for _, t := range transfers {
		if t.Amount == 0 {
			continue
		}
		from := balance(t.From)
		if from < t.Amount {
			return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, t.From, from, t.Amount)
		}
		pending[t.From] = from - t.Amount
		pending[t.To] = balance(t.To) + t.Amount
	}

	for a, v := range pending {
		accounts[a] = v
	}
	return nil
}

func (l *MemoryLedger) accounts(token string) map[types.Account]uint64 {
	accounts, ok := l.balances[token]
	if !ok {
		accounts = make(map[types.Account]uint64)
		l.balances[token] = accounts
	}
	return accounts
}
