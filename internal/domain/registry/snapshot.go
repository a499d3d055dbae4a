package registry

import (
	"fmt"
	"sort"

	"github.com/dapplets/dapplet-registry/internal/domain/staking"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// Snapshot is the full persisted state of a registry
type Snapshot struct {
	Modules []SnapshotModule `json:"modules"`
	// Listers maps each account to its listing, Head to Tail
	Listers map[types.Account][]string `json:"listers"`
	// Accounts is the global listers order, including accounts whose
	// listing is now empty
	Accounts        []types.Account `json:"accounts,omitempty"`
	Stakes          []SnapshotStake `json:"stakes,omitempty"`
	StakeParameters *staking.Params `json:"stakeParameters,omitempty"`
}

// SnapshotModule is a module with everything attached to it
type SnapshotModule struct {
	types.ModuleInfo
	Owner      types.Account       `json:"owner"`
	Versions   []types.VersionInfo `json:"versions"`
	ContextIDs []string            `json:"contextIds"`
	Admins     []types.Account     `json:"admins"`
}

// SnapshotStake is an open reservation
type SnapshotStake struct {
	Name  string        `json:"name"`
	Stake staking.Stake `json:"stake"`
}

// Export captures the whole registry
func (r *Registry) Export() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := r.st
	snap := &Snapshot{
		Modules:  make([]SnapshotModule, 0, len(st.store.modules)),
		Listers:  make(map[types.Account][]string, len(st.listings.listings)),
		Accounts: st.listers.accounts(),
	}

	for _, name := range st.store.order.items {
		m := st.store.modules[name]
		sm := SnapshotModule{
			ModuleInfo: m.info.Clone(),
			Owner:      m.owner,
			Versions:   make([]types.VersionInfo, 0, m.versionCount()),
			ContextIDs: st.contexts.contextsOf(name),
			Admins:     m.admins.values(),
		}
		for _, branch := range m.branches.items {
			for _, v := range m.versions[branch] {
				sm.Versions = append(sm.Versions, v.Clone())
			}
		}
		snap.Modules = append(snap.Modules, sm)
	}

	for account, l := range st.listings.listings {
		if l.size > 0 {
			snap.Listers[account] = l.names()
		}
	}

	for _, name := range r.staking.Names() {
		s, _ := r.staking.Get(name)
		snap.Stakes = append(snap.Stakes, SnapshotStake{Name: name, Stake: s})
	}

	params := r.staking.Params()
	snap.StakeParameters = &params
	return snap
}

// Import loads snap into an empty registry. Registry admin only.
func (r *Registry) Import(caller types.Account, snap *Snapshot) error {
	if !r.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is not the registry admin", ErrNotAuthorized, caller)
	}
	return r.Restore(snap)
}

// Restore loads snap into an empty registry without an authorization
// check. It is used when the server starts from persisted state.
func (r *Registry) Restore(snap *Snapshot) error {
	return r.mutate("import", func() ([]Event, error) {
		if !r.st.empty() || r.staking.Len() > 0 {
			return nil, ErrNotEmpty
		}

		st, err := buildState(snap)
		if err != nil {
			return nil, err
		}
		for _, s := range snap.Stakes {
			if !st.store.exists(s.Name) {
				return nil, fmt.Errorf("import stake: %w: %s", ErrModuleDoesNotExist, s.Name)
			}
		}
		if snap.StakeParameters != nil {
			if err := snap.StakeParameters.Validate(); err != nil {
				return nil, err
			}
		}
		stakes := make(map[string]staking.Stake, len(snap.Stakes))
		for _, s := range snap.Stakes {
			stakes[s.Name] = s.Stake
		}
		if err := r.staking.RestoreAll(stakes); err != nil {
			return nil, err
		}

		if snap.StakeParameters != nil {
			// validated above
			_ = r.staking.SetParams(*snap.StakeParameters)
		}
		r.st = st

		e := r.event(EventSnapshotImported, "", "")
		e.Detail = fmt.Sprintf("%d modules", len(snap.Modules))
		return []Event{e}, nil
	})
}

// buildState replays a snapshot through the normal validation paths
func buildState(snap *Snapshot) (*state, error) {
	st := newState()

	for _, sm := range snap.Modules {
		req := types.CreateModuleRequest{
			Module:     sm.ModuleInfo,
			Versions:   sm.Versions,
			ContextIDs: sm.ContextIDs,
		}
		p, err := st.prepareCreate(sm.Owner, req)
		if err != nil {
			return nil, fmt.Errorf("import module %s: %w", sm.Name, err)
		}
		m := st.commitCreate(p)
		for _, a := range sm.Admins {
			if err := utils.ValidateAccount(string(a)); err != nil {
				return nil, fmt.Errorf("import module %s: %w: %v", sm.Name, ErrInvalidModule, err)
			}
			m.admins.add(a)
		}
	}

	for _, account := range listerOrder(snap) {
		if err := checkCaller(account); err != nil {
			return nil, fmt.Errorf("import listing: %w", err)
		}
		links := types.ChainLinks(snap.Listers[account])
		if len(links) == 0 {
			st.listers.all.add(account)
			continue
		}
		plan, err := st.listings.plan(account, links, st.store.exists)
		if err != nil {
			return nil, fmt.Errorf("import listing of %s: %w", account, err)
		}
		st.commitListing(plan)
	}
	return st, nil
}

// listerOrder is snap.Accounts followed by any other listing owners, sorted
func listerOrder(snap *Snapshot) []types.Account {
	seen := make(map[types.Account]bool)
	var order []types.Account
	for _, a := range snap.Accounts {
		if !seen[a] {
			seen[a] = true
			order = append(order, a)
		}
	}
	var rest []types.Account
	for a := range snap.Listers {
		if !seen[a] {
			rest = append(rest, a)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(order, rest...)
}
