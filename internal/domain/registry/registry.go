package registry

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/domain/staking"
	"github.com/dapplets/dapplet-registry/internal/domain/version"
	"github.com/dapplets/dapplet-registry/internal/shared/id"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// Registry is the module registry engine. One RWMutex serializes all
// mutations; reads run concurrently. Events are published after unlock.
type Registry struct {
	mu      sync.RWMutex
	st      *state
	staking *staking.Engine

	clock           staking.Clock
	admin           types.Account
	maxQueryResults int
	logger          *zap.Logger
	subs            subscribers
}

type options struct {
	clock           staking.Clock
	ledger          staking.Ledger
	params          *staking.Params
	admin           types.Account
	treasury        types.Account
	maxQueryResults int
	logger          *zap.Logger
}

// Option configures a Registry
type Option func(*options)

// WithClock sets the time source for versions and stakes
func WithClock(c staking.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLedger sets the bond ledger
func WithLedger(l staking.Ledger) Option {
	return func(o *options) { o.ledger = l }
}

// WithStakeParams sets the initial staking parameters
func WithStakeParams(p staking.Params) Option {
	return func(o *options) { o.params = &p }
}

// WithAdmin sets the account allowed to change stake parameters and import snapshots
func WithAdmin(a types.Account) Option {
	return func(o *options) { o.admin = a }
}

// WithTreasury sets the account receiving the non-burner share of burned bonds
func WithTreasury(a types.Account) Option {
	return func(o *options) { o.treasury = a }
}

// WithMaxQueryResults caps each context group of GetModulesInfoByListersBatch
func WithMaxQueryResults(n int) Option {
	return func(o *options) { o.maxQueryResults = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	o := options{
		clock:           staking.SystemClock,
		maxQueryResults: DefaultMaxQueryResults,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ledger == nil {
		o.ledger = staking.NewMemoryLedger()
	}

	engineOpts := []staking.Option{
		staking.WithClock(o.clock),
		staking.WithAccounts("", o.treasury),
	}
	if o.params != nil {
		engineOpts = append(engineOpts, staking.WithParams(*o.params))
	}

	return &Registry{
		st:              newState(),
		staking:         staking.NewEngine(o.ledger, engineOpts...),
		clock:           o.clock,
		admin:           o.admin,
		maxQueryResults: o.maxQueryResults,
		logger:          o.logger,
	}
}

// Subscribe registers h for every committed mutation. The returned
// function removes it.
func (r *Registry) Subscribe(h Handler) func() {
	return r.subs.add(h)
}

// Ledger returns the bond ledger
func (r *Registry) Ledger() staking.Ledger {
	return r.staking.Ledger()
}

// IsAdmin reports whether account is the registry admin
func (r *Registry) IsAdmin(account types.Account) bool {
	return r.admin != "" && account == r.admin
}

func (r *Registry) event(kind EventKind, module string, account types.Account) Event {
	return Event{
		ID:      id.NewEventID(),
		Kind:    kind,
		Module:  module,
		Account: account,
		At:      r.clock.Now(),
	}
}

// mutate runs fn under the write lock and publishes its events on success
func (r *Registry) mutate(op string, fn func() ([]Event, error)) error {
	r.mu.Lock()
	events, err := fn()
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug("registry mutation rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	r.logger.Debug("registry mutation committed", zap.String("op", op), zap.Int("events", len(events)))
	r.subs.publish(events)
	return nil
}

func (r *Registry) stamp(versions []types.VersionInfo) []types.VersionInfo {
	now := r.clock.Now().UTC()
	out := make([]types.VersionInfo, len(versions))
	for i := range versions {
		out[i] = versions[i].Clone()
		out[i].CreatedAt = now
	}
	return out
}

// ============================================================================
// ModuleStore
// ============================================================================

// CreateModule registers a module owned by caller.
func (r *Registry) CreateModule(caller types.Account, req types.CreateModuleRequest) (types.ModuleInfo, error) {
	req.Module.Flags &^= types.FlagPlaceholder
	req.Versions = r.stamp(req.Versions)

	var info types.ModuleInfo
	err := r.mutate("createModule", func() ([]Event, error) {
		p, err := r.st.prepareCreate(caller, req)
		if err != nil {
			return nil, err
		}
		m := r.st.commitCreate(p)
		info = m.info.Clone()

		events := []Event{r.event(EventModuleCreated, info.Name, caller)}
		if p.plan != nil {
			events = append(events, r.event(EventListingChanged, info.Name, caller))
		}
		return events, nil
	})
	return info, err
}

// maxReservationSeconds keeps the period representable as a time.Duration
const maxReservationSeconds = math.MaxInt64 / int64(time.Second)

// ReserveModule registers a placeholder module backed by a bond when
// staking is enabled and a period is given, or a plain module otherwise.
func (r *Registry) ReserveModule(caller types.Account, req types.ReserveModuleRequest) (types.ModuleInfo, error) {
	if req.ReservationPeriod < 0 || req.ReservationPeriod > maxReservationSeconds {
		return types.ModuleInfo{}, fmt.Errorf("%w: reservation period %ds out of range",
			staking.ErrInvalidParameters, req.ReservationPeriod)
	}
	create := types.CreateModuleRequest{
		Module:     req.Module,
		ContextIDs: req.ContextIDs,
		Links:      req.Links,
	}
	create.Module.Flags &^= types.FlagPlaceholder
	period := time.Duration(req.ReservationPeriod) * time.Second

	var info types.ModuleInfo
	err := r.mutate("reserveModule", func() ([]Event, error) {
		p, err := r.st.prepareCreate(caller, create)
		if err != nil {
			return nil, err
		}

		kind := EventModuleCreated
		if r.staking.Params().Enabled() && period > 0 {
			if _, err := r.staking.Reserve(p.info.Name, caller, period); err != nil {
				return nil, err
			}
			p.info.Flags |= types.FlagPlaceholder
			kind = EventModuleReserved
		}

		m := r.st.commitCreate(p)
		info = m.info.Clone()

		events := []Event{r.event(kind, info.Name, caller)}
		if p.plan != nil {
			events = append(events, r.event(EventListingChanged, info.Name, caller))
		}
		return events, nil
	})
	return info, err
}

// EditModuleInfo replaces the title, description and storage references.
func (r *Registry) EditModuleInfo(caller types.Account, name string, edit types.EditModuleRequest) (types.ModuleInfo, error) {
	var info types.ModuleInfo
	err := r.mutate("editModuleInfo", func() ([]Event, error) {
		m, err := r.st.store.editable(name, caller)
		if err != nil {
			return nil, err
		}
		next := m.info.Clone()
		next.Title = edit.Title
		next.Description = edit.Description
		next.Image = edit.Image.Clone()
		next.Manifest = edit.Manifest.Clone()
		next.Icon = edit.Icon.Clone()
		if err := validateModuleInfo(next); err != nil {
			return nil, err
		}

		m.info = next
		info = next.Clone()
		return []Event{r.event(EventModuleEdited, name, caller)}, nil
	})
	return info, err
}

// TransferOwnership hands name to newOwner. Admins are kept.
func (r *Registry) TransferOwnership(caller types.Account, name string, newOwner types.Account) error {
	return r.mutate("transferOwnership", func() ([]Event, error) {
		m, err := r.st.store.owned(name, caller)
		if err != nil {
			return nil, err
		}
		if err := utils.ValidateAccount(string(newOwner)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
		r.st.store.setOwner(m, newOwner)
		return []Event{r.event(EventOwnershipTransferred, name, newOwner)}, nil
	})
}

// AddAdmin grants account edit rights on name
func (r *Registry) AddAdmin(caller types.Account, name string, account types.Account) error {
	return r.mutate("addAdmin", func() ([]Event, error) {
		m, err := r.st.store.owned(name, caller)
		if err != nil {
			return nil, err
		}
		if err := utils.ValidateAccount(string(account)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
		if !m.admins.add(account) {
			return nil, fmt.Errorf("%w: %s", ErrAdminAlreadyExists, account)
		}
		return []Event{r.event(EventAdminAdded, name, account)}, nil
	})
}

// RemoveAdmin revokes account's edit rights on name
func (r *Registry) RemoveAdmin(caller types.Account, name string, account types.Account) error {
	return r.mutate("removeAdmin", func() ([]Event, error) {
		m, err := r.st.store.owned(name, caller)
		if err != nil {
			return nil, err
		}
		if !m.admins.remove(account) {
			return nil, fmt.Errorf("%w: %s", ErrAdminDoesNotExist, account)
		}
		return []Event{r.event(EventAdminRemoved, name, account)}, nil
	})
}

// AddVersion publishes one version of name
func (r *Registry) AddVersion(caller types.Account, name string, v types.VersionInfo) error {
	return r.AddVersionBatch(caller, []string{name}, []types.VersionInfo{v})
}

// AddVersionBatch publishes versions[i] to names[i], all or nothing.
// The first version of a placeholder refunds its bond and clears the flag.
func (r *Registry) AddVersionBatch(caller types.Account, names []string, versions []types.VersionInfo) error {
	stamped := r.stamp(versions)
	return r.mutate("addVersionBatch", func() ([]Event, error) {
		placeholders, err := r.st.checkVersions(caller, names, stamped)
		if err != nil {
			return nil, err
		}
		if err := r.staking.ReleaseAll(placeholders); err != nil {
			return nil, err
		}
		r.st.commitVersions(names, stamped)

		events := make([]Event, 0, len(names)+len(placeholders))
		for _, name := range placeholders {
			events = append(events, r.event(EventStakeReleased, name, caller))
		}
		for i, name := range names {
			e := r.event(EventVersionAdded, name, caller)
			e.Detail = stamped[i].Branch + "@" + stamped[i].Version.String()
			events = append(events, e)
		}
		return events, nil
	})
}

// GetModuleByName returns the module with its owner and index
func (r *Registry) GetModuleByName(name string) (types.ModuleDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return types.ModuleDetails{}, err
	}
	return types.ModuleDetails{Module: m.info.Clone(), Owner: m.owner, Index: m.index}, nil
}

// GetModules pages through every module in creation order
func (r *Registry) GetModules(branch string, p types.Page) types.ModulesPage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.store.page(r.st.store.order.values(), branch, p)
}

// GetModulesByOwner pages through the modules owned by owner
func (r *Registry) GetModulesByOwner(owner types.Account, branch string, p types.Page) types.ModulesPage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.store.page(r.st.store.ownedBy(owner), branch, p)
}

// GetVersionsByModule pages through the versions of name on branch, oldest first
func (r *Registry) GetVersionsByModule(name, branch string, p types.Page) (types.VersionsPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return types.VersionsPage{}, err
	}
	all := m.versions[branch]
	selected := types.Paginate(all, p)
	out := types.VersionsPage{Versions: make([]types.VersionInfo, len(selected)), Total: len(all)}
	for i := range selected {
		out.Versions[i] = selected[i].Clone()
	}
	return out, nil
}

// GetVersionInfo returns one version of name
func (r *Registry) GetVersionInfo(name, branch string, key version.Key) (types.VersionInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return types.VersionInfo{}, err
	}
	for _, v := range m.versions[branch] {
		if v.Version == key {
			return v.Clone(), nil
		}
	}
	return types.VersionInfo{}, fmt.Errorf("%w: %s@%s %s", ErrVersionDoesNotExist, name, branch, key)
}

// GetBranchesByModule returns the branches of name in first-use order
func (r *Registry) GetBranchesByModule(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return nil, err
	}
	return m.branches.values(), nil
}

// IncludesDependency reports whether any version of name lists dep directly
func (r *Registry) IncludesDependency(name, dep string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return false, err
	}
	for _, branch := range m.branches.items {
		for _, v := range m.versions[branch] {
			for _, d := range v.Dependencies {
				if d.Name == dep {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// GetAdminsByModule returns the admins of name in insertion order
func (r *Registry) GetAdminsByModule(name string) ([]types.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return nil, err
	}
	return m.admins.values(), nil
}

// GetModuleIndex returns the 1-based creation index of name
func (r *Registry) GetModuleIndex(name string) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return 0, err
	}
	return m.index, nil
}

// OwnerOf returns the owner of name
func (r *Registry) OwnerOf(name string) (types.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return "", err
	}
	return m.owner, nil
}

// ============================================================================
// ContextIndex
// ============================================================================

// AddContextID declares name for ctxID. Adding twice is a no-op.
func (r *Registry) AddContextID(caller types.Account, name, ctxID string) error {
	return r.mutate("addContextId", func() ([]Event, error) {
		if _, err := r.st.store.editable(name, caller); err != nil {
			return nil, err
		}
		if err := utils.ValidateContextID(ctxID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
		r.st.contexts.add(name, ctxID)
		e := r.event(EventContextAdded, name, caller)
		e.Detail = ctxID
		return []Event{e}, nil
	})
}

// RemoveContextID drops the declaration. Removing an absent one is a no-op.
func (r *Registry) RemoveContextID(caller types.Account, name, ctxID string) error {
	return r.mutate("removeContextId", func() ([]Event, error) {
		if _, err := r.st.store.editable(name, caller); err != nil {
			return nil, err
		}
		r.st.contexts.remove(name, ctxID)
		e := r.event(EventContextRemoved, name, caller)
		e.Detail = ctxID
		return []Event{e}, nil
	})
}

// GetContextIDsByModule returns the contexts declared for name
func (r *Registry) GetContextIDsByModule(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := r.st.store.get(name); err != nil {
		return nil, err
	}
	return r.st.contexts.contextsOf(name), nil
}

// GetModulesByContext returns the module names declared for ctxID
func (r *Registry) GetModulesByContext(ctxID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.contexts.modulesOf(ctxID)
}

// ============================================================================
// ListingIndex / ListersIndex
// ============================================================================

// ChangeMyListing applies a patch to caller's listing, all or nothing.
func (r *Registry) ChangeMyListing(caller types.Account, links []types.Link) error {
	return r.mutate("changeMyListing", func() ([]Event, error) {
		if err := checkCaller(caller); err != nil {
			return nil, err
		}
		plan, err := r.st.listings.plan(caller, links, r.st.store.exists)
		if err != nil {
			return nil, err
		}
		r.st.commitListing(plan)
		return []Event{r.event(EventListingChanged, "", caller)}, nil
	})
}

// GetModulesOfListing pages through account's listing
func (r *Registry) GetModulesOfListing(account types.Account, branch string, p types.Page) types.ModulesPage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l := r.st.listings.get(account)
	names := l.walk(p)
	out := r.st.store.page(names, branch, types.All)
	out.Total = l.size
	return out
}

// GetModuleNamesOfListing returns account's listing in order
func (r *Registry) GetModuleNamesOfListing(account types.Account) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listings.get(account).names()
}

// ContainsModuleInListing reports whether account lists name
func (r *Registry) ContainsModuleInListing(account types.Account, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listings.get(account).contains(name)
}

// GetListingSize returns the number of modules account lists
func (r *Registry) GetListingSize(account types.Account) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listings.get(account).size
}

// GetListers pages through every account that ever had a non-empty listing
func (r *Registry) GetListers(p types.Page) types.AccountsPage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.st.listers.accounts()
	return types.AccountsPage{Accounts: types.Paginate(all, p), Total: len(all)}
}

// GetListersByModule pages through the accounts currently listing name
func (r *Registry) GetListersByModule(name string, p types.Page) types.AccountsPage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.st.listers.of(name)
	return types.AccountsPage{Accounts: types.Paginate(all, p), Total: len(all)}
}

// ============================================================================
// QueryFacade
// ============================================================================

// GetModulesInfoByListersBatch returns, per context, the modules visible
// through any of listers, skipping offset entries of each group.
func (r *Registry) GetModulesInfoByListersBatch(contexts []string, listers []types.Account, offset int) types.ListersQueryResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.byListers(contexts, listers, offset, r.maxQueryResults)
}

// ============================================================================
// Staking
// ============================================================================

// SetStakeParameters replaces the staking parameters. Registry admin only.
func (r *Registry) SetStakeParameters(caller types.Account, p staking.Params) error {
	return r.mutate("setStakeParameters", func() ([]Event, error) {
		if !r.IsAdmin(caller) {
			return nil, fmt.Errorf("%w: %s is not the registry admin", ErrNotAuthorized, caller)
		}
		if err := r.staking.SetParams(p); err != nil {
			return nil, err
		}
		return []Event{r.event(EventStakeParamsChanged, "", caller)}, nil
	})
}

// GetStakeParameters returns the current staking parameters
func (r *Registry) GetStakeParameters() staking.Params {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.staking.Params()
}

// QuoteBond returns the bond for a reservation period
func (r *Registry) QuoteBond(period time.Duration) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.staking.Quote(period)
}

// GetStakeStatus derives the reservation state of name. Unknown names
// have no stake.
func (r *Registry) GetStakeStatus(name string) staking.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.st.store.modules[name]
	if !ok {
		return staking.StatusNoStake
	}
	return r.staking.Status(name, m.info.IsPlaceholder())
}

// GetStake returns the stake record of name, or a zero record
func (r *Registry) GetStake(name string) staking.Stake {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, _ := r.staking.Get(name)
	return s
}

// IsDUC reports whether name is an unresolved reservation
func (r *Registry) IsDUC(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := r.st.store.get(name)
	if err != nil {
		return false, err
	}
	return r.staking.Status(name, m.info.IsPlaceholder()) != staking.StatusNoStake, nil
}

// Burn deletes an expired placeholder and pays its bond out to caller.
func (r *Registry) Burn(caller types.Account, name string) (staking.Stake, error) {
	var burned staking.Stake
	err := r.mutate("burn", func() ([]Event, error) {
		if err := checkCaller(caller); err != nil {
			return nil, err
		}
		plans, err := r.st.prepareRemove(name)
		if err != nil {
			return nil, err
		}
		m := r.st.store.modules[name]
		burned, err = r.staking.Burn(name, m.info.IsPlaceholder(), caller)
		if err != nil {
			return nil, err
		}
		r.st.commitRemove(name, plans)

		events := []Event{r.event(EventModuleBurned, name, caller)}
		for _, p := range plans {
			events = append(events, r.event(EventListingChanged, name, p.account))
		}
		return events, nil
	})
	return burned, err
}

// ============================================================================
// Stats
// ============================================================================

// Stats summarizes the registry contents
type Stats struct {
	Modules  int `json:"modules"`
	Versions int `json:"versions"`
	Contexts int `json:"contexts"`
	Listers  int `json:"listers"`
	Stakes   int `json:"stakes"`
}

// Stats returns current counts
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		Modules:  len(r.st.store.modules),
		Contexts: r.st.contexts.len(),
		Listers:  r.st.listers.all.len(),
		Stakes:   r.staking.Len(),
	}
	for _, m := range r.st.store.modules {
		s.Versions += m.versionCount()
	}
	return s
}
