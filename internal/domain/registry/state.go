package registry

import (
	"fmt"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// state is everything the registry persists. Methods named check* or
// prepare* never mutate; commit* never fail.
type state struct {
	store    *moduleStore
	contexts *contextIndex
	listings *listingIndex
	listers  *listersIndex
}

func newState() *state {
	return &state{
		store:    newModuleStore(),
		contexts: newContextIndex(),
		listings: newListingIndex(),
		listers:  newListersIndex(),
	}
}

func (s *state) empty() bool {
	return len(s.store.modules) == 0 && len(s.listings.listings) == 0
}

func (s *state) commitListing(p *patchPlan) {
	s.listings.apply(p)
	s.listers.record(p)
}

func checkCaller(caller types.Account) error {
	if err := utils.ValidateAccount(string(caller)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	}
	return nil
}

// pendingModule is a validated creation waiting to be committed
type pendingModule struct {
	owner    types.Account
	info     types.ModuleInfo
	versions []types.VersionInfo
	contexts []string
	plan     *patchPlan
}

func (s *state) prepareCreate(owner types.Account, req types.CreateModuleRequest) (*pendingModule, error) {
	if err := checkCaller(owner); err != nil {
		return nil, err
	}
	if err := validateModuleInfo(req.Module); err != nil {
		return nil, err
	}
	name := req.Module.Name
	if s.store.exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	cursor := newVersionCursor(s.store)
	for _, v := range req.Versions {
		if err := cursor.check(name, v); err != nil {
			return nil, err
		}
	}
	if len(req.ContextIDs) > utils.MaxContextCount {
		return nil, fmt.Errorf("%w: more than %d contexts", ErrInvalidModule, utils.MaxContextCount)
	}
	for _, ctxID := range req.ContextIDs {
		if err := utils.ValidateContextID(ctxID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
		}
	}

	p := &pendingModule{
		owner:    owner,
		info:     req.Module.Clone(),
		versions: req.Versions,
		contexts: req.ContextIDs,
	}
	if len(req.Links) > 0 {
		exists := func(n string) bool { return n == name || s.store.exists(n) }
		plan, err := s.listings.plan(owner, req.Links, exists)
		if err != nil {
			return nil, err
		}
		p.plan = plan
	}
	return p, nil
}

func (s *state) commitCreate(p *pendingModule) *moduleRecord {
	m := s.store.insert(p.info, p.owner)
	for _, v := range p.versions {
		m.appendVersion(v)
	}
	for _, ctxID := range p.contexts {
		s.contexts.add(m.info.Name, ctxID)
	}
	if p.plan != nil {
		s.commitListing(p.plan)
	}
	return m
}

// checkVersions validates a batch and returns the distinct placeholder
// modules it would resolve, in batch order.
func (s *state) checkVersions(caller types.Account, names []string, versions []types.VersionInfo) ([]string, error) {
	if len(names) != len(versions) {
		return nil, fmt.Errorf("%w: %d names, %d versions", ErrMismatchedBatch, len(names), len(versions))
	}
	cursor := newVersionCursor(s.store)
	var placeholders []string
	seen := make(map[string]bool)
	for i, name := range names {
		m, err := s.store.editable(name, caller)
		if err != nil {
			return nil, err
		}
		if err := cursor.check(name, versions[i]); err != nil {
			return nil, err
		}
		if m.info.IsPlaceholder() && !seen[name] {
			seen[name] = true
			placeholders = append(placeholders, name)
		}
	}
	return placeholders, nil
}

func (s *state) commitVersions(names []string, versions []types.VersionInfo) {
	for i, name := range names {
		m := s.store.modules[name]
		m.appendVersion(versions[i])
		m.info.Flags &^= types.FlagPlaceholder
	}
}

// prepareRemove builds the unlink patch for every listing holding name
func (s *state) prepareRemove(name string) ([]*patchPlan, error) {
	if _, err := s.store.get(name); err != nil {
		return nil, err
	}
	always := func(string) bool { return true }
	var plans []*patchPlan
	for _, account := range s.listers.of(name) {
		links := s.listings.unlinkPatch(account, name)
		if len(links) == 0 {
			continue
		}
		plan, err := s.listings.plan(account, links, always)
		if err != nil {
			return nil, fmt.Errorf("unlink %s from %s: %w", name, account, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (s *state) commitRemove(name string, plans []*patchPlan) {
	for _, p := range plans {
		s.commitListing(p)
	}
	s.contexts.dropModule(name)
	s.store.delete(name)
}
