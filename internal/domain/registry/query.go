package registry

import "github.com/dapplets/dapplet-registry/internal/shared/types"

// DefaultMaxQueryResults caps each context group of a listers query
const DefaultMaxQueryResults = 1000

// byListers answers, for each context, which modules the listers expose.
//
// A module matches a context when it is declared for it and at least one
// lister lists it. Each match also pulls in listed modules declared for the
// match's own name or for one of its interfaces, so adapters bring their
// features along. Groups are de-duplicated by name.
func (s *state) byListers(contexts []string, listers []types.Account, offset, limit int) types.ListersQueryResult {
	accounts := make([]*listing, 0, len(listers))
	seenLister := make(map[types.Account]bool, len(listers))
	for _, a := range listers {
		if seenLister[a] {
			continue
		}
		seenLister[a] = true
		if l, ok := s.listings.listings[a]; ok && l.size > 0 {
			accounts = append(accounts, l)
		}
	}
	listed := func(name string) bool {
		for _, l := range accounts {
			if l.contains(name) {
				return true
			}
		}
		return false
	}

	out := types.ListersQueryResult{
		Modules: make([][]types.ModuleInfo, len(contexts)),
		Owners:  make([][]types.Account, len(contexts)),
	}
	for i, ctxID := range contexts {
		var names []string
		visited := make(map[string]bool)
		seen := make(map[string]bool)

		var collect func(string)
		collect = func(c string) {
			if visited[c] {
				return
			}
			visited[c] = true
			for _, name := range s.contexts.modulesOf(c) {
				if seen[name] || !listed(name) {
					continue
				}
				seen[name] = true
				names = append(names, name)
				m := s.store.modules[name]
				collect(name)
				for _, iface := range m.info.Interfaces {
					collect(iface)
				}
			}
		}
		collect(ctxID)

		if offset > 0 {
			if offset >= len(names) {
				names = nil
			} else {
				names = names[offset:]
			}
		}
		if limit > 0 && len(names) > limit {
			names = names[:limit]
		}

		out.Modules[i] = make([]types.ModuleInfo, 0, len(names))
		out.Owners[i] = make([]types.Account, 0, len(names))
		for _, name := range names {
			m := s.store.modules[name]
			out.Modules[i] = append(out.Modules[i], m.info.Clone())
			out.Owners[i] = append(out.Owners[i], m.owner)
		}
	}
	return out
}
