package registry

import "github.com/dapplets/dapplet-registry/internal/shared/types"

// listersIndex is the back-reference from a module to the accounts listing
// it. It is derived from listingIndex and kept in step by every commit.
type listersIndex struct {
	byModule map[string]*orderedSet[types.Account]
	all      *orderedSet[types.Account]
}

func newListersIndex() *listersIndex {
	return &listersIndex{
		byModule: make(map[string]*orderedSet[types.Account]),
		all:      newOrderedSet[types.Account](),
	}
}

func (x *listersIndex) record(p *patchPlan) {
	for _, name := range p.added {
		set, ok := x.byModule[name]
		if !ok {
			set = newOrderedSet[types.Account]()
			x.byModule[name] = set
		}
		set.add(p.account)
	}
	for _, name := range p.removed {
		if set, ok := x.byModule[name]; ok {
			set.remove(p.account)
			if set.len() == 0 {
				delete(x.byModule, name)
			}
		}
	}
	if p.size > 0 {
		x.all.add(p.account)
	}
}

func (x *listersIndex) of(name string) []types.Account {
	if set, ok := x.byModule[name]; ok {
		return set.values()
	}
	return []types.Account{}
}

func (x *listersIndex) accounts() []types.Account {
	return x.all.values()
}
