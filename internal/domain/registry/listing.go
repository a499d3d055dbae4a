package registry

import (
	"fmt"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

type node struct {
	prev string
	next string
}

// listing is one account's ordered module list: a single path from Head to
// Tail through intrusive prev/next pointers.
type listing struct {
	nodes map[string]node
	size  int
}

func newListing() *listing {
	return &listing{nodes: map[string]node{
		types.Head: {next: types.Tail},
		types.Tail: {prev: types.Head},
	}}
}

func (l *listing) contains(name string) bool {
	if name == types.Head || name == types.Tail {
		return false
	}
	_, ok := l.nodes[name]
	return ok
}

// walk follows next pointers from Head, or prev pointers from Tail when
// p.Reverse is set, skipping p.Offset entries.
func (l *listing) walk(p types.Page) []string {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= l.size {
		return []string{}
	}
	n := l.size - offset
	if p.Limit > 0 && p.Limit < n {
		n = p.Limit
	}

	out := make([]string, 0, n)
	cur := types.Head
	if p.Reverse {
		cur = types.Tail
	}
	for i := 0; len(out) < n; i++ {
		if p.Reverse {
			cur = l.nodes[cur].prev
		} else {
			cur = l.nodes[cur].next
		}
		if cur == types.Head || cur == types.Tail || cur == "" {
			break
		}
		if i >= offset {
			out = append(out, cur)
		}
	}
	return out
}

func (l *listing) names() []string {
	return l.walk(types.All)
}

// patchPlan is a validated listing patch, ready to commit
type patchPlan struct {
	account types.Account
	links   []types.Link
	added   []string
	removed []string
	size    int
}

// listingIndex holds every account's listing
type listingIndex struct {
	listings map[types.Account]*listing
}

func newListingIndex() *listingIndex {
	return &listingIndex{listings: make(map[types.Account]*listing)}
}

// get returns the account's listing or an empty one; the result must not
// be mutated by the caller.
func (x *listingIndex) get(account types.Account) *listing {
	if l, ok := x.listings[account]; ok {
		return l
	}
	return newListing()
}

// plan validates a patch against the account's current listing without
// touching it. exists reports whether a not-yet-listed name is a module.
func (x *listingIndex) plan(account types.Account, links []types.Link, exists func(string) bool) (*patchPlan, error) {
	l := x.get(account)

	prevs := make(map[string]string, len(links))
	nexts := make(map[string]bool, len(links))
	for _, lk := range links {
		if _, dup := prevs[lk.Prev]; dup {
			return nil, fmt.Errorf("%w: prev %q appears twice", ErrRepeatedPointer, lk.Prev)
		}
		prevs[lk.Prev] = lk.Next
		if lk.IsUnlink() {
			continue
		}
		if nexts[lk.Next] {
			return nil, fmt.Errorf("%w: next %q appears twice", ErrRepeatedPointer, lk.Next)
		}
		nexts[lk.Next] = true
	}

	var added, removed []string
	for _, lk := range links {
		switch {
		case lk.Prev == "" || lk.Next == "":
			return nil, fmt.Errorf("%w: empty pointer", ErrInconsistentChanges)
		case lk.Prev == types.Tail:
			return nil, fmt.Errorf("%w: tail cannot have a successor", ErrInconsistentChanges)
		case lk.IsUnlink():
			if !l.contains(lk.Prev) {
				return nil, fmt.Errorf("%w: %q is not listed", ErrInconsistentChanges, lk.Prev)
			}
			removed = append(removed, lk.Prev)
		default:
			if lk.Prev == lk.Next {
				return nil, fmt.Errorf("%w: %q points at itself", ErrInconsistentChanges, lk.Prev)
			}
			for _, name := range []string{lk.Prev, lk.Next} {
				if name == types.Head || name == types.Tail || l.contains(name) {
					continue
				}
				if !exists(name) {
					return nil, fmt.Errorf("%w: %s", ErrModuleDoesNotExist, name)
				}
			}
			if lk.Prev != types.Head && !l.contains(lk.Prev) {
				added = append(added, lk.Prev)
			}
		}
	}

	listedAfter := func(name string) bool {
		if name == types.Head || name == types.Tail {
			return true
		}
		if next, ok := prevs[name]; ok {
			return next != types.Head
		}
		return l.contains(name)
	}
	nextAfter := func(name string) string {
		if next, ok := prevs[name]; ok {
			return next
		}
		return l.nodes[name].next
	}

	// Every node touched by the patch must end with exactly one predecessor
	// if listed and none otherwise. An untouched predecessor keeps its edge.
	targets := make(map[string]bool)
	for _, lk := range links {
		if !lk.IsUnlink() {
			targets[lk.Next] = true
		}
		if lk.Prev != types.Head {
			targets[lk.Prev] = true
		}
		if old, ok := l.nodes[lk.Prev]; ok {
			targets[old.next] = true
		}
	}
	for t := range targets {
		preds := 0
		if old, ok := l.nodes[t]; ok {
			if _, rewritten := prevs[old.prev]; !rewritten {
				preds++
			}
		}
		if nexts[t] {
			preds++
		}
		want := 0
		if listedAfter(t) {
			want = 1
		}
		if preds != want {
			return nil, fmt.Errorf("%w: %q would have %d predecessors", ErrInconsistentChanges, t, preds)
		}
	}

	size := l.size + len(added) - len(removed)
	steps := 0
	for cur := nextAfter(types.Head); cur != types.Tail; cur = nextAfter(cur) {
		steps++
		if steps > size || !listedAfter(cur) {
			return nil, fmt.Errorf("%w: listing would not be a single path", ErrInconsistentChanges)
		}
	}
	if steps != size {
		return nil, fmt.Errorf("%w: %d of %d entries reachable", ErrInconsistentChanges, steps, size)
	}

	return &patchPlan{
		account: account,
		links:   append([]types.Link(nil), links...),
		added:   added,
		removed: removed,
		size:    size,
	}, nil
}

// apply commits a plan produced by plan against the same state
func (x *listingIndex) apply(p *patchPlan) {
	if len(p.links) == 0 {
		return
	}
	l, ok := x.listings[p.account]
	if !ok {
		l = newListing()
		x.listings[p.account] = l
	}

	for _, lk := range p.links {
		if lk.IsUnlink() {
			delete(l.nodes, lk.Prev)
		}
	}
	for _, lk := range p.links {
		if !lk.IsUnlink() {
			nd := l.nodes[lk.Prev]
			nd.next = lk.Next
			l.nodes[lk.Prev] = nd
		}
	}
	for _, lk := range p.links {
		if !lk.IsUnlink() {
			nd := l.nodes[lk.Next]
			nd.prev = lk.Prev
			l.nodes[lk.Next] = nd
		}
	}
	l.size = p.size
}

// unlinkPatch removes name from the account's listing
func (x *listingIndex) unlinkPatch(account types.Account, name string) []types.Link {
	l := x.get(account)
	nd, ok := l.nodes[name]
	if !ok || !l.contains(name) {
		return nil
	}
	return []types.Link{
		{Prev: nd.prev, Next: nd.next},
		{Prev: name, Next: types.Head},
	}
}
