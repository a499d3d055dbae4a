package registry

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

const (
	owner  types.Account = "owner"
	lister types.Account = "lister"
)

// N is the unlink marker
const N = types.Head

func ln(prev, next string) types.Link {
	return types.Link{Prev: prev, Next: next}
}

func feature(name string) types.ModuleInfo {
	return types.ModuleInfo{Name: name, ModuleType: types.ModuleTypeFeature, Title: name}
}

func mustCreate(t *testing.T, r *Registry, by types.Account, info types.ModuleInfo, contexts ...string) {
	t.Helper()
	_, err := r.CreateModule(by, types.CreateModuleRequest{Module: info, ContextIDs: contexts})
	require.NoError(t, err)
}

// numberedRegistry has modules "1" through "11"
func numberedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	for i := 1; i <= 11; i++ {
		mustCreate(t, r, owner, feature(strconv.Itoa(i)))
	}
	return r
}

func listingWith(t *testing.T, names ...string) *Registry {
	t.Helper()
	r := numberedRegistry(t)
	require.NoError(t, r.ChangeMyListing(lister, types.ChainLinks(names)))
	return r
}

func TestChangeMyListingScenarios(t *testing.T) {
	r := numberedRegistry(t)

	steps := []struct {
		name  string
		links []types.Link
		want  []string
	}{
		{"create", []types.Link{ln(N, "1"), ln("1", "2"), ln("2", "3"), ln("3", "4"), ln("4", "5"), ln("5", types.Tail)}, []string{"1", "2", "3", "4", "5"}},
		{"rearrange", []types.Link{ln("1", "4"), ln("3", "5"), ln("4", "2")}, []string{"1", "4", "2", "3", "5"}},
		{"insert at start", []types.Link{ln(N, "10"), ln("10", "1")}, []string{"10", "1", "4", "2", "3", "5"}},
		{"insert at end", []types.Link{ln("5", "7"), ln("7", types.Tail)}, []string{"10", "1", "4", "2", "3", "5", "7"}},
		{"insert in middle", []types.Link{ln("2", "11"), ln("11", "3")}, []string{"10", "1", "4", "2", "11", "3", "5", "7"}},
		{"delete first", []types.Link{ln(N, "1"), ln("10", N)}, []string{"1", "4", "2", "11", "3", "5", "7"}},
		{"delete last", []types.Link{ln("5", types.Tail), ln("7", N)}, []string{"1", "4", "2", "11", "3", "5"}},
		{"delete in middle", []types.Link{ln("2", "3"), ln("11", N)}, []string{"1", "4", "2", "3", "5"}},
		{"swap ends", []types.Link{ln(N, "5"), ln("1", types.Tail), ln("3", "1"), ln("5", "4")}, []string{"5", "4", "2", "3", "1"}},
		{"move last to first", []types.Link{ln(N, "1"), ln("1", "5"), ln("3", types.Tail)}, []string{"1", "5", "4", "2", "3"}},
	}

	for _, step := range steps {
		require.NoError(t, r.ChangeMyListing(lister, step.links), step.name)
		assert.Equal(t, step.want, r.GetModuleNamesOfListing(lister), step.name)
		assert.Equal(t, len(step.want), r.GetListingSize(lister), step.name)

		// prev pointers must mirror next pointers
		back := r.GetModulesOfListing(lister, "default", types.Page{Reverse: true})
		require.Len(t, back.Modules, len(step.want), step.name)
		for i, m := range back.Modules {
			assert.Equal(t, step.want[len(step.want)-1-i], m.Name, step.name)
		}
	}
}

func TestChangeMyListingRejects(t *testing.T) {
	tests := []struct {
		name  string
		links []types.Link
		err   error
	}{
		{"pointer into the middle", []types.Link{ln("4", "3")}, ErrInconsistentChanges},
		{"head to tail", []types.Link{ln(N, types.Tail)}, ErrInconsistentChanges},
		{"second predecessor of first", []types.Link{ln(N, "1")}, ErrInconsistentChanges},
		{"second predecessor of tail", []types.Link{ln("5", types.Tail)}, ErrInconsistentChanges},
		{"repeated prev", []types.Link{ln("4", "3"), ln("4", "2")}, ErrRepeatedPointer},
		{"repeated next", []types.Link{ln("5", "3"), ln("4", "3")}, ErrRepeatedPointer},
		{"tail successor", []types.Link{ln(types.Tail, "1")}, ErrInconsistentChanges},
		{"unlink unlisted", []types.Link{ln("9", N)}, ErrInconsistentChanges},
		{"unlink head", []types.Link{ln(N, N)}, ErrInconsistentChanges},
		{"self loop", []types.Link{ln("2", "2")}, ErrInconsistentChanges},
		{"unknown module", []types.Link{ln("1", "ghost"), ln("ghost", types.Tail)}, ErrModuleDoesNotExist},
		{"orphan cycle", []types.Link{ln("4", "3"), ln("3", "2"), ln("2", "4"), ln("5", "1")}, ErrInconsistentChanges},
		{"dangling new node", []types.Link{ln("1", "9"), ln("9", "10")}, ErrInconsistentChanges},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := listingWith(t, "5", "4", "2", "3", "1")

			err := r.ChangeMyListing(lister, tt.links)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, []string{"5", "4", "2", "3", "1"}, r.GetModuleNamesOfListing(lister))
			assert.Equal(t, 5, r.GetListingSize(lister))
		})
	}
}

func TestChangeMyListingRequiresCaller(t *testing.T) {
	r := numberedRegistry(t)
	err := r.ChangeMyListing("", []types.Link{ln(N, "1"), ln("1", types.Tail)})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestListingPagination(t *testing.T) {
	r := listingWith(t, "5", "4", "2", "3", "1")

	names := func(p types.ModulesPage) []string {
		out := make([]string, len(p.Modules))
		for i, m := range p.Modules {
			out[i] = m.Name
		}
		return out
	}

	forward := [][]string{{"5", "4"}, {"2", "3"}, {"1"}}
	backward := [][]string{{"1", "3"}, {"2", "4"}, {"5"}}
	for i := range forward {
		page := r.GetModulesOfListing(lister, "default", types.Page{Offset: i * 2, Limit: 2})
		assert.Equal(t, forward[i], names(page))
		assert.Equal(t, 5, page.Total)

		page = r.GetModulesOfListing(lister, "default", types.Page{Offset: i * 2, Limit: 2, Reverse: true})
		assert.Equal(t, backward[i], names(page))
	}

	page := r.GetModulesOfListing(lister, "default", types.Page{Offset: 5, Limit: 2})
	assert.Empty(t, page.Modules)
	assert.Equal(t, 5, page.Total)

	page = r.GetModulesOfListing("nobody", "default", types.All)
	assert.Empty(t, page.Modules)
	assert.Equal(t, 0, page.Total)
}

func TestListersIndex(t *testing.T) {
	r := numberedRegistry(t)
	other := types.Account("other")

	require.NoError(t, r.ChangeMyListing(lister, types.ChainLinks([]string{"1", "2"})))
	require.NoError(t, r.ChangeMyListing(other, types.ChainLinks([]string{"2"})))

	assert.Equal(t, []types.Account{lister}, r.GetListersByModule("1", types.All).Accounts)
	assert.Equal(t, []types.Account{lister, other}, r.GetListersByModule("2", types.All).Accounts)
	assert.True(t, r.ContainsModuleInListing(lister, "1"))
	assert.False(t, r.ContainsModuleInListing(other, "1"))

	require.NoError(t, r.ChangeMyListing(lister, []types.Link{ln(N, "2"), ln("1", N)}))
	assert.Empty(t, r.GetListersByModule("1", types.All).Accounts)
	assert.False(t, r.ContainsModuleInListing(lister, "1"))

	// an emptied listing keeps its account in the global list
	require.NoError(t, r.ChangeMyListing(other, []types.Link{ln(N, types.Tail), ln("2", N)}))
	assert.Equal(t, 0, r.GetListingSize(other))
	page := r.GetListers(types.All)
	assert.Equal(t, []types.Account{lister, other}, page.Accounts)
	assert.Equal(t, 2, page.Total)

	page = r.GetListers(types.Page{Offset: 1, Limit: 1})
	assert.Equal(t, []types.Account{other}, page.Accounts)
	assert.Equal(t, 2, page.Total)
}

func TestCreateModuleWithLinks(t *testing.T) {
	r := numberedRegistry(t)
	require.NoError(t, r.ChangeMyListing(owner, types.ChainLinks([]string{"1"})))

	_, err := r.CreateModule(owner, types.CreateModuleRequest{
		Module: feature("fresh"),
		Links:  []types.Link{ln("1", "fresh"), ln("fresh", types.Tail)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "fresh"}, r.GetModuleNamesOfListing(owner))

	// a bad patch aborts the creation too
	_, err = r.CreateModule(owner, types.CreateModuleRequest{
		Module: feature("broken"),
		Links:  []types.Link{ln(N, "broken")},
	})
	assert.ErrorIs(t, err, ErrInconsistentChanges)
	_, err = r.GetModuleByName("broken")
	assert.ErrorIs(t, err, ErrModuleDoesNotExist)
}
