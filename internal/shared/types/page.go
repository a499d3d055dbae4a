package types

// Page selects a window of a stable enumeration.
//
// Offset is zero-based, Limit 0 means "all remaining", and Reverse walks the
// same index space back-to-front.
type Page struct {
	Offset  int  `json:"offset" form:"offset"`
	Limit   int  `json:"limit" form:"limit"`
	Reverse bool `json:"reverse" form:"reverse"`
}

// All is the page covering everything in forward order
var All = Page{}

// Positions returns the indexes of the selected elements in visiting order.
func (p Page) Positions(total int) []int {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil
	}

	n := total - offset
	if p.Limit > 0 && p.Limit < n {
		n = p.Limit
	}

	out := make([]int, n)
	for i := range out {
		if p.Reverse {
			out[i] = total - 1 - offset - i
		} else {
			out[i] = offset + i
		}
	}
	return out
}

// Paginate returns the page of items in visiting order.
func Paginate[T any](items []T, p Page) []T {
	positions := p.Positions(len(items))
	out := make([]T, len(positions))
	for i, pos := range positions {
		out[i] = items[pos]
	}
	return out
}

// ModulesPage is a paginated module listing with parallel arrays.
// LastVersions holds the newest version on the requested branch, or nil.
type ModulesPage struct {
	Modules      []ModuleInfo   `json:"modules"`
	Owners       []Account      `json:"owners"`
	LastVersions []*VersionInfo `json:"lastVersions"`
	Total        int            `json:"total"`
}

// AccountsPage is a paginated list of accounts
type AccountsPage struct {
	Accounts []Account `json:"accounts"`
	Total    int       `json:"total"`
}

// VersionsPage is a paginated list of versions on one branch
type VersionsPage struct {
	Versions []VersionInfo `json:"versions"`
	Total    int           `json:"total"`
}
