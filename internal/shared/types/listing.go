package types

// Listing sentinels. Module names are lowercase, so these never collide.
const (
	Head = "H"
	Tail = "T"
)

// Link rewrites one forward pointer of a listing.
// Next == Head is the unlink marker: Prev leaves the listing.
type Link struct {
	Prev string `json:"prev" yaml:"prev" toml:"prev"`
	Next string `json:"next" yaml:"next" toml:"next"`
}

// IsUnlink reports whether the link removes Prev from the listing
func (l Link) IsUnlink() bool {
	return l.Next == Head
}

// ChainLinks builds the patch that lays names out in order on an empty listing.
func ChainLinks(names []string) []Link {
	if len(names) == 0 {
		return nil
	}
	links := make([]Link, 0, len(names)+1)
	links = append(links, Link{Prev: Head, Next: names[0]})
	for i, name := range names {
		next := Tail
		if i+1 < len(names) {
			next = names[i+1]
		}
		links = append(links, Link{Prev: name, Next: next})
	}
	return links
}
