// Package id generates the prefixed ULIDs carried by registry events,
// requests and snapshots.
//
// ULIDs sort by creation time, so event IDs order a replay and snapshot IDs
// order the bolt history. The prefix (evt_, req_, snap_) keeps them readable
// in logs.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventID identifies a committed registry mutation
type EventID string

// RequestID identifies a traced API request
type RequestID string

// SnapshotID identifies a persisted registry snapshot
type SnapshotID string

const (
	EventPrefix    = "evt"
	RequestPrefix  = "req"
	SnapshotPrefix = "snap"
)

// Generator issues strictly increasing ULIDs.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator uses crypto/rand with monotonic entropy
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}
}

var shared = NewGenerator()

// Next returns a fresh ULID
func (g *Generator) Next() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// Prefixed returns prefix_ULID
func (g *Generator) Prefixed(prefix string) string {
	return prefix + "_" + g.Next().String()
}

func NewEventID() EventID       { return EventID(shared.Prefixed(EventPrefix)) }
func NewRequestID() RequestID   { return RequestID(shared.Prefixed(RequestPrefix)) }
func NewSnapshotID() SnapshotID { return SnapshotID(shared.Prefixed(SnapshotPrefix)) }

func (id EventID) String() string    { return string(id) }
func (id RequestID) String() string  { return string(id) }
func (id SnapshotID) String() string { return string(id) }

// Parse strips any prefix and parses the ULID
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}
