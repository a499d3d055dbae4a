package registry

import (
	"sync"
	"time"

	"github.com/dapplets/dapplet-registry/internal/shared/id"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// EventKind names a committed mutation
type EventKind string

const (
	EventModuleCreated        EventKind = "module.created"
	EventModuleReserved       EventKind = "module.reserved"
	EventModuleEdited         EventKind = "module.edited"
	EventOwnershipTransferred EventKind = "module.transferred"
	EventModuleBurned         EventKind = "module.burned"
	EventVersionAdded         EventKind = "version.added"
	EventStakeReleased        EventKind = "stake.released"
	EventAdminAdded           EventKind = "admin.added"
	EventAdminRemoved         EventKind = "admin.removed"
	EventContextAdded         EventKind = "context.added"
	EventContextRemoved       EventKind = "context.removed"
	EventListingChanged       EventKind = "listing.changed"
	EventStakeParamsChanged   EventKind = "staking.params"
	EventSnapshotImported     EventKind = "snapshot.imported"
)

// Event describes one committed mutation
type Event struct {
	ID      id.EventID    `json:"id"`
	Kind    EventKind     `json:"kind"`
	Module  string        `json:"module,omitempty"`
	Account types.Account `json:"account,omitempty"`
	Detail  string        `json:"detail,omitempty"`
	At      time.Time     `json:"at"`
}

// Handler receives events after the registry lock is released
type Handler func(Event)

type subscribers struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

func (s *subscribers) add(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[int]Handler)
	}
	key := s.next
	s.next++
	s.handlers[key] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, key)
	}
}

func (s *subscribers) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, e := range events {
		for _, h := range handlers {
			h(e)
		}
	}
}
