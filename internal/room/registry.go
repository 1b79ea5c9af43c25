package room

import (
	"sort"
	"sync"
)

const knownRoomsKey = "known_rooms"

// Store is the persistence surface the registry needs. Reads must tolerate
// missing or corrupt data by returning an empty slice.
type Store interface {
	GetStrings(key string) []string
	SetStrings(key string, values []string) error
}

// Registry remembers which rooms the local peer has created or joined. It is
// a UX convenience ("have I seen this room"), never an authorization check.
type Registry struct {
	mu    sync.Mutex
	store Store
	known map[ID]struct{}
}

// NewRegistry loads the known-room set from the store. A corrupt or missing
// persisted set recovers to empty rather than failing the caller.
func NewRegistry(store Store) *Registry {
	known := make(map[ID]struct{})
	for _, id := range store.GetStrings(knownRoomsKey) {
		if canonical := Normalize(id); canonical != "" {
			known[canonical] = struct{}{}
		}
	}
	return &Registry{store: store, known: known}
}

// MarkKnown inserts a room into the known set and persists immediately.
// Re-marking a known room is a no-op.
func (r *Registry) MarkKnown(id ID) {
	canonical := Normalize(id)
	if canonical == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.known[canonical]; ok {
		return
	}
	r.known[canonical] = struct{}{}
	r.persistLocked()
}

// HasRoom reports whether the canonical form of id has been seen before.
func (r *Registry) HasRoom(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.known[Normalize(id)]
	return ok
}

// Known returns the known room ids in sorted order.
func (r *Registry) Known() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sortedLocked()
}

// Generate returns a fresh room id guaranteed to be absent from the known
// set, and records it as known.
func (r *Registry) Generate() ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := GenerateID(r.known)
	r.known[id] = struct{}{}
	r.persistLocked()
	return id
}

func (r *Registry) sortedLocked() []ID {
	ids := make([]ID, 0, len(r.known))
	for id := range r.known {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) persistLocked() {
	// Persistence failures degrade to in-memory state; the store logs them.
	_ = r.store.SetStrings(knownRoomsKey, r.sortedLocked())
}
