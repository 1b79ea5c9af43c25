package crdt

import "sync"

// AwarenessState is one peer's ephemeral presence fields plus the clock that
// orders successive updates from that peer.
type AwarenessState struct {
	PeerID string         `msgpack:"peer_id"`
	Clock  uint64         `msgpack:"clock"`
	Fields map[string]any `msgpack:"fields"`
}

// Awareness broadcasts transient per-peer state (display name, join time)
// that is not part of permanent history. State for a peer disappears when
// its transport closes.
type Awareness struct {
	mu        sync.Mutex
	doc       *Doc
	site      string
	states    map[string]AwarenessState
	observers map[int]func()
	nextID    int
}

func newAwareness(doc *Doc, site string) *Awareness {
	return &Awareness{
		doc:       doc,
		site:      site,
		states:    make(map[string]AwarenessState),
		observers: make(map[int]func()),
	}
}

// SetLocal merges fields into the local peer's presence entry, bumps its
// clock and broadcasts the new state.
func (a *Awareness) SetLocal(fields map[string]any) {
	if !a.doc.alive() {
		return
	}

	a.mu.Lock()
	cur := a.states[a.site]
	merged := make(map[string]any, len(cur.Fields)+len(fields))
	for k, v := range cur.Fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	next := AwarenessState{PeerID: a.site, Clock: cur.Clock + 1, Fields: merged}
	a.states[a.site] = next
	a.mu.Unlock()

	a.notify()
	a.doc.publish(Update{Awareness: &next})
}

// Apply merges a remote peer's state. Updates with a stale clock are
// rejected so reordered deliveries cannot roll presence backwards.
func (a *Awareness) Apply(state AwarenessState) bool {
	if state.PeerID == "" || !a.doc.alive() {
		return false
	}

	a.mu.Lock()
	cur, known := a.states[state.PeerID]
	if known && state.Clock <= cur.Clock {
		a.mu.Unlock()
		return false
	}
	a.states[state.PeerID] = state
	a.mu.Unlock()

	a.notify()
	return true
}

// RemovePeer drops a peer's presence, typically when its connection closes.
func (a *Awareness) RemovePeer(peerID string) {
	a.mu.Lock()
	_, known := a.states[peerID]
	delete(a.states, peerID)
	a.mu.Unlock()

	if known {
		a.notify()
	}
}

// States returns every peer's presence fields.
func (a *Awareness) States() []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]map[string]any, 0, len(a.states))
	for _, s := range a.states {
		out = append(out, s.Fields)
	}
	return out
}

// Snapshot returns all clocked states for state sync with a new peer.
func (a *Awareness) Snapshot() []AwarenessState {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]AwarenessState, 0, len(a.states))
	for _, s := range a.states {
		out = append(out, s)
	}
	return out
}

// Observe registers a change observer and returns its cancel func.
func (a *Awareness) Observe(fn func()) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.observers[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.observers, id)
	}
}

func (a *Awareness) notify() {
	a.mu.Lock()
	fns := make([]func(), 0, len(a.observers))
	for _, fn := range a.observers {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (a *Awareness) detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = make(map[int]func())
}
