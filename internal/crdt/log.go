package crdt

import "sync"

// Entry is one element of an ordered log. Origin and Seq uniquely identify
// an entry across the mesh; Clock is a Lamport timestamp used to keep the
// merged order causally sensible.
type Entry struct {
	Origin string         `msgpack:"origin"`
	Seq    uint64         `msgpack:"seq"`
	Clock  uint64         `msgpack:"clock"`
	Data   map[string]any `msgpack:"data"`
}

// Log is an append-only replicated sequence. Local appends are stamped with
// the document site and broadcast via the document's update listeners;
// remote batches are merged with Apply. Observers fire synchronously after
// every mutation.
type Log struct {
	mu        sync.Mutex
	doc       *Doc
	name      string
	entries   []Entry
	seen      map[entryKey]struct{}
	seq       uint64
	clock     uint64
	observers map[int]func()
	nextID    int
}

type entryKey struct {
	origin string
	seq    uint64
}

func newLog(doc *Doc, name string) *Log {
	return &Log{
		doc:       doc,
		name:      name,
		seen:      make(map[entryKey]struct{}),
		observers: make(map[int]func()),
	}
}

// Append adds locally produced entries, stamps them, notifies observers and
// hands the batch to the transport for broadcast.
func (l *Log) Append(data ...map[string]any) {
	if len(data) == 0 || !l.doc.alive() {
		return
	}

	l.mu.Lock()
	batch := make([]Entry, 0, len(data))
	for _, d := range data {
		l.seq++
		l.clock++
		e := Entry{Origin: l.doc.site, Seq: l.seq, Clock: l.clock, Data: d}
		l.entries = append(l.entries, e)
		l.seen[entryKey{e.Origin, e.Seq}] = struct{}{}
		batch = append(batch, e)
	}
	l.mu.Unlock()

	l.notify()
	l.doc.publish(Update{Log: l.name, Entries: batch})
}

// Apply merges a remote batch. Entries already seen are dropped, so Apply is
// idempotent; applying the same batches in any order converges. Returns the
// number of entries actually added.
func (l *Log) Apply(batch []Entry) int {
	if len(batch) == 0 || !l.doc.alive() {
		return 0
	}

	l.mu.Lock()
	added := 0
	for _, e := range batch {
		key := entryKey{e.Origin, e.Seq}
		if _, dup := l.seen[key]; dup {
			continue
		}
		l.seen[key] = struct{}{}
		l.entries = append(l.entries, e)
		if e.Clock > l.clock {
			l.clock = e.Clock
		}
		added++
	}
	l.mu.Unlock()

	if added > 0 {
		l.notify()
	}
	return added
}

// Entries returns the raw entry payloads in log order.
func (l *Log) Entries() []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]map[string]any, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Data
	}
	return out
}

// Snapshot returns a copy of the full entry history for state sync with a
// newly connected peer.
func (l *Log) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Observe registers a change observer and returns its cancel func.
func (l *Log) Observe(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.observers[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.observers, id)
	}
}

func (l *Log) notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.observers))
	for _, fn := range l.observers {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (l *Log) detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = make(map[int]func())
}
