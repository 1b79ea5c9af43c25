// Package crdt implements the replicated document backing a room: named
// append-only logs and an ephemeral awareness set, merged deterministically
// across peers. The session layer consumes it through narrow interfaces and
// never depends on the wire protocol the transport uses to replicate it.
package crdt

import "sync"

// Update describes a locally originated mutation that the transport should
// broadcast to connected peers. Exactly one of Entries or Awareness is set.
type Update struct {
	Log       string
	Entries   []Entry
	Awareness *AwarenessState
}

// Doc is one replicated document. Each room session owns exactly one.
type Doc struct {
	mu        sync.Mutex
	site      string
	logs      map[string]*Log
	awareness *Awareness
	listeners map[int]func(Update)
	nextID    int
	destroyed bool
}

// NewDoc creates an empty document. site identifies the local peer and
// stamps every locally appended entry.
func NewDoc(site string) *Doc {
	d := &Doc{
		site:      site,
		logs:      make(map[string]*Log),
		listeners: make(map[int]func(Update)),
	}
	d.awareness = newAwareness(d, site)
	return d
}

// Site returns the local peer id this document stamps entries with.
func (d *Doc) Site() string { return d.site }

// Log returns the named ordered log, creating it on first use.
func (d *Doc) Log(name string) *Log {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.logs[name]
	if !ok {
		l = newLog(d, name)
		d.logs[name] = l
	}
	return l
}

// Awareness returns the document's presence facility.
func (d *Doc) Awareness() *Awareness { return d.awareness }

// LogNames returns the names of all logs created so far.
func (d *Doc) LogNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.logs))
	for name := range d.logs {
		names = append(names, name)
	}
	return names
}

// OnUpdate registers a listener for locally originated mutations. The
// transport uses it to broadcast updates. Returns a cancel func.
func (d *Doc) OnUpdate(fn func(Update)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.listeners[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// Destroy detaches all listeners and observers. Further mutations are
// silently ignored. Safe to call more than once.
func (d *Doc) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return
	}
	d.destroyed = true
	d.listeners = make(map[int]func(Update))
	for _, l := range d.logs {
		l.detach()
	}
	d.awareness.detach()
}

func (d *Doc) alive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.destroyed
}

// publish fans a local mutation out to update listeners. Called without any
// document lock held so listeners may re-enter the document.
func (d *Doc) publish(u Update) {
	d.mu.Lock()
	fns := make([]func(Update), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
