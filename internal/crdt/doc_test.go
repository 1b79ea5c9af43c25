package crdt

import (
	"reflect"
	"testing"
)

func entry(origin string, seq, clock uint64, text string) Entry {
	return Entry{Origin: origin, Seq: seq, Clock: clock, Data: map[string]any{"text": text}}
}

func TestAppendStampsAndBroadcasts(t *testing.T) {
	doc := NewDoc("site-a")
	var updates []Update
	doc.OnUpdate(func(u Update) { updates = append(updates, u) })

	log := doc.Log("messages")
	log.Append(map[string]any{"text": "one"}, map[string]any{"text": "two"})

	snap := log.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("got %d entries, want 2", len(snap))
	}
	for i, e := range snap {
		if e.Origin != "site-a" {
			t.Errorf("entry %d origin = %q", i, e.Origin)
		}
		if e.Seq != uint64(i+1) {
			t.Errorf("entry %d seq = %d, want %d", i, e.Seq, i+1)
		}
	}
	if len(updates) != 1 || updates[0].Log != "messages" || len(updates[0].Entries) != 2 {
		t.Errorf("broadcast updates = %+v", updates)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	doc := NewDoc("site-a")
	log := doc.Log("messages")
	batch := []Entry{entry("site-b", 1, 5, "hi"), entry("site-b", 2, 6, "again")}

	if added := log.Apply(batch); added != 2 {
		t.Fatalf("first Apply added %d, want 2", added)
	}
	if added := log.Apply(batch); added != 0 {
		t.Errorf("repeated Apply added %d, want 0", added)
	}
	if log.Len() != 2 {
		t.Errorf("log length = %d after duplicate merge, want 2", log.Len())
	}
}

func TestApplyConvergesAcrossOrderings(t *testing.T) {
	a := NewDoc("a").Log("messages")
	b := NewDoc("b").Log("messages")
	batch1 := []Entry{entry("x", 1, 1, "first")}
	batch2 := []Entry{entry("y", 1, 2, "second")}

	a.Apply(batch1)
	a.Apply(batch2)
	b.Apply(batch2)
	b.Apply(batch1)

	keysOf := func(l *Log) map[entryKey]struct{} {
		out := make(map[entryKey]struct{})
		for _, e := range l.Snapshot() {
			out[entryKey{e.Origin, e.Seq}] = struct{}{}
		}
		return out
	}
	if !reflect.DeepEqual(keysOf(a), keysOf(b)) {
		t.Errorf("replicas diverged: %v vs %v", a.Snapshot(), b.Snapshot())
	}
}

func TestApplyAdvancesLamportClock(t *testing.T) {
	doc := NewDoc("site-a")
	log := doc.Log("messages")

	log.Apply([]Entry{entry("site-b", 1, 40, "remote")})
	log.Append(map[string]any{"text": "local"})

	snap := log.Snapshot()
	last := snap[len(snap)-1]
	if last.Clock <= 40 {
		t.Errorf("local append clock = %d, want > 40", last.Clock)
	}
}

func TestLogObserversFireAndCancel(t *testing.T) {
	doc := NewDoc("site-a")
	log := doc.Log("messages")
	fired := 0
	cancel := log.Observe(func() { fired++ })

	log.Append(map[string]any{"text": "one"})
	if fired != 1 {
		t.Fatalf("observer fired %d times after append, want 1", fired)
	}

	log.Apply([]Entry{entry("site-b", 1, 9, "remote")})
	if fired != 2 {
		t.Fatalf("observer fired %d times after apply, want 2", fired)
	}

	cancel()
	log.Append(map[string]any{"text": "after cancel"})
	if fired != 2 {
		t.Errorf("canceled observer still fired, count = %d", fired)
	}
}

func TestLogNames(t *testing.T) {
	doc := NewDoc("site-a")
	doc.Log("messages")
	doc.Log("messages")
	doc.Log("topics")

	names := doc.LogNames()
	if len(names) != 2 {
		t.Errorf("LogNames = %v, want 2 distinct names", names)
	}
}

func TestAwarenessRejectsStaleClock(t *testing.T) {
	doc := NewDoc("site-a")
	aw := doc.Awareness()

	if !aw.Apply(AwarenessState{PeerID: "p1", Clock: 3, Fields: map[string]any{"name": "new"}}) {
		t.Fatal("fresh state rejected")
	}
	if aw.Apply(AwarenessState{PeerID: "p1", Clock: 2, Fields: map[string]any{"name": "old"}}) {
		t.Error("stale clock accepted")
	}
	if aw.Apply(AwarenessState{PeerID: "p1", Clock: 3, Fields: map[string]any{"name": "same"}}) {
		t.Error("equal clock accepted")
	}

	states := aw.States()
	if len(states) != 1 || states[0]["name"] != "new" {
		t.Errorf("states = %v, want the clock-3 fields", states)
	}
}

func TestSetLocalMergesAndBumpsClock(t *testing.T) {
	doc := NewDoc("site-a")
	aw := doc.Awareness()

	aw.SetLocal(map[string]any{"name": "alice", "color": "green"})
	aw.SetLocal(map[string]any{"name": "alice the great"})

	snap := aw.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot = %v, want single local state", snap)
	}
	if snap[0].Clock != 2 {
		t.Errorf("clock = %d after two updates, want 2", snap[0].Clock)
	}
	if snap[0].Fields["name"] != "alice the great" || snap[0].Fields["color"] != "green" {
		t.Errorf("merged fields = %v", snap[0].Fields)
	}
}

func TestRemovePeerNotifiesOnlyWhenPresent(t *testing.T) {
	doc := NewDoc("site-a")
	aw := doc.Awareness()
	fired := 0
	aw.Observe(func() { fired++ })

	aw.RemovePeer("ghost")
	if fired != 0 {
		t.Fatal("removing an unknown peer must not notify")
	}

	aw.Apply(AwarenessState{PeerID: "p1", Clock: 1, Fields: map[string]any{}})
	before := fired
	aw.RemovePeer("p1")
	if fired != before+1 {
		t.Error("removing a known peer must notify")
	}
	if len(aw.States()) != 0 {
		t.Errorf("states after removal = %v", aw.States())
	}
}

func TestDestroySilencesDocument(t *testing.T) {
	doc := NewDoc("site-a")
	log := doc.Log("messages")
	aw := doc.Awareness()
	logFired, awFired, updates := 0, 0, 0
	log.Observe(func() { logFired++ })
	aw.Observe(func() { awFired++ })
	doc.OnUpdate(func(Update) { updates++ })

	doc.Destroy()
	doc.Destroy() // second call must be harmless

	log.Append(map[string]any{"text": "dead"})
	log.Apply([]Entry{entry("site-b", 1, 1, "dead")})
	aw.SetLocal(map[string]any{"name": "ghost"})

	if log.Len() != 0 {
		t.Errorf("destroyed log accepted entries, len = %d", log.Len())
	}
	if logFired != 0 || awFired != 0 || updates != 0 {
		t.Errorf("destroyed doc notified: log=%d awareness=%d updates=%d", logFired, awFired, updates)
	}
}

func TestObserverMayReenterLog(t *testing.T) {
	doc := NewDoc("site-a")
	log := doc.Log("messages")

	var lens []int
	log.Observe(func() { lens = append(lens, log.Len()) })

	log.Append(map[string]any{"text": "one"})

	// Reading back from inside the observer must not deadlock.
	if len(lens) != 1 || lens[0] != 1 {
		t.Errorf("observer readback = %v", lens)
	}
}
