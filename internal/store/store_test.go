package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := s.Get("display_name"); got != "" {
		t.Errorf("Get on empty store = %q, want \"\"", got)
	}
	if got := s.GetStrings("known_rooms"); len(got) != 0 {
		t.Errorf("GetStrings on empty store = %v, want empty", got)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Set("display_name", "alice"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.SetStrings("known_rooms", []string{"AAA111", "BBB222"}); err != nil {
		t.Fatalf("SetStrings: %v", err)
	}

	// Reopen to prove the values hit disk.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Get("display_name"); got != "alice" {
		t.Errorf("Get after reopen = %q, want alice", got)
	}
	if got := reopened.GetStrings("known_rooms"); !reflect.DeepEqual(got, []string{"AAA111", "BBB222"}) {
		t.Errorf("GetStrings after reopen = %v", got)
	}
}

func TestCorruptFileRecoversEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, stateFile)
	if err := os.WriteFile(path, []byte("{{{ not yaml ]["), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open must tolerate corrupt state, got %v", err)
	}
	if got := s.Get("display_name"); got != "" {
		t.Errorf("corrupt store must read as empty, got %q", got)
	}

	// And it must be writable again afterwards.
	if err := s.Set("display_name", "bob"); err != nil {
		t.Fatalf("Set after corrupt recovery: %v", err)
	}
}

func TestPeerIDStable(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first := s.PeerID()
	if first == "" {
		t.Fatal("PeerID must generate an id on first use")
	}
	if second := s.PeerID(); second != first {
		t.Errorf("PeerID changed within a session: %q then %q", first, second)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.PeerID(); got != first {
		t.Errorf("PeerID changed across restarts: %q then %q", first, got)
	}
}

func TestDisplayNameHelpers(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := s.DisplayName(); got != "" {
		t.Errorf("DisplayName default = %q, want \"\"", got)
	}
	if err := s.SetDisplayName("carol"); err != nil {
		t.Fatalf("SetDisplayName: %v", err)
	}
	if got := s.DisplayName(); got != "carol" {
		t.Errorf("DisplayName = %q, want carol", got)
	}
}
