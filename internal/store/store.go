// Package store is the local persistence collaborator: a small string-keyed
// file store for state that outlives a session (known rooms, display name,
// peer identity). All reads tolerate missing or corrupt data by returning
// zero values; persistence problems are logged, never raised.
package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
)

const (
	stateFile = "state.yaml"

	displayNameKey = "display_name"
	peerIDKey      = "peer_id"
)

// Store is a file-backed key-value store.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open loads the store from dir, creating the directory if needed. An empty
// dir selects the per-user config directory. A corrupt state file is treated
// as empty.
func Open(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "chat-room")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	v := viper.New()
	path := filepath.Join(dir, stateFile)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
			slog.Warn("state file unreadable, starting empty", "path", path, "err", err)
			v = viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
		}
	}

	return &Store{v: v, path: path}, nil
}

// Get returns the string stored under key, or "" when absent.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key)
}

// Set stores value under key and persists immediately.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.writeLocked()
}

// GetStrings returns the string slice stored under key, or nil when absent.
func (s *Store) GetStrings(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetStringSlice(key)
}

// SetStrings stores values under key and persists immediately.
func (s *Store) SetStrings(key string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, values)
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		slog.Warn("persist state failed", "path", s.path, "err", err)
		return err
	}
	return nil
}

// DisplayName returns the persisted display name, or "" when unset.
func (s *Store) DisplayName() string {
	return s.Get(displayNameKey)
}

// SetDisplayName persists the local display name.
func (s *Store) SetDisplayName(name string) error {
	return s.Set(displayNameKey, name)
}

// PeerID returns the stable local peer identity token, generating and
// persisting one on first use.
func (s *Store) PeerID() string {
	if id := s.Get(peerIDKey); id != "" {
		return id
	}
	id := ulid.Make().String()
	if err := s.Set(peerIDKey, id); err != nil {
		// Still usable for this run; a fresh id is generated next time.
		slog.Warn("persist peer id failed", "err", err)
	}
	return id
}
