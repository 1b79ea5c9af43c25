package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AnYiFan117/chat-room/internal/cipher"
	"github.com/AnYiFan117/chat-room/internal/room"
)

// LogName is the ordered log chat entries live in.
const LogName = "messages"

// ErrEmptyRoomID is returned by Connect when the room id normalizes to "".
var ErrEmptyRoomID = errors.New("empty room id")

// Manager guarantees at most one active session per room identifier. It is
// constructed at application start, injected into callers, and torn down
// with Close; there is no ambient singleton.
type Manager struct {
	mu       sync.Mutex
	open     OpenFunc
	registry *room.Registry
	sessions map[room.ID]*state
	onChange func(roomID room.ID)
}

// state is the runtime aggregate for one active room.
type state struct {
	mu               sync.Mutex
	roomID           room.ID
	doc              Document
	provider         Provider
	log              SharedLog
	messages         []Message
	participants     []Participant
	hasAnnouncedJoin bool
	joinedAt         int64
	user             User
	cancels          []func()
	closed           bool
}

// NewManager creates a session manager. open supplies the replicated
// document and transport for each room; registry records visited rooms.
func NewManager(open OpenFunc, registry *room.Registry) *Manager {
	return &Manager{
		open:     open,
		registry: registry,
		sessions: make(map[room.ID]*state),
	}
}

// SetOnChange installs a callback fired after either materialized view of a
// room changes. Set it before the first Connect.
func (m *Manager) SetOnChange(fn func(roomID room.ID)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Connect joins a room, creating a session on first call and reusing the
// open one afterwards. The local presence entry is (re)published on every
// call; the "joined" announcement is appended exactly once per session
// lifetime no matter how many times Connect is repeated.
func (m *Manager) Connect(roomID string, user User) error {
	id := room.Normalize(roomID)
	if id == "" {
		return ErrEmptyRoomID
	}
	m.registry.MarkKnown(id)

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.mu.Lock()
		s.user = user
		joinedAt := s.joinedAt
		s.mu.Unlock()
		publishPresence(s.doc.Awareness(), user, joinedAt)
		return nil
	}
	m.mu.Unlock()

	doc, provider, err := m.open(id)
	if err != nil {
		return fmt.Errorf("open room %s: %w", id, err)
	}

	s := &state{
		roomID:   id,
		doc:      doc,
		provider: provider,
		log:      doc.Log(LogName),
		joinedAt: time.Now().UnixMilli(),
		user:     user,
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		// Lost a connect race; keep the winner and discard ours.
		m.mu.Unlock()
		teardown(s)
		return m.Connect(existing.roomID, user)
	}
	m.sessions[id] = s
	m.mu.Unlock()

	// Observers resolve the current session through the manager map on
	// every firing. A session replaced or removed in the meantime makes
	// them a no-op instead of writing through a stale reference.
	cancelLog := s.log.Observe(func() { m.refreshMessages(id) })
	cancelAwareness := doc.Awareness().Observe(func() { m.refreshParticipants(id) })
	s.mu.Lock()
	s.cancels = append(s.cancels, cancelLog, cancelAwareness)
	announce := !s.hasAnnouncedJoin
	s.hasAnnouncedJoin = true
	s.mu.Unlock()

	publishPresence(doc.Awareness(), user, s.joinedAt)
	if announce {
		m.appendSystem(s, fmt.Sprintf("%s joined the room", displayName(user)))
	}
	m.refreshMessages(id)
	m.refreshParticipants(id)
	return nil
}

// Disconnect announces the departure when a join was announced, then
// releases the session's transport and document and removes it from the
// active map. Disconnecting a room with no active session is a no-op, as is
// calling Disconnect twice.
func (m *Manager) Disconnect(roomID string, user User) {
	id := room.Normalize(roomID)

	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	announced := s.hasAnnouncedJoin
	s.mu.Unlock()
	if announced {
		m.appendSystem(s, fmt.Sprintf("%s left the room", displayName(user)))
	}
	teardown(s)
}

// SendMessage encrypts and appends a chat entry. No-op when the room has no
// active session or the content is blank after trimming.
func (m *Manager) SendMessage(roomID string, msg Outgoing) {
	if strings.TrimSpace(msg.Content) == "" {
		return
	}
	s := m.lookup(roomID)
	if s == nil {
		return
	}

	s.log.Append(map[string]any{
		"id":         ulid.Make().String(),
		"type":       string(KindChat),
		"senderId":   msg.SenderID,
		"senderName": msg.DisplayName,
		"text":       cipher.Encrypt(s.roomID, msg.Content),
		"ts":         time.Now().UnixMilli(),
	})
}

// RecordSystemMessage appends an encrypted system entry. No-op when the
// room has no active session.
func (m *Manager) RecordSystemMessage(roomID, content string) {
	s := m.lookup(roomID)
	if s == nil {
		return
	}
	m.appendSystem(s, content)
}

// UpdateDisplayName republishes the caller's presence entry with the new
// name, preserving the original join timestamp. No-op without a session.
func (m *Manager) UpdateDisplayName(roomID string, user User) {
	s := m.lookup(roomID)
	if s == nil {
		return
	}

	s.mu.Lock()
	s.user = user
	joinedAt := s.joinedAt
	s.mu.Unlock()
	publishPresence(s.doc.Awareness(), user, joinedAt)
}

// Messages returns the materialized message view, ascending by timestamp
// with ties in replicated-log order. Empty without a session.
func (m *Manager) Messages(roomID string) []Message {
	s := m.lookup(roomID)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Participants returns the materialized participant view, ascending by join
// time. Empty without a session.
func (m *Manager) Participants(roomID string) []Participant {
	s := m.lookup(roomID)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

// Connected reports whether the room has an active session.
func (m *Manager) Connected(roomID string) bool {
	return m.lookup(roomID) != nil
}

// Close tears down every active session, announcing departures for sessions
// that announced a join.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]room.ID, 0, len(m.sessions))
	users := make([]User, 0, len(m.sessions))
	for id, s := range m.sessions {
		ids = append(ids, id)
		s.mu.Lock()
		users = append(users, s.user)
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for i, id := range ids {
		m.Disconnect(id, users[i])
	}
}

func (m *Manager) lookup(roomID string) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[room.Normalize(roomID)]
}

func (m *Manager) appendSystem(s *state, content string) {
	s.log.Append(map[string]any{
		"id":   ulid.Make().String(),
		"type": string(KindSystem),
		"text": cipher.Encrypt(s.roomID, content),
		"ts":   time.Now().UnixMilli(),
	})
}

// refreshMessages re-derives the full message view. O(n) in log size per
// mutation, which is fine at chat scale.
func (m *Manager) refreshMessages(id room.ID) {
	s := m.lookup(id)
	if s == nil {
		return
	}

	entries := s.log.Entries()
	messages := make([]Message, 0, len(entries))
	for _, raw := range entries {
		if msg, ok := sanitizeMessage(raw, id); ok {
			messages = append(messages, msg)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.messages = messages
	s.mu.Unlock()
	m.notifyChange(id)
}

// refreshParticipants re-derives the full participant view.
func (m *Manager) refreshParticipants(id room.ID) {
	s := m.lookup(id)
	if s == nil {
		return
	}

	states := s.doc.Awareness().States()
	participants := make([]Participant, 0, len(states))
	for _, raw := range states {
		if p, ok := sanitizeParticipant(raw); ok {
			participants = append(participants, p)
		}
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt < participants[j].JoinedAt
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.participants = participants
	s.mu.Unlock()
	m.notifyChange(id)
}

func (m *Manager) notifyChange(id room.ID) {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

func publishPresence(a Awareness, user User, joinedAt int64) {
	a.SetLocal(map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"name":     user.DisplayName,
			"joinedAt": joinedAt,
		},
	})
}

func displayName(user User) string {
	if strings.TrimSpace(user.DisplayName) == "" {
		return anonymousName
	}
	return user.DisplayName
}

// teardown releases a session's resources. Resources never created are
// skipped, so it tolerates partially initialized sessions, and the closed
// flag makes it safe to reach at most once per resource.
func teardown(s *state) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if s.provider != nil {
		s.provider.Destroy()
	}
	if s.doc != nil {
		s.doc.Destroy()
	}
}
