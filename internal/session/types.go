// Package session owns one live session per room: the replicated document,
// the transport provider bound to it, the derived message and participant
// views, and the join/leave announcement state.
package session

// Kind distinguishes chat payloads from system announcements.
type Kind string

const (
	KindChat   Kind = "chat"
	KindSystem Kind = "system"
)

// Message is a validated, decrypted chat log entry as shown to the UI.
type Message struct {
	ID           string
	Kind         Kind
	SenderID     string
	SenderName   string
	Content      string
	Timestamp    int64 // unix milliseconds, producer-assigned
	WasEncrypted bool  // whether the wire payload carried the encryption tag
}

// Participant is one presence entry, derived from the awareness set at read
// time and never persisted.
type Participant struct {
	PeerID      string
	DisplayName string
	JoinedAt    int64 // unix milliseconds
}

// User identifies the local caller to Connect/Disconnect and friends.
type User struct {
	ID          string
	DisplayName string
}

// Outgoing is the payload for SendMessage.
type Outgoing struct {
	SenderID    string
	DisplayName string
	Content     string
}

// SharedLog is the replicated ordered log a session stores chat entries in.
type SharedLog interface {
	Append(entries ...map[string]any)
	Entries() []map[string]any
	Observe(fn func()) (cancel func())
}

// Awareness is the replicated presence facility.
type Awareness interface {
	SetLocal(fields map[string]any)
	States() []map[string]any
	Observe(fn func()) (cancel func())
}

// Document is the replicated document scoped to one room.
type Document interface {
	Log(name string) SharedLog
	Awareness() Awareness
	Destroy()
}

// Provider is the transport bound to a document. Destroy releases its
// network resources and must be safe on a partially initialized provider.
type Provider interface {
	Destroy()
}

// OpenFunc opens a fresh document for a room and the transport provider
// bound to it. A room that cannot reach any signaling endpoint still yields
// a working local document; it just never synchronizes with peers.
type OpenFunc func(roomID string) (Document, Provider, error)
