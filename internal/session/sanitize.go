package session

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AnYiFan117/chat-room/internal/cipher"
)

const anonymousName = "anonymous"

// sanitizeMessage converts one raw replicated-log entry into a Message.
// Entries arrive from untrusted peers: non-map input is rejected, missing
// fields are defaulted, and a chat entry whose decrypted trimmed content is
// empty is dropped. System entries are always admitted. Never panics.
func sanitizeMessage(raw any, roomID string) (Message, bool) {
	entry, ok := asStringMap(raw)
	if !ok {
		return Message{}, false
	}

	kind := KindChat
	if s, _ := entry["type"].(string); s == string(KindSystem) {
		kind = KindSystem
	}

	text, _ := entry["text"].(string)
	wasEncrypted := cipher.IsEncrypted(text)
	content := strings.TrimSpace(cipher.Decrypt(roomID, text))
	if kind == KindChat && content == "" {
		return Message{}, false
	}

	id, _ := entry["id"].(string)
	if id == "" {
		id = ulid.Make().String()
	}

	senderID, _ := entry["senderId"].(string)

	senderName, _ := entry["senderName"].(string)
	if strings.TrimSpace(senderName) == "" {
		senderName = anonymousName
	}

	ts := asMillis(entry["ts"])
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	return Message{
		ID:           id,
		Kind:         kind,
		SenderID:     senderID,
		SenderName:   senderName,
		Content:      content,
		Timestamp:    ts,
		WasEncrypted: wasEncrypted,
	}, true
}

// sanitizeParticipant converts one raw awareness state into a Participant.
// A nested user object with a non-empty string id is required; name and
// join time are defaulted when absent or malformed.
func sanitizeParticipant(raw any) (Participant, bool) {
	state, ok := asStringMap(raw)
	if !ok {
		return Participant{}, false
	}

	user, ok := asStringMap(state["user"])
	if !ok {
		return Participant{}, false
	}

	id, _ := user["id"].(string)
	if id == "" {
		return Participant{}, false
	}

	name, _ := user["name"].(string)
	if strings.TrimSpace(name) == "" {
		name = anonymousName
	}

	joinedAt := asMillis(user["joinedAt"])
	if joinedAt == 0 {
		joinedAt = time.Now().UnixMilli()
	}

	return Participant{PeerID: id, DisplayName: name, JoinedAt: joinedAt}, true
}

// asStringMap accepts both decoder shapes for untrusted map payloads.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				continue
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// asMillis coerces the numeric types JSON and msgpack decoders produce.
func asMillis(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}
