package session

import (
	"strings"
	"testing"

	"github.com/AnYiFan117/chat-room/internal/cipher"
)

const testRoom = "ROOM42"

func chatEntry(text string) map[string]any {
	return map[string]any{
		"id":         "01HRLD8K9M",
		"type":       "chat",
		"senderId":   "peer-1",
		"senderName": "alice",
		"text":       text,
		"ts":         int64(1700000000000),
	}
}

func TestSanitizeMessageDecrypts(t *testing.T) {
	msg, ok := sanitizeMessage(chatEntry(cipher.Encrypt(testRoom, "hello")), testRoom)
	if !ok {
		t.Fatal("valid chat entry rejected")
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want hello", msg.Content)
	}
	if !msg.WasEncrypted {
		t.Error("WasEncrypted = false for tagged payload")
	}
	if msg.Kind != KindChat || msg.SenderName != "alice" || msg.Timestamp != 1700000000000 {
		t.Errorf("fields not carried: %+v", msg)
	}
}

func TestSanitizeMessagePlaintextLegacy(t *testing.T) {
	msg, ok := sanitizeMessage(chatEntry("untagged text"), testRoom)
	if !ok {
		t.Fatal("legacy plaintext entry rejected")
	}
	if msg.Content != "untagged text" || msg.WasEncrypted {
		t.Errorf("legacy entry mishandled: %+v", msg)
	}
}

func TestSanitizeMessageDropsEmptyChat(t *testing.T) {
	for _, text := range []string{"", "   ", cipher.Encrypt(testRoom, "   \t ")} {
		if _, ok := sanitizeMessage(chatEntry(text), testRoom); ok {
			t.Errorf("chat entry with blank content %q must be dropped", text)
		}
	}
}

func TestSanitizeMessageKeepsEmptySystem(t *testing.T) {
	entry := chatEntry("")
	entry["type"] = "system"

	msg, ok := sanitizeMessage(entry, testRoom)
	if !ok {
		t.Fatal("system entry with empty content must be admitted")
	}
	if msg.Kind != KindSystem {
		t.Errorf("Kind = %q, want system", msg.Kind)
	}
}

func TestSanitizeMessageKindCoercion(t *testing.T) {
	tests := []struct {
		raw  any
		want Kind
	}{
		{"system", KindSystem},
		{"chat", KindChat},
		{"SYSTEM", KindChat}, // only the exact match is system
		{"bogus", KindChat},
		{42, KindChat},
		{nil, KindChat},
	}
	for _, tt := range tests {
		entry := chatEntry("some text")
		entry["type"] = tt.raw
		msg, ok := sanitizeMessage(entry, testRoom)
		if !ok {
			t.Fatalf("entry with type %v rejected", tt.raw)
		}
		if msg.Kind != tt.want {
			t.Errorf("type %v coerced to %q, want %q", tt.raw, msg.Kind, tt.want)
		}
	}
}

func TestSanitizeMessageDefaults(t *testing.T) {
	msg, ok := sanitizeMessage(map[string]any{"text": "bare"}, testRoom)
	if !ok {
		t.Fatal("minimal entry rejected")
	}
	if msg.ID == "" {
		t.Error("missing id must be generated")
	}
	if msg.SenderName != anonymousName {
		t.Errorf("SenderName = %q, want default", msg.SenderName)
	}
	if msg.Timestamp == 0 {
		t.Error("missing timestamp must be defaulted")
	}
}

func TestSanitizeMessageRejectsNonMaps(t *testing.T) {
	for _, raw := range []any{nil, "string", 42, []any{"list"}, true} {
		if _, ok := sanitizeMessage(raw, testRoom); ok {
			t.Errorf("non-map input %v must be rejected", raw)
		}
	}
}

func TestSanitizeMessageCorruptCipherText(t *testing.T) {
	msg, ok := sanitizeMessage(chatEntry(cipher.Prefix+"!!!bad!!!"), testRoom)
	if !ok {
		t.Fatal("corrupt entry must still render")
	}
	if !strings.Contains(msg.Content, "failed to decrypt") {
		t.Errorf("Content = %q, want sentinel", msg.Content)
	}
}

func TestSanitizeMessageNumericTimestamps(t *testing.T) {
	// JSON decoders produce float64, msgpack produces signed/unsigned ints.
	for _, ts := range []any{float64(123456), int64(123456), uint64(123456), int(123456)} {
		entry := chatEntry("text")
		entry["ts"] = ts
		msg, ok := sanitizeMessage(entry, testRoom)
		if !ok || msg.Timestamp != 123456 {
			t.Errorf("ts %T(%v) -> %d, want 123456", ts, ts, msg.Timestamp)
		}
	}
}

func TestSanitizeParticipant(t *testing.T) {
	p, ok := sanitizeParticipant(map[string]any{
		"user": map[string]any{"id": "peer-1", "name": "alice", "joinedAt": int64(1700000000000)},
	})
	if !ok {
		t.Fatal("valid participant rejected")
	}
	if p.PeerID != "peer-1" || p.DisplayName != "alice" || p.JoinedAt != 1700000000000 {
		t.Errorf("participant = %+v", p)
	}
}

func TestSanitizeParticipantDefaults(t *testing.T) {
	p, ok := sanitizeParticipant(map[string]any{"user": map[string]any{"id": "peer-1"}})
	if !ok {
		t.Fatal("participant with only an id rejected")
	}
	if p.DisplayName != anonymousName {
		t.Errorf("DisplayName = %q, want default", p.DisplayName)
	}
	if p.JoinedAt == 0 {
		t.Error("missing joinedAt must be defaulted")
	}
}

func TestSanitizeParticipantRejects(t *testing.T) {
	tests := []any{
		nil,
		"string",
		map[string]any{},
		map[string]any{"user": nil},
		map[string]any{"user": "not a map"},
		map[string]any{"user": map[string]any{}},
		map[string]any{"user": map[string]any{"id": ""}},
		map[string]any{"user": map[string]any{"id": 42}},
	}
	for _, raw := range tests {
		if _, ok := sanitizeParticipant(raw); ok {
			t.Errorf("input %v must be rejected", raw)
		}
	}
}

func TestSanitizeHandlesLooseMapKeys(t *testing.T) {
	// Some decoders hand back map[any]any for nested maps.
	p, ok := sanitizeParticipant(map[string]any{
		"user": map[any]any{"id": "peer-9", "name": "dave"},
	})
	if !ok || p.PeerID != "peer-9" {
		t.Errorf("map[any]any user not accepted: %+v", p)
	}
}
