package transport

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/AnYiFan117/chat-room/internal/crdt"
)

// Data channel message types.
const (
	// msgState carries a full document snapshot, exchanged by both sides
	// when a channel opens.
	msgState = "state"

	// msgAppend carries freshly appended log entries.
	msgAppend = "append"

	// msgAwareness carries one peer's clocked presence update.
	msgAwareness = "awareness"
)

// wireMessage is the msgpack envelope for all data channel traffic.
type wireMessage struct {
	Type      string                `msgpack:"type"`
	Log       string                `msgpack:"log,omitempty"`
	Entries   []crdt.Entry          `msgpack:"entries,omitempty"`
	Logs      map[string][]crdt.Entry `msgpack:"logs,omitempty"`
	Awareness []crdt.AwarenessState `msgpack:"awareness,omitempty"`
}

func encodeMessage(m *wireMessage) ([]byte, error) {
	return msgpack.Marshal(m)
}

func decodeMessage(raw []byte) (*wireMessage, error) {
	var m wireMessage
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
