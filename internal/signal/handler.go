package signal

import "encoding/json"

// Envelope pairs a relayed signaling payload with the peer that sent it.
type Envelope struct {
	From    string
	Payload *SignalPayload
}

// Handler routes incoming signaling messages to typed channels.
type Handler struct {
	client      *Client
	JoinSuccess chan []string
	PeerJoined  chan string
	PeerLeft    chan string
	Signal      chan *Envelope
	Error       chan string
}

// NewHandler creates a message handler for client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		JoinSuccess: make(chan []string, 1),
		PeerJoined:  make(chan string, 16),
		PeerLeft:    make(chan string, 16),
		Signal:      make(chan *Envelope, 32),
		Error:       make(chan string, 1),
	}
}

// Start consumes the client's incoming stream until it closes and routes
// each message. Run it in its own goroutine; channels are left open on exit
// so late readers see an empty channel instead of a closed one.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {
		switch msg.Type {

		case MessageTypeJoinSuccess:
			var payload JoinSuccessPayload
			decodePayload(msg.Payload, &payload)
			h.JoinSuccess <- payload.Peers

		case MessageTypePeerJoined:
			h.PeerJoined <- msg.PeerID

		case MessageTypePeerLeft:
			h.PeerLeft <- msg.PeerID

		case MessageTypeSignal:
			var payload SignalPayload
			if !decodePayload(msg.Payload, &payload) {
				h.Error <- "failed to parse signal payload"
				continue
			}
			h.Signal <- &Envelope{From: msg.PeerID, Payload: &payload}

		case MessageTypeError:
			var payload ErrorPayload
			if !decodePayload(msg.Payload, &payload) {
				h.Error <- "unknown error from server"
				continue
			}
			h.Error <- payload.Error

		default:
		}
	}
}

// decodePayload re-marshals the loosely typed payload into v.
func decodePayload(payload any, v any) bool {
	if payload == nil {
		return false
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
