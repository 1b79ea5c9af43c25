package signal

// Message represents all websocket messages exchanged with the rendezvous
// server. Peers never talk to each other over the websocket directly; the
// server relays signal messages by target peer id.
type Message struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	PeerID  string `json:"peer_id,omitempty"`
	Target  string `json:"target,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeJoinRoom = "join_room"
	MessageTypeSignal   = "signal"

	MessageTypeJoinSuccess = "join_success"
	MessageTypePeerJoined  = "peer_joined"
	MessageTypePeerLeft    = "peer_left"
	MessageTypeError       = "error"
)

// SignalPayload carries WebRTC signaling data (SDP offer/answer or ICE
// candidate) between two peers.
type SignalPayload struct {
	Type         string `json:"type,omitempty"`
	SDP          string `json:"sdp,omitempty"`
	ICECandidate any    `json:"ice_candidate,omitempty"`
}

// JoinSuccessPayload lists the peers already present in the room.
type JoinSuccessPayload struct {
	Peers []string `json:"peers"`
}

// ErrorPayload represents error messages from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}
