// Package hub implements the signaling rendezvous server: it groups
// websocket clients into rooms, relays WebRTC signaling payloads between
// them by peer id, and announces arrivals and departures. It never carries
// chat content; that flows peer-to-peer once the mesh is up.
package hub

import (
	"log/slog"

	"github.com/AnYiFan117/chat-room/internal/room"
	"github.com/AnYiFan117/chat-room/internal/signal"
)

// Hub owns all room and client state. A single goroutine (Run) processes
// every state change, so no field needs a lock.
type Hub struct {
	rooms map[room.ID]*meshRoom

	Register   chan *Client
	Unregister chan *Client
	inbound    chan *inbound
}

// meshRoom is one rendezvous room: every present peer, keyed by peer id.
type meshRoom struct {
	id    room.ID
	peers map[string]*Client
}

type inbound struct {
	msg    *signal.Message
	client *Client
}

// New creates an empty hub. Call Run in its own goroutine before serving.
func New() *Hub {
	return &Hub{
		rooms:      make(map[room.ID]*meshRoom),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		inbound:    make(chan *inbound, 64),
	}
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			slog.Debug("client registered", "remote", client.remoteAddr())

		case client := <-h.Unregister:
			h.removeClient(client)
			close(client.Send)

		case in := <-h.inbound:
			h.handleMessage(in)
		}
	}
}

func (h *Hub) handleMessage(in *inbound) {
	switch in.msg.Type {
	case signal.MessageTypeJoinRoom:
		h.handleJoin(in)
	case signal.MessageTypeSignal:
		h.handleSignal(in)
	default:
		slog.Debug("ignoring message", "type", in.msg.Type)
	}
}

// handleJoin places the client into the room, creating it on first join,
// answers with the current peer list, and announces the arrival.
func (h *Hub) handleJoin(in *inbound) {
	id := room.Normalize(in.msg.RoomID)
	peerID := in.msg.PeerID
	if id == "" || peerID == "" {
		in.client.sendError("room id and peer id are required")
		return
	}

	r, ok := h.rooms[id]
	if !ok {
		r = &meshRoom{id: id, peers: make(map[string]*Client)}
		h.rooms[id] = r
		slog.Info("room created", "room", id)
	}

	if _, taken := r.peers[peerID]; taken {
		in.client.sendError("peer id already present in room")
		return
	}

	others := make([]string, 0, len(r.peers))
	for existing := range r.peers {
		others = append(others, existing)
	}

	r.peers[peerID] = in.client
	in.client.roomID = id
	in.client.peerID = peerID
	slog.Info("peer joined", "room", id, "peer", peerID, "size", len(r.peers))

	in.client.send(&signal.Message{
		Type:    signal.MessageTypeJoinSuccess,
		RoomID:  id,
		Payload: signal.JoinSuccessPayload{Peers: others},
	})

	for _, other := range others {
		r.peers[other].send(&signal.Message{
			Type:   signal.MessageTypePeerJoined,
			RoomID: id,
			PeerID: peerID,
		})
	}
}

// handleSignal relays an SDP/ICE payload to its target peer only.
func (h *Hub) handleSignal(in *inbound) {
	r, ok := h.rooms[in.client.roomID]
	if !ok {
		in.client.sendError("not in a room")
		return
	}

	target, ok := r.peers[in.msg.Target]
	if !ok {
		// The target may have just left; drop silently, the sender
		// will see a peer_left shortly.
		return
	}

	target.send(&signal.Message{
		Type:    signal.MessageTypeSignal,
		RoomID:  r.id,
		PeerID:  in.client.peerID,
		Target:  in.msg.Target,
		Payload: in.msg.Payload,
	})
}

// removeClient drops a client from its room, announces the departure, and
// deletes the room when the last peer leaves.
func (h *Hub) removeClient(client *Client) {
	r, ok := h.rooms[client.roomID]
	if !ok {
		return
	}
	if current, present := r.peers[client.peerID]; !present || current != client {
		return
	}

	delete(r.peers, client.peerID)
	slog.Info("peer left", "room", r.id, "peer", client.peerID, "size", len(r.peers))

	if len(r.peers) == 0 {
		delete(h.rooms, r.id)
		slog.Info("room deleted", "room", r.id)
		return
	}

	for _, other := range r.peers {
		other.send(&signal.Message{
			Type:   signal.MessageTypePeerLeft,
			RoomID: r.id,
			PeerID: client.peerID,
		})
	}
}
