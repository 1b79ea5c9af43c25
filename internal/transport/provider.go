// Package transport binds a replicated document to a WebRTC mesh. Peers
// rendezvous over the signaling websocket, open one sync data channel per
// remote peer, exchange full snapshots on connect and stream incremental
// updates afterwards.
package transport

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/AnYiFan117/chat-room/internal/crdt"
	"github.com/AnYiFan117/chat-room/internal/signal"
)

var errUnexpectedSignal = errors.New("unexpected signal type")

// Provider replicates one document across the mesh for one room. A provider
// whose signaling connection failed still exists; the document simply stays
// local-only, which the session layer surfaces as "no peers ever join".
type Provider struct {
	mu            sync.Mutex
	doc           *crdt.Doc
	client        *signal.Client
	handler       *signal.Handler
	ice           []webrtc.ICEServer
	roomID        string
	peerID        string
	peers         map[string]*peerLink
	cancelUpdates func()
	done          chan struct{}
	destroyed     bool
}

// Connect opens the signaling connection, joins the room and starts the
// mesh. It never fails: an unreachable rendezvous yields an inert provider
// and a warning, not an error.
func Connect(doc *crdt.Doc, endpoints []string, ice []webrtc.ICEServer, roomID string) *Provider {
	p := &Provider{
		doc:    doc,
		ice:    ice,
		roomID: roomID,
		peerID: doc.Site(),
		peers:  make(map[string]*peerLink),
		done:   make(chan struct{}),
	}

	client := signal.NewClient()
	if err := client.Connect(endpoints); err != nil {
		slog.Warn("room will stay local-only", "room", roomID, "err", err)
		return p
	}
	p.client = client
	p.handler = signal.NewHandler(client)

	p.cancelUpdates = doc.OnUpdate(p.broadcast)

	go p.handler.Start()
	go p.run()
	client.Join(roomID, p.peerID)
	return p
}

// run is the provider event loop: it reacts to rendezvous traffic until the
// provider is destroyed or the server connection drops.
func (p *Provider) run() {
	for {
		select {
		case peers := <-p.handler.JoinSuccess:
			for _, remoteID := range peers {
				p.initiate(remoteID)
			}

		case remoteID := <-p.handler.PeerJoined:
			// The newcomer initiates toward us; nothing to do until
			// its offer arrives.
			slog.Debug("peer joined", "peer", remoteID, "room", p.roomID)

		case remoteID := <-p.handler.PeerLeft:
			p.dropPeer(remoteID)

		case env := <-p.handler.Signal:
			p.handleSignal(env)

		case msg := <-p.handler.Error:
			slog.Warn("signaling error", "room", p.roomID, "err", msg)

		case <-p.done:
			return
		}
	}
}

// initiate dials a peer that was already in the room when we joined.
func (p *Provider) initiate(remoteID string) {
	link, err := p.ensurePeer(remoteID)
	if err != nil {
		slog.Warn("create peer connection", "peer", remoteID, "err", err)
		return
	}
	if err := p.sendOffer(link); err != nil {
		slog.Warn("send offer", "peer", remoteID, "err", err)
		p.dropPeer(remoteID)
	}
}

// handleSignal processes one relayed SDP or ICE payload.
func (p *Provider) handleSignal(env *signal.Envelope) {
	link, err := p.ensurePeer(env.From)
	if err != nil {
		slog.Warn("create peer connection", "peer", env.From, "err", err)
		return
	}

	if env.Payload.SDP != "" {
		if err := p.handleRemoteSDP(link, env.Payload); err != nil {
			slog.Warn("handle SDP", "peer", env.From, "err", err)
		}
		return
	}
	if err := p.handleRemoteICE(link, env.Payload); err != nil {
		slog.Warn("handle ICE candidate", "peer", env.From, "err", err)
	}
}

// ensurePeer returns the existing link for a peer or builds a fresh one.
// Links built here answer rather than offer, so they accept the remote's
// data channel instead of opening their own.
func (p *Provider) ensurePeer(remoteID string) (*peerLink, error) {
	p.mu.Lock()
	if link, ok := p.peers[remoteID]; ok {
		p.mu.Unlock()
		return link, nil
	}
	p.mu.Unlock()

	pc, err := p.newPeerConnection(remoteID)
	if err != nil {
		return nil, err
	}

	link := &peerLink{id: remoteID, pc: pc}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == syncChannelLabel {
			p.attachChannel(link, dc)
		}
	})

	p.mu.Lock()
	if existing, ok := p.peers[remoteID]; ok {
		p.mu.Unlock()
		pc.Close()
		return existing, nil
	}
	p.peers[remoteID] = link
	p.mu.Unlock()
	return link, nil
}

// dropPeer closes the link and clears the peer's presence.
func (p *Provider) dropPeer(remoteID string) {
	p.mu.Lock()
	link, ok := p.peers[remoteID]
	delete(p.peers, remoteID)
	p.mu.Unlock()
	if !ok {
		return
	}

	link.close()
	p.doc.Awareness().RemovePeer(remoteID)
}

// broadcast fans a local document mutation out to every open channel.
func (p *Provider) broadcast(u crdt.Update) {
	var wire *wireMessage
	switch {
	case u.Entries != nil:
		wire = &wireMessage{Type: msgAppend, Log: u.Log, Entries: u.Entries}
	case u.Awareness != nil:
		wire = &wireMessage{Type: msgAwareness, Awareness: []crdt.AwarenessState{*u.Awareness}}
	default:
		return
	}

	raw, err := encodeMessage(wire)
	if err != nil {
		slog.Warn("encode sync message", "err", err)
		return
	}

	for _, dc := range p.openChannels() {
		if err := dc.Send(raw); err != nil {
			slog.Debug("send sync message", "err", err)
		}
	}
}

// sendSnapshot pushes the full document state to one channel. Both ends do
// this when the channel opens, so each side converges on the union.
func (p *Provider) sendSnapshot(dc *webrtc.DataChannel) {
	wire := &wireMessage{
		Type:      msgState,
		Logs:      map[string][]crdt.Entry{},
		Awareness: p.doc.Awareness().Snapshot(),
	}
	for _, name := range p.doc.LogNames() {
		wire.Logs[name] = p.doc.Log(name).Snapshot()
	}

	raw, err := encodeMessage(wire)
	if err != nil {
		slog.Warn("encode snapshot", "err", err)
		return
	}
	if err := dc.Send(raw); err != nil {
		slog.Debug("send snapshot", "err", err)
	}
}

// applyWire merges one incoming message into the document.
func (p *Provider) applyWire(wire *wireMessage) {
	switch wire.Type {
	case msgState:
		for name, entries := range wire.Logs {
			p.doc.Log(name).Apply(entries)
		}
		p.applyAwareness(wire.Awareness)

	case msgAppend:
		p.doc.Log(wire.Log).Apply(wire.Entries)

	case msgAwareness:
		p.applyAwareness(wire.Awareness)
	}
}

func (p *Provider) applyAwareness(states []crdt.AwarenessState) {
	for _, state := range states {
		if state.PeerID == p.peerID {
			continue
		}
		p.doc.Awareness().Apply(state)
	}
}

func (p *Provider) openChannels() []*webrtc.DataChannel {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*webrtc.DataChannel, 0, len(p.peers))
	for _, link := range p.peers {
		if link.dc != nil && link.dc.ReadyState() == webrtc.DataChannelStateOpen {
			out = append(out, link.dc)
		}
	}
	return out
}

// Destroy releases every transport resource: update listener, peer
// connections and the signaling connection. Safe on a provider whose
// signaling connect failed and safe to call exactly once per resource.
func (p *Provider) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	links := make([]*peerLink, 0, len(p.peers))
	for _, link := range p.peers {
		links = append(links, link)
	}
	p.peers = make(map[string]*peerLink)
	p.mu.Unlock()

	close(p.done)
	if p.cancelUpdates != nil {
		p.cancelUpdates()
	}
	for _, link := range links {
		link.close()
	}
	if p.client != nil {
		p.client.Close()
	}
}
