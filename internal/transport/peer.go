package transport

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/AnYiFan117/chat-room/internal/signal"
)

const syncChannelLabel = "sync"

// peerLink is the WebRTC leg to one remote peer: a peer connection plus the
// sync data channel riding on it.
type peerLink struct {
	id      string
	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	pending []webrtc.ICECandidateInit
}

// newPeerConnection builds a pion connection wired to relay its ICE
// candidates to the remote peer through the signaling server.
func (p *Provider) newPeerConnection(remoteID string) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: p.ice})
	if err != nil {
		return nil, err
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		p.client.Send(&signal.Message{
			Type:    signal.MessageTypeSignal,
			RoomID:  p.roomID,
			PeerID:  p.peerID,
			Target:  remoteID,
			Payload: signal.SignalPayload{ICECandidate: c.ToJSON()},
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			p.dropPeer(remoteID)
		}
	})

	return pc, nil
}

// attachChannel wires the sync channel handlers: snapshot exchange on open,
// document merge on every message.
func (p *Provider) attachChannel(link *peerLink, dc *webrtc.DataChannel) {
	link.dc = dc

	dc.OnOpen(func() {
		slog.Debug("sync channel open", "peer", link.id, "room", p.roomID)
		p.sendSnapshot(dc)
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		wire, err := decodeMessage(msg.Data)
		if err != nil {
			slog.Warn("undecodable sync message", "peer", link.id, "err", err)
			return
		}
		p.applyWire(wire)
	})
}

// sendOffer starts negotiation toward a peer already in the room. The newer
// arrival always initiates, so two peers never produce colliding offers.
func (p *Provider) sendOffer(link *peerLink) error {
	dc, err := link.pc.CreateDataChannel(syncChannelLabel, nil)
	if err != nil {
		return err
	}
	p.attachChannel(link, dc)

	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		return err
	}

	p.sendSDP(link.id, link.pc.LocalDescription())
	return nil
}

// handleRemoteSDP finishes negotiation for either side: answering an offer
// or accepting an answer to ours.
func (p *Provider) handleRemoteSDP(link *peerLink, payload *signal.SignalPayload) error {
	var sdpType webrtc.SDPType
	switch payload.Type {
	case "offer":
		sdpType = webrtc.SDPTypeOffer
	case "answer":
		sdpType = webrtc.SDPTypeAnswer
	default:
		return errUnexpectedSignal
	}

	desc := webrtc.SessionDescription{Type: sdpType, SDP: payload.SDP}
	if err := link.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	p.flushCandidates(link)

	if sdpType == webrtc.SDPTypeOffer {
		answer, err := link.pc.CreateAnswer(nil)
		if err != nil {
			return err
		}
		if err := link.pc.SetLocalDescription(answer); err != nil {
			return err
		}
		p.sendSDP(link.id, link.pc.LocalDescription())
	}
	return nil
}

// handleRemoteICE adds a relayed candidate, buffering it when the remote
// description has not arrived yet.
func (p *Provider) handleRemoteICE(link *peerLink, payload *signal.SignalPayload) error {
	if payload.ICECandidate == nil {
		return nil
	}

	raw, err := json.Marshal(payload.ICECandidate)
	if err != nil {
		return err
	}
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return err
	}

	if link.pc.RemoteDescription() == nil {
		link.pending = append(link.pending, candidate)
		return nil
	}
	return link.pc.AddICECandidate(candidate)
}

func (p *Provider) flushCandidates(link *peerLink) {
	for _, candidate := range link.pending {
		if err := link.pc.AddICECandidate(candidate); err != nil {
			slog.Warn("add buffered ICE candidate", "peer", link.id, "err", err)
		}
	}
	link.pending = nil
}

func (p *Provider) sendSDP(remoteID string, desc *webrtc.SessionDescription) {
	if desc == nil {
		return
	}
	p.client.Send(&signal.Message{
		Type:    signal.MessageTypeSignal,
		RoomID:  p.roomID,
		PeerID:  p.peerID,
		Target:  remoteID,
		Payload: signal.SignalPayload{Type: desc.Type.String(), SDP: desc.SDP},
	})
}

func (link *peerLink) close() {
	if link.dc != nil {
		link.dc.Close()
	}
	if link.pc != nil {
		link.pc.Close()
	}
}
