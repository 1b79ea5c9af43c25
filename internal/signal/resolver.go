// Package signal resolves rendezvous endpoints and maintains the websocket
// connection used for WebRTC signaling.
package signal

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/AnYiFan117/chat-room/internal/config"
	"github.com/AnYiFan117/chat-room/internal/room"
)

// ResolveEndpoints produces the ordered, deduplicated list of signaling
// endpoint URLs for a room. Candidates are collected in priority order:
// the configured endpoint list, the configured single endpoint, the
// endpoint derived from the configured domain, and the built-in fallback.
// RoomPlaceholder occurrences are substituted with the canonical room id;
// templates without a placeholder pass through unchanged (the room id also
// travels in the join message).
func ResolveEndpoints(cfg *config.Config, roomID string) []string {
	canonical := room.Normalize(roomID)

	var candidates []string
	candidates = append(candidates, cfg.SignalingURLs...)
	if cfg.SignalingURL != "" {
		candidates = append(candidates, cfg.SignalingURL)
	}
	if derived := cfg.DomainEndpoint(); derived != "" {
		candidates = append(candidates, derived)
	}
	candidates = append(candidates, fmt.Sprintf("wss://%s/ws", config.DefaultDomain))

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, template := range candidates {
		url := strings.ReplaceAll(template, config.RoomPlaceholder, canonical)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}

// ResolveICEServers converts the configured STUN/TURN descriptors into pion
// ICE server entries.
func ResolveICEServers(cfg *config.Config) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, desc := range cfg.ICEServers {
		if len(desc.URLs) == 0 {
			continue
		}
		server := webrtc.ICEServer{URLs: desc.URLs}
		if desc.Username != "" {
			server.Username = desc.Username
			server.Credential = desc.Credential
		}
		servers = append(servers, server)
	}
	return servers
}
