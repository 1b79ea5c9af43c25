package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default configuration values (production)
const (
	DefaultDomain = "chat-room.fly.dev"
	DefaultSTUN   = "stun:stun.l.google.com:19302"

	// RoomPlaceholder is substituted with the room id in endpoint templates.
	RoomPlaceholder = "{room}"
)

// ICEServer describes a STUN or TURN server. The JSON shape matches the
// {urls, username?, credential?} descriptors accepted in the environment.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// Config holds application configuration. It is read once at startup and
// never mutated afterwards.
type Config struct {
	// Domain is the default rendezvous server domain.
	Domain string

	// SignalingURL is a single signaling endpoint template, optionally
	// containing RoomPlaceholder.
	SignalingURL string

	// SignalingURLs is an ordered list of signaling endpoint templates.
	// Takes priority over SignalingURL when non-empty.
	SignalingURLs []string

	// ICEServers are STUN/TURN descriptors for WebRTC.
	ICEServers []ICEServer
}

// Options carries CLI flag overrides for Load.
type Options struct {
	Domain       string
	SignalingURL string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := opts.Domain
	if domain == "" {
		domain = os.Getenv("CHATROOM_DOMAIN")
	}
	if domain == "" {
		domain = DefaultDomain
	}

	signalingURL := opts.SignalingURL
	if signalingURL == "" {
		signalingURL = os.Getenv("CHATROOM_SIGNALING")
	}

	var signalingURLs []string
	if raw := os.Getenv("CHATROOM_SIGNALING_LIST"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &signalingURLs); err != nil {
			return nil, fmt.Errorf("parse CHATROOM_SIGNALING_LIST: %w", err)
		}
	}

	iceServers := []ICEServer{{URLs: []string{DefaultSTUN}}}
	if raw := os.Getenv("CHATROOM_ICE_SERVERS"); raw != "" {
		var parsed []ICEServer
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("parse CHATROOM_ICE_SERVERS: %w", err)
		}
		if len(parsed) > 0 {
			iceServers = parsed
		}
	}

	return &Config{
		Domain:        domain,
		SignalingURL:  signalingURL,
		SignalingURLs: signalingURLs,
		ICEServers:    iceServers,
	}, nil
}

// DomainEndpoint returns the signaling endpoint derived from the configured
// domain.
func (c *Config) DomainEndpoint() string {
	if c.Domain == "" {
		return ""
	}
	return fmt.Sprintf("wss://%s/ws", c.Domain)
}

// RoomLink returns the shareable URL for a room id.
func (c *Config) RoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/r/%s", c.Domain, roomID)
}
