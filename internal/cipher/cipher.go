// Package cipher implements the per-room content obfuscation applied to chat
// payloads before they enter the replicated log.
//
// The keystream is derived from a shared constant plus the room id, both of
// which ship with every client. Anyone who knows a room id can decrypt that
// room's traffic. This is deliberate: the cipher hides payloads from casual
// snooping on signaling/relay infrastructure, it is not a confidentiality
// guarantee against room members or a compromised relay operator.
package cipher

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

const (
	// Prefix tags encrypted payloads so they can be told apart from
	// legacy plaintext entries.
	Prefix = "enc::v1::"

	// DecryptFailed replaces payloads that carry the tag but cannot be
	// decoded. One corrupt entry must never break rendering of the rest
	// of the log.
	DecryptFailed = "message failed to decrypt"

	sharedSecret = "chat-room::keystream::v1"
)

// keystream is a deterministic xorshift32 byte generator. The same seed
// always yields the same byte sequence, which is what lets independent peers
// decrypt each other's payloads without a key exchange.
type keystream struct {
	state uint32
}

// seed mixes the shared secret and the canonical room id into a 32-bit
// state with avalanche finalization. The state must never be zero or the
// xorshift generator would get stuck emitting zeros.
func seed(roomID string) uint32 {
	h := uint32(2166136261)
	for _, b := range []byte(sharedSecret + "::" + canonical(roomID)) {
		h ^= uint32(b)
		h *= 16777619
	}

	// Avalanche pass so near-identical room ids diverge completely.
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	if h == 0 {
		h = 0x9e3779b9
	}
	return h
}

func newKeystream(roomID string) *keystream {
	return &keystream{state: seed(roomID)}
}

// next returns the next keystream byte.
func (k *keystream) next() byte {
	x := k.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	k.state = x
	return byte(x)
}

func (k *keystream) xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ k.next()
	}
	return out
}

func canonical(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

// Encrypt obfuscates plaintext with the room keystream and tags the result.
// Empty plaintext is returned as-is so empty sends never leak a tagged,
// zero-length token.
func Encrypt(roomID, plaintext string) string {
	if plaintext == "" {
		return ""
	}
	ks := newKeystream(roomID)
	return Prefix + base64.StdEncoding.EncodeToString(ks.xor([]byte(plaintext)))
}

// Decrypt reverses Encrypt. Tokens without the version tag are treated as
// legacy plaintext and returned unchanged. Corrupt tagged tokens yield the
// DecryptFailed sentinel; Decrypt never fails.
func Decrypt(roomID, token string) string {
	if !strings.HasPrefix(token, Prefix) {
		return token
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(token, Prefix))
	if err != nil {
		return DecryptFailed
	}

	ks := newKeystream(roomID)
	plain := ks.xor(raw)
	if !utf8.Valid(plain) {
		return DecryptFailed
	}
	return string(plain)
}

// IsEncrypted reports whether a wire payload carries the encryption tag.
func IsEncrypted(token string) bool {
	return strings.HasPrefix(token, Prefix)
}
