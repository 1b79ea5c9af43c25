// Package room handles room identity: canonical ids, unique id generation
// and the persisted set of rooms this peer has visited.
package room

import (
	crand "crypto/rand"
	"math/rand/v2"
	"strings"
)

// ID is a short opaque room token. Equality and map keying always use the
// canonical form produced by Normalize.
type ID = string

const (
	idLength  = 6
	idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Normalize returns the canonical form of a room identifier: trimmed and
// upper-cased. It is pure and idempotent.
func Normalize(id string) ID {
	return strings.ToUpper(strings.TrimSpace(id))
}

// GenerateID draws random 6-character alphanumeric tokens until one is not
// present in existing. With 36^6 possible tokens, retries are vanishingly
// rare at any realistic registry size.
func GenerateID(existing map[ID]struct{}) ID {
	for {
		id := randomToken()
		if _, taken := existing[id]; !taken {
			return id
		}
	}
}

func randomToken() ID {
	buf := make([]byte, idLength)
	if _, err := crand.Read(buf); err != nil {
		// Keystream-quality randomness is not required for room ids;
		// fall back to the PRNG if the system reader is unavailable.
		for i := range buf {
			buf[i] = byte(rand.UintN(256))
		}
	}

	out := make([]byte, idLength)
	for i, b := range buf {
		out[i] = idCharset[int(b)%len(idCharset)]
	}
	return string(out)
}
