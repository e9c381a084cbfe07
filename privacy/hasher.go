// Package privacy derives stable, non-reversible sender identifiers so raw
// phone numbers never reach storage.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher computes a one-way digest over salt + phone. The same salt keeps
// repeated senders correlatable; rotating the salt severs correlation across
// epochs.
type Hasher struct {
	Salt string
}

func NewHasher(salt string) Hasher {
	return Hasher{Salt: salt}
}

// Hash returns the hex digest for phone, or the empty string when phone is
// absent: absent data is never hashed.
func (h Hasher) Hash(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	digest := sha256.Sum256([]byte(h.Salt + phone))
	return hex.EncodeToString(digest[:])
}
