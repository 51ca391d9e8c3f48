// Package cache provides the memoization used by the struct compiler.
// It implements content hashing for cache keys and a namespaced, concurrency
// safe fetch-or-store cache.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hasher computes content hashes for cache keys
type Hasher struct{}

// NewHasher creates a new hasher
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashParts hashes an ordered tuple. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") never collide.
func (h *Hasher) HashParts(parts ...string) string {
	hasher := sha256.New()
	for _, p := range parts {
		var size [8]byte
		binary.LittleEndian.PutUint64(size[:], uint64(len(p)))
		hasher.Write(size[:])
		hasher.Write([]byte(p))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
