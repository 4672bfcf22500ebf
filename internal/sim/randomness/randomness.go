// Package randomness derives reproducible seeds and seeded generators.
//
// A seed depends only on (sender, block time, configured entropy), so replaying the
// same request against the same state draws the same pets and quest rerolls.
package randomness

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
)

// GenerateSeed hashes sender ‖ be64(blockTime) ‖ entropy and returns the first
// eight digest bytes as a big-endian integer.
func GenerateSeed(sender string, blockTime uint64, entropy []byte) uint64 {
	h := sha256.New()
	h.Write([]byte(sender))
	var t [8]byte
	binary.BigEndian.PutUint64(t[:], blockTime)
	h.Write(t[:])
	h.Write(entropy)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// Rand is a seeded generator with inclusive-range helpers.
type Rand struct {
	r *rand.Rand
}

func New(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntRange returns a uniform value in [lo, hi]. It panics if hi < lo.
func (r *Rand) IntRange(lo, hi int) int {
	if hi < lo {
		panic("randomness: empty range")
	}
	return lo + r.r.IntN(hi-lo+1)
}

// Uint64Range returns a uniform value in [lo, hi]. It panics if hi < lo.
func (r *Rand) Uint64Range(lo, hi uint64) uint64 {
	if hi < lo {
		panic("randomness: empty range")
	}
	span := hi - lo
	if span == ^uint64(0) {
		return r.r.Uint64()
	}
	return lo + r.r.Uint64N(span+1)
}
