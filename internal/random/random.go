// Package random provides the seedable PRNG every provider draws from.
//
// A generation run owns exactly one Randomizer per entity. Providers must make
// one draw per logical random decision so that a seed reproduces the same rows
// across runs.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	special      = "!@#$%^&*()-_=+[]{};:,.<>?/"
)

type Randomizer struct {
	seed int64
	r    *rand.Rand
}

// New returns a Randomizer seeded with *seed, or with an entropy-derived seed
// when seed is nil. The effective seed is available from Seed.
func New(seed *int64) *Randomizer {
	if seed != nil {
		return NewSeeded(*seed)
	}
	return NewSeeded(EntropySeed())
}

func NewSeeded(seed int64) *Randomizer {
	return &Randomizer{
		seed: seed,
		r:    rand.New(rand.NewSource(seed)),
	}
}

// EntropySeed returns a non-deterministic seed, falling back to the clock if
// the system entropy source is unavailable.
func EntropySeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (r *Randomizer) Seed() int64 {
	return r.seed
}

// NextInt returns an int in [min, max). It panics if max <= min.
func (r *Randomizer) NextInt(min, max int) int {
	if max <= min {
		panic("random: NextInt called with max <= min")
	}
	return min + r.r.Intn(max-min)
}

// NextInt64 returns an int64 in [min, max). It panics if max <= min.
func (r *Randomizer) NextInt64(min, max int64) int64 {
	if max <= min {
		panic("random: NextInt64 called with max <= min")
	}
	return min + r.r.Int63n(max-min)
}

// NextFloat returns a float64 in [0.0, 1.0).
func (r *Randomizer) NextFloat() float64 {
	return r.r.Float64()
}

func (r *Randomizer) NextNormal() float64 {
	return r.r.NormFloat64()
}

// NextString returns length characters drawn from letters and digits, plus
// punctuation when includeSpecial is set. One draw per character.
func (r *Randomizer) NextString(length int, includeSpecial bool) string {
	alphabet := alphanumeric
	if includeSpecial {
		alphabet += special
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[r.r.Intn(len(alphabet))]
	}
	return string(b)
}

// Bytes fills a fresh slice of n pseudo-random bytes.
func (r *Randomizer) Bytes(n int) []byte {
	b := make([]byte, n)
	r.r.Read(b)
	return b
}

// WeightedIndex picks an index with probability proportional to its weight
// using a single draw. Non-positive weights are never chosen. It returns -1
// if no weight is positive.
func (r *Randomizer) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}

	x := r.r.Float64() * total
	cum := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if x < cum {
			return i
		}
	}
	return last
}
