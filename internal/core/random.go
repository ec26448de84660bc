package core

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"

	"github.com/brianvoe/gofakeit/v7"
)

// seedStream is mixed into the second PCG word so a seed of 0 still
// produces a well-spread stream.
const seedStream = 0x9E3779B97F4A7C15

// RandomSource is the per-generation pseudorandom generator. It is not safe
// for concurrent use and must never be shared between generations.
type RandomSource struct {
	seed  uint64
	rng   *mathrand.Rand
	faker *gofakeit.Faker
}

// NewRandomSource returns a source fixed by seed. Two sources built from the
// same seed yield the same sequence.
func NewRandomSource(seed uint64) *RandomSource {
	pcg := mathrand.NewPCG(seed, seed^seedStream)
	return &RandomSource{
		seed: seed,
		rng:  mathrand.New(pcg),
		// Generators are driven from a single goroutine, no lock needed.
		faker: gofakeit.NewFaker(pcg, false),
	}
}

// NewEntropySource seeds a source from the system entropy pool.
// The drawn seed is kept so the output can be reproduced later.
func NewEntropySource() *RandomSource {
	return NewRandomSource(EntropySeed())
}

// EntropySeed draws a 64-bit seed from crypto/rand.
func EntropySeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic("core: reading entropy: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Seed returns the seed the source was built from.
func (s *RandomSource) Seed() uint64 { return s.seed }

// Faker exposes the fake-data provider bound to this source.
func (s *RandomSource) Faker() *gofakeit.Faker { return s.faker }

// IntN returns a uniform int in [0, n).
func (s *RandomSource) IntN(n int) int { return s.rng.IntN(n) }

// Float64 returns a uniform float in [0.0, 1.0).
func (s *RandomSource) Float64() float64 { return s.rng.Float64() }

// Int64N returns a uniform int64 in [0, n).
func (s *RandomSource) Int64N(n int64) int64 { return s.rng.Int64N(n) }

// Choice picks one element of options.
func (s *RandomSource) Choice(options []string) string {
	return options[s.rng.IntN(len(options))]
}
