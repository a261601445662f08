// Package prng provides the two pseudo-random generators this module's
// control-word handling needs: a purely deterministic, seed-reproducible
// generator for tests and simulation, and an entropy-mixing generator
// backed by a persisted seed file for real key generation.
package prng

import (
	"crypto/aes"
	"crypto/sha256"

	"github.com/tsduck-go/mpegcrypto/crypto"
)

// MinSeedSize is the minimum accumulated seed material required before
// ReproduciblePRNG becomes ready.
const MinSeedSize = 64

// ReproduciblePRNG derives an arbitrarily long output stream from an
// accumulated seed via alternating AES-128 and SHA-256 steps. Two
// instances seeded with the same bytes, in the same or different seed()
// calls, produce byte-identical streams — the point of the design is
// reproducibility for testing and simulation, not unpredictability.
type ReproduciblePRNG struct {
	accumulated []byte
	state       [32]byte // state[0:16]=state1, state[16:32]=state2
	cursor      int
	pendingHash bool
	ready       bool
}

// NewReproduciblePRNG constructs an unseeded generator. Call Seed one or
// more times until the accumulated length reaches MinSeedSize before Read.
func NewReproduciblePRNG() *ReproduciblePRNG {
	return &ReproduciblePRNG{cursor: 16}
}

func (p *ReproduciblePRNG) Name() string { return "ReproduciblePRNG" }

func (p *ReproduciblePRNG) Ready() bool { return p.ready }

// Seed accumulates seed material. Once the accumulated length reaches
// MinSeedSize, the generator initializes state = SHA-256(accumulated) and
// becomes ready. Calling Seed again after that point re-seeds: state =
// SHA-256(data || state), and the read cursor resets so the next byte
// read derives fresh output rather than continuing the old stream.
func (p *ReproduciblePRNG) Seed(data []byte) error {
	if p.ready {
		h := sha256.New()
		h.Write(data)
		h.Write(p.state[:])
		sum := h.Sum(nil)
		copy(p.state[:], sum)
		p.cursor = 16
		p.pendingHash = false
		return nil
	}
	p.accumulated = append(p.accumulated, data...)
	if len(p.accumulated) >= MinSeedSize {
		sum := sha256.Sum256(p.accumulated)
		copy(p.state[:], sum[:])
		p.cursor = 16
		p.pendingHash = false
		p.ready = true
	}
	return nil
}

// Read fills out with generator output. It returns SEED_INSUFFICIENT if
// called before Ready.
func (p *ReproduciblePRNG) Read(out []byte) error {
	if !p.ready {
		return crypto.NewError(crypto.ErrSeedInsufficient, "ReproduciblePRNG")
	}
	for len(out) > 0 {
		if p.cursor >= 16 {
			if p.pendingHash {
				sum := sha256.Sum256(p.state[:])
				copy(p.state[:], sum[:])
				p.pendingHash = false
			}
			block, err := aes.NewCipher(p.state[16:32])
			if err != nil {
				return crypto.WrapError(crypto.ErrProviderFailure, err, "ReproduciblePRNG: AES step")
			}
			var refreshed [16]byte
			block.Encrypt(refreshed[:], p.state[0:16])
			copy(p.state[0:16], refreshed[:])
			p.cursor = 0
		}
		n := copy(out, p.state[p.cursor:16])
		out = out[n:]
		p.cursor += n
		if p.cursor == 16 {
			p.pendingHash = true
		}
	}
	return nil
}

var _ crypto.RandomGenerator = (*ReproduciblePRNG)(nil)
