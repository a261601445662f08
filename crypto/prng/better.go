package prng

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/tsduck-go/mpegcrypto/crypto"
)

// betterPRNGKey is the fixed AES-128 key embedded for BetterGenerator's
// entropy-mixing step. It provides domain separation for the post-
// processing network, not secrecy: the system entropy source is what
// carries the actual unpredictability.
var betterPRNGKey = [16]byte{
	0x42, 0x65, 0x74, 0x74, 0x65, 0x72, 0x50, 0x52,
	0x4E, 0x47, 0x2D, 0x74, 0x73, 0x64, 0x75, 0x63,
}

type systemEntropySource struct{}

func (systemEntropySource) Name() string { return "crypto/rand" }

func (systemEntropySource) Seed([]byte) error { return nil }

func (systemEntropySource) Ready() bool { return true }

func (systemEntropySource) Read(p []byte) error {
	_, err := io.ReadFull(rand.Reader, p)
	return err
}

// BetterGenerator is a process-wide, mutex-serialized entropy-mixing
// generator: each 16-byte output block combines fresh system entropy with
// a persisted 16-byte state carried across runs in an entropy file, so the
// generator's output is unpredictable even immediately after process
// restart. Known, accepted limitations: the entropy file is rewritten on
// every 16-byte block (hurting throughput for bulk generation), and
// concurrent processes sharing the same file race on writes.
type BetterGenerator struct {
	mu     sync.Mutex
	state  [16]byte
	loaded bool
	source crypto.RandomGenerator
	path   string
	pool   []byte
}

var (
	betterOnce      sync.Once
	betterSingleton *BetterGenerator
)

// Option configures the BetterGenerator singleton. Options apply
// immediately and affect subsequent generation, not past output.
type Option func(*BetterGenerator)

// WithEntropySource replaces the default crypto/rand system entropy source.
// Useful for batch TS-file processing or fuzzing harnesses that want to
// avoid repeated crypto/rand syscalls; see ChaCha20Source and DRBGSource.
func WithEntropySource(source crypto.RandomGenerator) Option {
	return func(b *BetterGenerator) { b.source = source }
}

// WithEntropyFilePath overrides the default $HOME/.tsseed path, primarily
// for testing.
func WithEntropyFilePath(path string) Option {
	return func(b *BetterGenerator) { b.path = path }
}

// Better returns the process-wide BetterGenerator singleton, applying any
// options given. Options from later calls apply to all subsequent use of
// the singleton, since there is exactly one instance per process.
func Better(opts ...Option) *BetterGenerator {
	betterOnce.Do(func() {
		betterSingleton = &BetterGenerator{
			source: systemEntropySource{},
			path:   entropyFilePath(),
		}
	})
	betterSingleton.mu.Lock()
	for _, opt := range opts {
		opt(betterSingleton)
	}
	betterSingleton.mu.Unlock()
	return betterSingleton
}

func entropyFilePath() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".tsseed")
	}
	return filepath.Join(os.TempDir(), ".tsseed")
}

func (b *BetterGenerator) Name() string { return "BetterPRNG" }

func (b *BetterGenerator) Ready() bool { return true }

// Seed mixes additional entropy into the persisted state. BetterGenerator
// does not require seeding before use (it self-seeds from the entropy file
// or system entropy on first Read), but callers with their own entropy to
// contribute may call Seed to fold it in immediately.
func (b *BetterGenerator) Seed(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureLoadedLocked(); err != nil {
		return err
	}
	h := sha256.New()
	h.Write(data)
	h.Write(b.state[:])
	sum := h.Sum(nil)
	copy(b.state[:], sum[:16])
	return b.persistLocked()
}

func (b *BetterGenerator) ensureLoadedLocked() error {
	if b.loaded {
		return nil
	}
	data, err := os.ReadFile(b.path)
	if err == nil && len(data) == 16 {
		copy(b.state[:], data)
	} else if err := b.source.Read(b.state[:]); err != nil {
		return crypto.WrapError(crypto.ErrProviderFailure, err, "BetterPRNG: reading initial entropy")
	}
	b.loaded = true
	return nil
}

func (b *BetterGenerator) persistLocked() error {
	if err := os.WriteFile(b.path, b.state[:], 0o600); err != nil {
		return crypto.WrapError(crypto.ErrProviderFailure, err, "BetterPRNG: persisting entropy state")
	}
	return nil
}

// generateBlockLocked runs one iteration of the seven-step block
// generation loop and returns the 16 bytes emitted to the output pool.
func (b *BetterGenerator) generateBlockLocked() ([16]byte, error) {
	var out [16]byte
	block, err := aes.NewCipher(betterPRNGKey[:])
	if err != nil {
		return out, crypto.WrapError(crypto.ErrProviderFailure, err, "BetterPRNG: AES setup")
	}

	var r1, r5 [16]byte
	if err := b.source.Read(r1[:]); err != nil {
		return out, crypto.WrapError(crypto.ErrProviderFailure, err, "BetterPRNG: entropy read")
	}
	var r2 [16]byte
	block.Encrypt(r2[:], r1[:])

	var r3 [16]byte
	for i := range r3 {
		r3[i] = r2[i] ^ b.state[i]
	}
	var r4 [16]byte
	block.Encrypt(r4[:], r3[:])
	out = r4

	if err := b.source.Read(r5[:]); err != nil {
		return out, crypto.WrapError(crypto.ErrProviderFailure, err, "BetterPRNG: entropy read")
	}
	var mix [16]byte
	for i := range mix {
		mix[i] = r5[i] ^ r4[i] ^ b.state[i]
	}
	sum := sha256.Sum256(mix[:])
	copy(b.state[:], sum[:16])

	if err := b.persistLocked(); err != nil {
		return out, err
	}
	return out, nil
}

// Read fills out with generator output, generating 16-byte blocks as
// needed. Safe for concurrent use.
func (b *BetterGenerator) Read(out []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureLoadedLocked(); err != nil {
		return err
	}
	for len(out) > 0 {
		if len(b.pool) == 0 {
			blk, err := b.generateBlockLocked()
			if err != nil {
				return err
			}
			b.pool = append(b.pool, blk[:]...)
		}
		n := copy(out, b.pool)
		out = out[n:]
		b.pool = b.pool[n:]
	}
	return nil
}

var _ crypto.RandomGenerator = (*BetterGenerator)(nil)
