package prng

import (
	"io"

	ctrdrbg "github.com/sixafter/aes-ctr-drbg"
	chachaprng "github.com/sixafter/prng-chacha"

	"github.com/tsduck-go/mpegcrypto/crypto"
)

// ChaCha20Source adapts github.com/sixafter/prng-chacha's pooled
// ChaCha20-based reader to the crypto.RandomGenerator contract, for use as
// BetterGenerator's system entropy source in batch jobs that would
// otherwise make many repeated crypto/rand syscalls.
type ChaCha20Source struct {
	reader chachaprng.Interface
}

// NewChaCha20Source constructs a ChaCha20-backed entropy source.
func NewChaCha20Source() (*ChaCha20Source, error) {
	r, err := chachaprng.NewReader()
	if err != nil {
		return nil, crypto.WrapError(crypto.ErrProviderFailure, err, "prng-chacha: NewReader")
	}
	return &ChaCha20Source{reader: r}, nil
}

func (s *ChaCha20Source) Name() string { return "chacha20" }

func (s *ChaCha20Source) Seed([]byte) error { return nil }

func (s *ChaCha20Source) Ready() bool { return s.reader != nil }

func (s *ChaCha20Source) Read(p []byte) error {
	_, err := io.ReadFull(s.reader, p)
	return err
}

var _ crypto.RandomGenerator = (*ChaCha20Source)(nil)

// DRBGSource adapts github.com/sixafter/aes-ctr-drbg's AES-CTR DRBG
// reader to the crypto.RandomGenerator contract, demonstrating that
// BetterGenerator's post-processing loop is agnostic to which raw entropy
// feed it consumes.
type DRBGSource struct {
	reader io.Reader
}

// NewDRBGSource constructs an AES-CTR-DRBG-backed entropy source.
func NewDRBGSource() (*DRBGSource, error) {
	r, err := ctrdrbg.NewReader()
	if err != nil {
		return nil, crypto.WrapError(crypto.ErrProviderFailure, err, "aes-ctr-drbg: NewReader")
	}
	return &DRBGSource{reader: r}, nil
}

func (s *DRBGSource) Name() string { return "aes-ctr-drbg" }

func (s *DRBGSource) Seed([]byte) error { return nil }

func (s *DRBGSource) Ready() bool { return s.reader != nil }

func (s *DRBGSource) Read(p []byte) error {
	_, err := io.ReadFull(s.reader, p)
	return err
}

var _ crypto.RandomGenerator = (*DRBGSource)(nil)
