package digests

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// stdHashDigest adapts a Go stdlib hash.Hash to the crypto.Digest contract.
// SHA-1/256/512 all have stdlib providers, so they are thin adapters rather
// than reimplementations, mirroring the algorithm-provider delegation used
// for the primitive block ciphers in crypto/engines.
type stdHashDigest struct {
	name   string
	size   int
	newFn  func() hash.Hash
	hasher hash.Hash
}

func newStdHashDigest(name string, size int, newFn func() hash.Hash) *stdHashDigest {
	return &stdHashDigest{name: name, size: size, newFn: newFn, hasher: newFn()}
}

func (d *stdHashDigest) GetAlgorithmName() string { return d.name }

func (d *stdHashDigest) GetDigestSize() int { return d.size }

func (d *stdHashDigest) Update(in byte) {
	d.hasher.Write([]byte{in})
}

func (d *stdHashDigest) BlockUpdate(in []byte, inOff int, length int) {
	d.hasher.Write(in[inOff : inOff+length])
}

func (d *stdHashDigest) DoFinal(out []byte, outOff int) int {
	sum := d.hasher.Sum(nil)
	copy(out[outOff:], sum)
	d.hasher.Reset()
	return len(sum)
}

func (d *stdHashDigest) Reset() {
	d.hasher.Reset()
}

// SHA1Digest wraps crypto/sha1. SHA-1 is retained purely for compatibility
// with legacy scrambling deployments that reference it; nothing in the
// current scrambling catalog uses it directly.
type SHA1Digest struct{ *stdHashDigest }

func NewSHA1Digest() *SHA1Digest {
	return &SHA1Digest{newStdHashDigest("SHA-1", sha1.Size, sha1.New)}
}

// SHA256Digest wraps crypto/sha256. This is the hash the PRNGs in
// crypto/prng use for state mixing.
type SHA256Digest struct{ *stdHashDigest }

func NewSHA256Digest() *SHA256Digest {
	return &SHA256Digest{newStdHashDigest("SHA-256", sha256.Size, sha256.New)}
}

// SHA512Digest wraps crypto/sha512.
type SHA512Digest struct{ *stdHashDigest }

func NewSHA512Digest() *SHA512Digest {
	return &SHA512Digest{newStdHashDigest("SHA-512", sha512.Size, sha512.New)}
}
