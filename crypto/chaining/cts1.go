package chaining

import "github.com/tsduck-go/mpegcrypto/crypto"

// CTS1 implements the Schneier/RFC-2040 ciphertext-stealing variant over
// CBC. Full blocks before the last two are processed exactly as CBC. The
// final (possibly partial, 1..B bytes) block steals ciphertext bits from
// the second-to-last block rather than being padded:
//
//	E          = Encrypt(zero_pad(P_n) XOR C_{n-1})   // "new last-full block"
//	output     = C_1 .. C_{n-2}, E (penultimate), C_{n-1}[0:r] (final, truncated)
//
// where C_{n-1} is the ordinary CBC ciphertext of the second-to-last full
// plaintext block and r is the residue length.
type CTS1 struct {
	*Base
}

func NewCTS1(engine crypto.BlockCipher) *CTS1 {
	bs := engine.GetBlockSize()
	props := Properties{
		Name:           engine.GetAlgorithmName(),
		BlockSize:      bs,
		MinKeySize:     0,
		MaxKeySize:     1 << 30,
		Chaining:       true,
		ChainingName:   "CTS1",
		ResidueAllowed: true,
		MinMessageSize: bs + 1,
		MinIVSize:      bs,
		MaxIVSize:      bs,
	}
	return &CTS1{NewBase(engine, props)}
}

// split returns (fullBlocks, residue) where residue is in [1, bs], such
// that fullBlocks*bs + residue == n and fullBlocks >= 1, matching
// MinMessageSize = bs+1.
func (c *CTS1) split(n int) (fullBlocks, residue int) {
	bs := c.Props.BlockSize
	residue = n % bs
	if residue == 0 {
		residue = bs
	}
	fullBlocks = (n - residue) / bs
	return
}

func (c *CTS1) Encrypt(dst, src []byte) (int, error) {
	if err := c.allowEncrypt(); err != nil {
		return 0, err
	}
	bs := c.Props.BlockSize
	n := len(src)
	if n < bs+1 {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, c.Props.Name)
	}
	full, r := c.split(n)
	c.PrepareEngine(true)
	prev := append([]byte(nil), c.CurrentIV()...)
	tmp := make([]byte, bs)
	// Blocks 1..full-1 (i.e. everything before the second-to-last full
	// block) proceed exactly as CBC.
	off := 0
	for i := 0; i < full-1; i++ {
		xorBytes(tmp, src[off:off+bs], prev)
		c.Engine.ProcessBlock(tmp, 0, dst, off)
		prev = append(prev[:0], dst[off:off+bs]...)
		off += bs
	}
	// Second-to-last full plaintext block P_{n-1} at src[off:off+bs].
	pLast1 := src[off : off+bs]
	cLast1 := make([]byte, bs)
	xorBytes(tmp, pLast1, prev)
	c.Engine.ProcessBlock(tmp, 0, cLast1, 0)

	// Final residue block, zero-padded.
	padded := make([]byte, bs)
	copy(padded, src[off+bs:off+bs+r])
	xorBytes(tmp, padded, cLast1)
	e := make([]byte, bs)
	c.Engine.ProcessBlock(tmp, 0, e, 0)

	copy(dst[off:off+bs], e)
	copy(dst[off+bs:off+bs+r], cLast1[:r])
	return n, nil
}

func (c *CTS1) Decrypt(dst, src []byte) (int, error) {
	if err := c.allowDecrypt(); err != nil {
		return 0, err
	}
	bs := c.Props.BlockSize
	n := len(src)
	if n < bs+1 {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, c.Props.Name)
	}
	full, r := c.split(n)
	c.PrepareEngine(false)
	prev := append([]byte(nil), c.CurrentIV()...)
	tmp := make([]byte, bs)
	off := 0
	for i := 0; i < full-1; i++ {
		cipherBlock := append([]byte(nil), src[off:off+bs]...)
		c.Engine.ProcessBlock(cipherBlock, 0, tmp, 0)
		xorBytes(dst[off:off+bs], tmp, prev)
		prev = append(prev[:0], cipherBlock...)
		off += bs
	}

	e := append([]byte(nil), src[off:off+bs]...)
	truncated := append([]byte(nil), src[off+bs:off+bs+r]...)

	dBlock := make([]byte, bs)
	c.Engine.ProcessBlock(e, 0, dBlock, 0)
	// dBlock = zero_pad(P_n) XOR C_{n-1}
	pn := make([]byte, r)
	xorBytes(pn, dBlock[:r], truncated)

	cLast1 := make([]byte, bs)
	copy(cLast1[:r], truncated)
	copy(cLast1[r:], dBlock[r:])

	cLast1Copy := append([]byte(nil), cLast1...)
	c.Engine.ProcessBlock(cLast1Copy, 0, tmp, 0)
	xorBytes(dst[off:off+bs], tmp, prev)
	copy(dst[off+bs:off+bs+r], pn)
	return n, nil
}

var _ Cipher = (*CTS1)(nil)
