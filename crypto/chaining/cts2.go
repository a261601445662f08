package chaining

import "github.com/tsduck-go/mpegcrypto/crypto"

// CTS2 is the NIST-style ciphertext-stealing variant. Unlike CTS1, a
// message whose length is already a multiple of block_size is accepted and
// processed as plain CBC (no stealing). For a non-aligned message the same
// cryptographic construction as CTS1 is used for the final two blocks, but
// the output is NOT swapped: the truncated block stays in the penultimate
// position and the full stolen block is emitted last.
type CTS2 struct {
	*Base
}

func NewCTS2(engine crypto.BlockCipher) *CTS2 {
	bs := engine.GetBlockSize()
	props := Properties{
		Name:           engine.GetAlgorithmName(),
		BlockSize:      bs,
		MinKeySize:     0,
		MaxKeySize:     1 << 30,
		Chaining:       true,
		ChainingName:   "CTS2",
		ResidueAllowed: true,
		MinMessageSize: bs,
		MinIVSize:      bs,
		MaxIVSize:      bs,
	}
	return &CTS2{NewBase(engine, props)}
}

func (c *CTS2) Encrypt(dst, src []byte) (int, error) {
	if err := c.allowEncrypt(); err != nil {
		return 0, err
	}
	bs := c.Props.BlockSize
	n := len(src)
	if n < bs {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, c.Props.Name)
	}
	c.PrepareEngine(true)
	prev := append([]byte(nil), c.CurrentIV()...)
	tmp := make([]byte, bs)

	if n%bs == 0 {
		for off := 0; off < n; off += bs {
			xorBytes(tmp, src[off:off+bs], prev)
			c.Engine.ProcessBlock(tmp, 0, dst, off)
			prev = append(prev[:0], dst[off:off+bs]...)
		}
		return n, nil
	}

	r := n % bs
	full := (n - r) / bs // full >= 1 since MinMessageSize == bs and r>0 implies n > bs
	off := 0
	for i := 0; i < full-1; i++ {
		xorBytes(tmp, src[off:off+bs], prev)
		c.Engine.ProcessBlock(tmp, 0, dst, off)
		prev = append(prev[:0], dst[off:off+bs]...)
		off += bs
	}
	pLast1 := src[off : off+bs]
	cLast1 := make([]byte, bs)
	xorBytes(tmp, pLast1, prev)
	c.Engine.ProcessBlock(tmp, 0, cLast1, 0)

	padded := make([]byte, bs)
	copy(padded, src[off+bs:off+bs+r])
	xorBytes(tmp, padded, cLast1)
	e := make([]byte, bs)
	c.Engine.ProcessBlock(tmp, 0, e, 0)

	// No swap: truncated block first, full stolen block last.
	copy(dst[off:off+r], cLast1[:r])
	copy(dst[off+r:off+r+bs], e)
	return n, nil
}

func (c *CTS2) Decrypt(dst, src []byte) (int, error) {
	if err := c.allowDecrypt(); err != nil {
		return 0, err
	}
	bs := c.Props.BlockSize
	n := len(src)
	if n < bs {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, c.Props.Name)
	}
	c.PrepareEngine(false)
	prev := append([]byte(nil), c.CurrentIV()...)
	tmp := make([]byte, bs)

	if n%bs == 0 {
		for off := 0; off < n; off += bs {
			cipherBlock := append([]byte(nil), src[off:off+bs]...)
			c.Engine.ProcessBlock(cipherBlock, 0, tmp, 0)
			xorBytes(dst[off:off+bs], tmp, prev)
			prev = append(prev[:0], cipherBlock...)
		}
		return n, nil
	}

	r := n % bs
	full := (n - r) / bs
	off := 0
	for i := 0; i < full-1; i++ {
		cipherBlock := append([]byte(nil), src[off:off+bs]...)
		c.Engine.ProcessBlock(cipherBlock, 0, tmp, 0)
		xorBytes(dst[off:off+bs], tmp, prev)
		prev = append(prev[:0], cipherBlock...)
		off += bs
	}

	truncated := append([]byte(nil), src[off:off+r]...)
	e := append([]byte(nil), src[off+r:off+r+bs]...)

	dBlock := make([]byte, bs)
	c.Engine.ProcessBlock(e, 0, dBlock, 0)
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

var _ Cipher = (*CTS2)(nil)
