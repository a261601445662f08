package chaining

import "github.com/tsduck-go/mpegcrypto/crypto"

// CTS3 is "ECB-CTS" (the variant commonly attributed to Wikipedia's
// description of ciphertext stealing over ECB rather than CBC): blocks
// before the last two are enciphered independently (no chaining, no IV);
// the final two blocks steal ciphertext bits exactly as CTS1 does, except
// the quantity XORed into the residue block is nothing (ECB has no running
// chain value) — the tail of the penultimate block's full encryption is
// used directly as padding instead of zero-padding-then-XOR.
type CTS3 struct {
	*Base
}

func NewCTS3(engine crypto.BlockCipher) *CTS3 {
	bs := engine.GetBlockSize()
	props := Properties{
		Name:           engine.GetAlgorithmName(),
		BlockSize:      bs,
		MinKeySize:     0,
		MaxKeySize:     1 << 30,
		Chaining:       true,
		ChainingName:   "CTS3",
		ResidueAllowed: true,
		MinMessageSize: bs + 1,
		MinIVSize:      0,
		MaxIVSize:      0,
	}
	return &CTS3{NewBase(engine, props)}
}

func (c *CTS3) split(n int) (fullBlocks, residue int) {
	bs := c.Props.BlockSize
	residue = n % bs
	if residue == 0 {
		residue = bs
	}
	fullBlocks = (n - residue) / bs
	return
}

func (c *CTS3) Encrypt(dst, src []byte) (int, error) {
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
	off := 0
	for i := 0; i < full-1; i++ {
		c.Engine.ProcessBlock(src, off, dst, off)
		off += bs
	}
	// E = Encrypt(P_{n-1}) plain ECB, no chaining value involved.
	e := make([]byte, bs)
	c.Engine.ProcessBlock(src, off, e, 0)

	// C_{n-1} = Encrypt(P_n || E[r:bs])
	block := make([]byte, bs)
	copy(block, src[off+bs:off+bs+r])
	copy(block[r:], e[r:])
	cLast1 := make([]byte, bs)
	c.Engine.ProcessBlock(block, 0, cLast1, 0)

	copy(dst[off:off+bs], cLast1)
	copy(dst[off+bs:off+bs+r], e[:r])
	return n, nil
}

func (c *CTS3) Decrypt(dst, src []byte) (int, error) {
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
	off := 0
	for i := 0; i < full-1; i++ {
		c.Engine.ProcessBlock(src, off, dst, off)
		off += bs
	}

	cLast1 := append([]byte(nil), src[off:off+bs]...)
	eHead := append([]byte(nil), src[off+bs:off+bs+r]...)

	d := make([]byte, bs)
	c.Engine.ProcessBlock(cLast1, 0, d, 0)
	// d == P_n || E[r:bs]
	pn := d[:r]
	eTail := d[r:]

	e := make([]byte, bs)
	copy(e[:r], eHead)
	copy(e[r:], eTail)
	pLast1 := make([]byte, bs)
	c.Engine.ProcessBlock(e, 0, pLast1, 0)

	copy(dst[off:off+bs], pLast1)
	copy(dst[off+bs:off+bs+r], pn)
	return n, nil
}

var _ Cipher = (*CTS3)(nil)
