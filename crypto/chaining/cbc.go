package chaining

import "github.com/tsduck-go/mpegcrypto/crypto"

// CBC is Cipher Block Chaining: each plaintext block is XORed with the
// previous ciphertext block (or the IV, for the first block) before being
// enciphered. Every Encrypt/Decrypt call processes one complete logical
// message starting from the currently installed IV; chaining state does not
// carry across calls.
type CBC struct {
	*Base
}

// NewCBC wraps engine with CBC chaining and a user-settable IV of exactly
// one block.
func NewCBC(engine crypto.BlockCipher) *CBC {
	bs := engine.GetBlockSize()
	props := Properties{
		Name:           engine.GetAlgorithmName(),
		BlockSize:      bs,
		MinKeySize:     0,
		MaxKeySize:     1 << 30,
		Chaining:       true,
		ChainingName:   "CBC",
		ResidueAllowed: false,
		MinMessageSize: bs,
		MinIVSize:      bs,
		MaxIVSize:      bs,
	}
	return &CBC{NewBase(engine, props)}
}

// NewCBCFixedIV wraps engine with CBC chaining under a standard-mandated
// constant IV (as DVB-CISSA requires). The IV cannot be changed by the caller.
func NewCBCFixedIV(engine crypto.BlockCipher, iv []byte) *CBC {
	c := NewCBC(engine)
	c.Props.FixedIV = append([]byte(nil), iv...)
	c.Props.ChainingName = "CBC-fixedIV"
	copy(c.CurrentIV(), iv)
	return c
}

func (c *CBC) Encrypt(dst, src []byte) (int, error) {
	if err := c.allowEncrypt(); err != nil {
		return 0, err
	}
	bs := c.Props.BlockSize
	if len(src) == 0 || len(src)%bs != 0 {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, c.Props.Name)
	}
	c.PrepareEngine(true)
	prev := append([]byte(nil), c.CurrentIV()...)
	tmp := make([]byte, bs)
	for off := 0; off < len(src); off += bs {
		xorBytes(tmp, src[off:off+bs], prev)
		c.Engine.ProcessBlock(tmp, 0, dst, off)
		prev = append(prev[:0], dst[off:off+bs]...)
	}
	return len(src), nil
}

func (c *CBC) Decrypt(dst, src []byte) (int, error) {
	if err := c.allowDecrypt(); err != nil {
		return 0, err
	}
	bs := c.Props.BlockSize
	if len(src) == 0 || len(src)%bs != 0 {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, c.Props.Name)
	}
	c.PrepareEngine(false)
	prev := append([]byte(nil), c.CurrentIV()...)
	curCipher := make([]byte, bs)
	plain := make([]byte, bs)
	for off := 0; off < len(src); off += bs {
		// Save the ciphertext block before decrypting in case dst and src
		// alias: ProcessBlock may overwrite src[off:off+bs] through dst.
		copy(curCipher, src[off:off+bs])
		c.Engine.ProcessBlock(curCipher, 0, plain, 0)
		xorBytes(dst[off:off+bs], plain, prev)
		prev = append(prev[:0], curCipher...)
	}
	return len(src), nil
}

var _ Cipher = (*CBC)(nil)
