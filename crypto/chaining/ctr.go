package chaining

import "github.com/tsduck-go/mpegcrypto/crypto"

// CTR is counter mode: a keystream is generated by enciphering successive
// counter values and XORed with the plaintext/ciphertext. Encrypt and
// Decrypt are identical operations. Unlike CBC/ECB, any message length is
// accepted; the final block may be a short residue.
type CTR struct {
	*Base
	counterBits int
}

// NewCTR wraps engine with CTR chaining. CounterBits defaults to half the
// IV width (block_size * 4 bits).
func NewCTR(engine crypto.BlockCipher) *CTR {
	bs := engine.GetBlockSize()
	props := Properties{
		Name:           engine.GetAlgorithmName(),
		BlockSize:      bs,
		MinKeySize:     0,
		MaxKeySize:     1 << 30,
		Chaining:       true,
		ChainingName:   "CTR",
		ResidueAllowed: true,
		MinMessageSize: 0,
		MinIVSize:      bs,
		MaxIVSize:      bs,
	}
	return &CTR{Base: NewBase(engine, props), counterBits: bs * 4}
}

// SetCounterBits overrides the width of the incrementing counter suffix
// within the IV, clamped to [0, block_size*8].
func (c *CTR) SetCounterBits(bits int) {
	max := c.Props.BlockSize * 8
	if bits < 0 {
		bits = 0
	}
	if bits > max {
		bits = max
	}
	c.counterBits = bits
}

func (c *CTR) CounterBits() int { return c.counterBits }

// incrementCounter adds 1 to the integer formed by the low `bits` bits of
// ctr, treated big-endian, wrapping silently within those bits without
// touching the fixed upper "nonce" bits.
func incrementCounter(ctr []byte, bits int) {
	if bits <= 0 {
		return
	}
	n := len(ctr)
	fullBytes := bits / 8
	remBits := bits % 8
	i := n - 1
	carry := byte(1)
	for count := 0; count < fullBytes && carry != 0; count++ {
		sum := int(ctr[i]) + int(carry)
		ctr[i] = byte(sum)
		carry = byte(sum >> 8)
		i--
	}
	if remBits > 0 && carry != 0 && i >= 0 {
		mask := byte(1<<uint(remBits)) - 1
		low := (ctr[i] & mask) + carry
		low &= mask
		ctr[i] = (ctr[i] &^ mask) | low
	}
}

// keystreamXOR implements the CTR core shared by Encrypt and Decrypt.
func (c *CTR) keystreamXOR(dst, src []byte) {
	bs := c.Props.BlockSize
	c.PrepareEngine(true) // CTR keystream always uses the forward transform.
	ctr := append([]byte(nil), c.CurrentIV()...)
	block := make([]byte, bs)
	off := 0
	for off < len(src) {
		c.Engine.ProcessBlock(ctr, 0, block, 0)
		n := bs
		if rem := len(src) - off; rem < n {
			n = rem
		}
		xorBytes(dst[off:off+n], src[off:off+n], block[:n])
		off += n
		incrementCounter(ctr, c.counterBits)
	}
}

func (c *CTR) Encrypt(dst, src []byte) (int, error) {
	if err := c.allowEncrypt(); err != nil {
		return 0, err
	}
	c.keystreamXOR(dst, src)
	return len(src), nil
}

func (c *CTR) Decrypt(dst, src []byte) (int, error) {
	if err := c.allowDecrypt(); err != nil {
		return 0, err
	}
	c.keystreamXOR(dst, src)
	return len(src), nil
}

var _ Cipher = (*CTR)(nil)
