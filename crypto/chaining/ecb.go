package chaining

import "github.com/tsduck-go/mpegcrypto/crypto"

// ECB is Electronic Codebook: every block is ciphered independently. It is
// the least secure mode in this package (identical plaintext blocks produce
// identical ciphertext blocks) and exists here only because some legacy
// scrambling deployments use it; no profile in crypto/scramblers is built
// on it, and it must never be selected as a general-purpose default.
type ECB struct {
	*Base
}

// NewECB wraps engine with ECB chaining. IV is unused (min/max IV size 0).
func NewECB(engine crypto.BlockCipher) *ECB {
	bs := engine.GetBlockSize()
	props := Properties{
		Name:           engine.GetAlgorithmName(),
		BlockSize:      bs,
		MinKeySize:     0,
		MaxKeySize:     1 << 30,
		Chaining:       true,
		ChainingName:   "ECB",
		ResidueAllowed: false,
		MinMessageSize: bs,
		MinIVSize:      0,
		MaxIVSize:      0,
	}
	return &ECB{NewBase(engine, props)}
}

func (e *ECB) Encrypt(dst, src []byte) (int, error) {
	if err := e.allowEncrypt(); err != nil {
		return 0, err
	}
	bs := e.Props.BlockSize
	if len(src) == 0 || len(src)%bs != 0 {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, e.Props.Name)
	}
	e.PrepareEngine(true)
	for off := 0; off < len(src); off += bs {
		e.Engine.ProcessBlock(src, off, dst, off)
	}
	return len(src), nil
}

func (e *ECB) Decrypt(dst, src []byte) (int, error) {
	if err := e.allowDecrypt(); err != nil {
		return 0, err
	}
	bs := e.Props.BlockSize
	if len(src) == 0 || len(src)%bs != 0 {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, e.Props.Name)
	}
	e.PrepareEngine(false)
	for off := 0; off < len(src); off += bs {
		e.Engine.ProcessBlock(src, off, dst, off)
	}
	return len(src), nil
}

var _ Cipher = (*ECB)(nil)
