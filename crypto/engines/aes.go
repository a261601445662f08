// Package engines provides primitive block cipher engines: one block in,
// one block out, no chaining. AES, DES and TDES delegate their key schedule
// and block transform to the Go standard library, the equivalent of this
// family's system-crypto-provider delegation (OpenSSL EVP / Windows BCrypt)
// for algorithms the runtime already implements in constant time. SM4 has
// no stdlib provider and is computed in-process.
package engines

import (
	stdaes "crypto/aes"

	"github.com/tsduck-go/mpegcrypto/crypto"
	"github.com/tsduck-go/mpegcrypto/crypto/params"
)

// AESEngine wraps crypto/aes behind the crypto.BlockCipher contract. It
// accepts 16-byte keys (AES-128) or 32-byte keys (AES-256); AES-192 is not
// exercised anywhere in this module and is rejected for simplicity.
type AESEngine struct {
	forEncryption bool
	block         cipherBlock
	keySize       int
}

type cipherBlock interface {
	BlockSize() int
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

// NewAESEngine creates an uninitialized AES engine; call Init before use.
func NewAESEngine() *AESEngine {
	return &AESEngine{}
}

func (e *AESEngine) Init(forEncryption bool, parameters crypto.CipherParameters) {
	kp, ok := parameters.(*params.KeyParameter)
	if !ok {
		panic("AESEngine: Init requires a *params.KeyParameter")
	}
	key := kp.GetKey()
	if len(key) != 16 && len(key) != 32 {
		panic("AESEngine: invalid key size, must be 16 (AES-128) or 32 (AES-256) bytes")
	}
	block, err := stdaes.NewCipher(key)
	if err != nil {
		panic("AESEngine: " + err.Error())
	}
	e.forEncryption = forEncryption
	e.block = block
	e.keySize = len(key)
}

func (e *AESEngine) GetAlgorithmName() string {
	if e.keySize == 32 {
		return "AES-256"
	}
	return "AES-128"
}

// ValidKeySizes reports AES's two key lengths exercised by this module's
// scrambling catalog: 16 bytes (AES-128) and 32 (AES-256). AES-192
// is not part of the primitive catalog and is rejected.
func (e *AESEngine) ValidKeySizes() []int { return []int{16, 32} }

func (e *AESEngine) GetBlockSize() int {
	return stdaes.BlockSize
}

func (e *AESEngine) ProcessBlock(in []byte, inOff int, out []byte, outOff int) int {
	if e.block == nil {
		panic("AESEngine: not initialized")
	}
	bs := e.GetBlockSize()
	if e.forEncryption {
		e.block.Encrypt(out[outOff:outOff+bs], in[inOff:inOff+bs])
	} else {
		e.block.Decrypt(out[outOff:outOff+bs], in[inOff:inOff+bs])
	}
	return bs
}

func (e *AESEngine) Reset() {
	// crypto/aes's cipher.Block is stateless between blocks; nothing to do.
}

var _ crypto.BlockCipher = (*AESEngine)(nil)
