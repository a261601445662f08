package engines

import (
	stddes "crypto/des"

	"github.com/tsduck-go/mpegcrypto/crypto"
	"github.com/tsduck-go/mpegcrypto/crypto/params"
)

// DESEngine wraps crypto/des single-key DES behind the BlockCipher contract.
// DES is retained only because the SCTE-52 scrambling profiles are
// specified over it, never because it is considered secure on its own.
type DESEngine struct {
	forEncryption bool
	block         cipherBlock
}

func NewDESEngine() *DESEngine {
	return &DESEngine{}
}

func (e *DESEngine) Init(forEncryption bool, parameters crypto.CipherParameters) {
	kp, ok := parameters.(*params.KeyParameter)
	if !ok {
		panic("DESEngine: Init requires a *params.KeyParameter")
	}
	key := kp.GetKey()
	if len(key) != 8 {
		panic("DESEngine: invalid key size, must be 8 bytes")
	}
	block, err := stddes.NewCipher(key)
	if err != nil {
		panic("DESEngine: " + err.Error())
	}
	e.forEncryption = forEncryption
	e.block = block
}

func (e *DESEngine) GetAlgorithmName() string { return "DES" }

// ValidKeySizes reports DES's single fixed 8-byte key length.
func (e *DESEngine) ValidKeySizes() []int { return []int{8} }

func (e *DESEngine) GetBlockSize() int { return stddes.BlockSize }

func (e *DESEngine) ProcessBlock(in []byte, inOff int, out []byte, outOff int) int {
	if e.block == nil {
		panic("DESEngine: not initialized")
	}
	bs := e.GetBlockSize()
	if e.forEncryption {
		e.block.Encrypt(out[outOff:outOff+bs], in[inOff:inOff+bs])
	} else {
		e.block.Decrypt(out[outOff:outOff+bs], in[inOff:inOff+bs])
	}
	return bs
}

func (e *DESEngine) Reset() {}

var _ crypto.BlockCipher = (*DESEngine)(nil)

// TDESEngine wraps crypto/des.NewTripleDESCipher (EDE, 24-byte key) behind
// the BlockCipher contract.
type TDESEngine struct {
	forEncryption bool
	block         cipherBlock
}

func NewTDESEngine() *TDESEngine {
	return &TDESEngine{}
}

func (e *TDESEngine) Init(forEncryption bool, parameters crypto.CipherParameters) {
	kp, ok := parameters.(*params.KeyParameter)
	if !ok {
		panic("TDESEngine: Init requires a *params.KeyParameter")
	}
	key := kp.GetKey()
	if len(key) != 24 {
		panic("TDESEngine: invalid key size, must be 24 bytes")
	}
	block, err := stddes.NewTripleDESCipher(key)
	if err != nil {
		panic("TDESEngine: " + err.Error())
	}
	e.forEncryption = forEncryption
	e.block = block
}

func (e *TDESEngine) GetAlgorithmName() string { return "TDES" }

// ValidKeySizes reports 3DES's single fixed 24-byte (EDE, three-key) length.
func (e *TDESEngine) ValidKeySizes() []int { return []int{24} }

func (e *TDESEngine) GetBlockSize() int { return stddes.BlockSize }

func (e *TDESEngine) ProcessBlock(in []byte, inOff int, out []byte, outOff int) int {
	if e.block == nil {
		panic("TDESEngine: not initialized")
	}
	bs := e.GetBlockSize()
	if e.forEncryption {
		e.block.Encrypt(out[outOff:outOff+bs], in[inOff:inOff+bs])
	} else {
		e.block.Decrypt(out[outOff:outOff+bs], in[inOff:inOff+bs])
	}
	return bs
}

func (e *TDESEngine) Reset() {}

var _ crypto.BlockCipher = (*TDESEngine)(nil)
