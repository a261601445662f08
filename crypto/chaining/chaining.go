// Package chaining implements whole-buffer, residue-capable chaining modes
// over a primitive crypto.BlockCipher: ECB, CBC, CTR, the four ciphertext-
// stealing variants CTS1-CTS4, and DVS-042. Rather than following the
// one-block-at-a-time crypto.BlockCipher contract, every mode
// here operates on an entire logical message in one call and accepts
// trailing residue shorter than a block according to each mode's own
// convention — the shape MPEG-TS packet scrambling needs, where the
// "message" is a whole payload and padding is never available.
package chaining

import (
	"github.com/tsduck-go/mpegcrypto/crypto"
	"github.com/tsduck-go/mpegcrypto/crypto/params"
)

// Properties describes the fixed characteristics of one (primitive, mode)
// combination. Constructed once per cipher instance; read-only thereafter.
type Properties struct {
	Name           string
	BlockSize      int
	MinKeySize     int
	MaxKeySize     int
	Chaining       bool
	ChainingName   string
	ResidueAllowed bool
	MinMessageSize int
	MinIVSize      int
	MaxIVSize      int
	FixedIV        []byte
	WorkBlocks     int
}

// Cipher is the whole-buffer chaining contract every mode in this package
// implements.
type Cipher interface {
	Name() string
	BlockSize() int
	MinKeySize() int
	MaxKeySize() int
	IsValidKeySize(n int) bool
	MinIVSize() int
	MaxIVSize() int
	MinMessageSize() int
	ResidueAllowed() bool

	SetKey(key []byte) error
	SetIV(iv []byte) error
	CurrentIV() []byte

	SetCipherID(id int)
	CipherID() int
	SetAlertHandler(h crypto.AlertHandler)
	SetEncryptMax(n uint64)
	SetDecryptMax(n uint64)

	// Encrypt/Decrypt process an entire message in place semantics: dst and
	// src may overlap or be identical. dst must have at least len(src)
	// capacity. Returns the number of bytes written (== len(src) for every
	// mode in this package; chaining never changes message length).
	Encrypt(dst, src []byte) (int, error)
	Decrypt(dst, src []byte) (int, error)
}

// Base holds the state shared by every chaining mode: the primitive engine,
// properties, current IV, key-set flag, use-count accounting and alert
// dispatch. Modes embed Base and add their own Encrypt/Decrypt.
type Base struct {
	Props    Properties
	Engine   crypto.BlockCipher
	iv       []byte
	key      []byte
	keySet   bool
	cipherID int
	alert    crypto.AlertHandler
	encCount uint64
	decCount uint64
	encMax   uint64 // 0 means unlimited
	decMax   uint64
}

// NewBase constructs a Base bound to the given primitive and properties.
// The primitive's ProcessBlock is the only operation chaining modes invoke;
// they never reach into its internals.
func NewBase(engine crypto.BlockCipher, props Properties) *Base {
	return &Base{
		Props:  props,
		Engine: engine,
		iv:     make([]byte, props.BlockSize),
	}
}

func (b *Base) Name() string { return b.Props.Name }

func (b *Base) BlockSize() int { return b.Props.BlockSize }

func (b *Base) MinKeySize() int { return b.Props.MinKeySize }

func (b *Base) MaxKeySize() int { return b.Props.MaxKeySize }

func (b *Base) IsValidKeySize(n int) bool {
	if ks, ok := b.Engine.(crypto.KeySizes); ok {
		for _, v := range ks.ValidKeySizes() {
			if v == n {
				return true
			}
		}
		return false
	}
	return n >= b.Props.MinKeySize && n <= b.Props.MaxKeySize
}

func (b *Base) MinIVSize() int {
	if b.Props.FixedIV != nil {
		return 0
	}
	return b.Props.MinIVSize
}

func (b *Base) MaxIVSize() int {
	if b.Props.FixedIV != nil {
		return 0
	}
	return b.Props.MaxIVSize
}

func (b *Base) MinMessageSize() int { return b.Props.MinMessageSize }

func (b *Base) ResidueAllowed() bool { return b.Props.ResidueAllowed }

func (b *Base) CurrentIV() []byte { return b.iv }

func (b *Base) SetCipherID(id int) { b.cipherID = id }

func (b *Base) CipherID() int { return b.cipherID }

func (b *Base) SetAlertHandler(h crypto.AlertHandler) { b.alert = h }

func (b *Base) SetEncryptMax(n uint64) { b.encMax = n }

func (b *Base) SetDecryptMax(n uint64) { b.decMax = n }

// SetKey records a new key for both directions and resets use counters. The primitive engine is lazily
// (re-)initialized on first Encrypt/Decrypt since direction is not known
// until then; SetKey only validates and stores.
func (b *Base) SetKey(key []byte) error {
	if !b.IsValidKeySize(len(key)) {
		b.keySet = false
		return crypto.NewError(crypto.ErrBadKeySize, b.Props.Name)
	}
	b.key = append([]byte(nil), key...)
	b.keySet = true
	b.encCount = 0
	b.decCount = 0
	if b.Props.FixedIV != nil {
		b.iv = append([]byte(nil), b.Props.FixedIV...)
	}
	return nil
}

// PrepareEngine (re-)runs the primitive's key schedule for the requested
// direction. Chaining modes call this once at the start of every
// Encrypt/Decrypt, since the same Base/key may alternately encrypt and
// decrypt across calls and some primitives (e.g. SM4) compute direction-
// dependent round-key order at schedule time.
func (b *Base) PrepareEngine(forEncryption bool) {
	b.Engine.Init(forEncryption, params.NewKeyParameter(b.key))
}

// SetIV installs a new IV. A validation failure leaves the current IV
// untouched in every case, rather than clearing it on some paths and not
// others.
func (b *Base) SetIV(iv []byte) error {
	if b.Props.FixedIV != nil {
		return crypto.NewError(crypto.ErrBadIVSize, "IV is fixed for "+b.Props.Name)
	}
	if len(iv) < b.Props.MinIVSize || len(iv) > b.Props.MaxIVSize {
		return crypto.NewError(crypto.ErrBadIVSize, b.Props.Name)
	}
	b.iv = append([]byte(nil), iv...)
	return nil
}

// allowEncrypt enforces the use-count ceiling and dispatches the
// first-use/limit-exceeded alerts before an encryption proceeds.
func (b *Base) allowEncrypt() error {
	if !b.keySet {
		return crypto.NewError(crypto.ErrKeyNotSet, b.Props.Name)
	}
	if b.encMax > 0 && b.encCount >= b.encMax {
		if b.alert == nil || !b.alert.HandleAlert(b, crypto.EncryptionExceeded) {
			return crypto.NewError(crypto.ErrUseLimitExceeded, "encryption")
		}
	}
	if b.encCount == 0 && b.alert != nil {
		b.alert.HandleAlert(b, crypto.FirstEncryption)
	}
	b.encCount++
	return nil
}

func (b *Base) allowDecrypt() error {
	if !b.keySet {
		return crypto.NewError(crypto.ErrKeyNotSet, b.Props.Name)
	}
	if b.decMax > 0 && b.decCount >= b.decMax {
		if b.alert == nil || !b.alert.HandleAlert(b, crypto.DecryptionExceeded) {
			return crypto.NewError(crypto.ErrUseLimitExceeded, "decryption")
		}
	}
	if b.decCount == 0 && b.alert != nil {
		b.alert.HandleAlert(b, crypto.FirstDecryption)
	}
	b.decCount++
	return nil
}

var _ crypto.AlertSource = (*Base)(nil)

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
