package scramblers

import (
	"bytes"
	"testing"

	"github.com/tsduck-go/mpegcrypto/crypto"
)

func TestDVBCSA2RoundTrip(t *testing.T) {
	key := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	sizes := []int{0, 1, 7, 8, 9, 15, 16, 17, 183, 184}
	for _, n := range sizes {
		plain := make([]byte, n)
		for i := range plain {
			plain[i] = byte(i * 7)
		}
		enc := NewDVBCSA2()
		if err := enc.SetKey(key); err != nil {
			t.Fatalf("size %d: SetKey: %v", n, err)
		}
		cipher := make([]byte, n)
		if _, err := enc.Encrypt(cipher, plain); err != nil {
			t.Fatalf("size %d: Encrypt: %v", n, err)
		}

		dec := NewDVBCSA2()
		if err := dec.SetKey(key); err != nil {
			t.Fatalf("size %d: SetKey: %v", n, err)
		}
		recovered := make([]byte, n)
		if _, err := dec.Decrypt(recovered, cipher); err != nil {
			t.Fatalf("size %d: Decrypt: %v", n, err)
		}
		if !bytes.Equal(plain, recovered) {
			t.Errorf("size %d: round trip mismatch: got %x want %x", n, recovered, plain)
		}
		if n >= 8 && bytes.Equal(plain, cipher) {
			t.Errorf("size %d: ciphertext equals plaintext", n)
		}
	}
}

func TestDVBCSA2EntropyReduction(t *testing.T) {
	cw := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	ReduceCW(cw)
	if !IsReducedCW(cw) {
		t.Fatal("ReduceCW did not produce a reduced control word")
	}
	if cw[3] != 1+2+3 || cw[7] != 4+5+6 {
		t.Fatalf("unexpected reduced bytes: %x", cw)
	}
}

func TestDVBCSA2ShortMessageLeftClear(t *testing.T) {
	c := NewDVBCSA2()
	if err := c.SetKey([]byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	src := []byte{0xAA, 0xBB, 0xCC}
	dst := make([]byte, len(src))
	if _, err := c.Encrypt(dst, src); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("message shorter than one block should be left clear: got %x want %x", dst, src)
	}
}

func TestDVBCISSARoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x5A}, 16)
	plain := bytes.Repeat([]byte{0x01}, 32)

	enc := NewDVBCISSA()
	if err := enc.SetKey(key); err != nil {
		t.Fatal(err)
	}
	cipher := make([]byte, len(plain))
	if _, err := enc.Encrypt(cipher, plain); err != nil {
		t.Fatal(err)
	}

	dec := NewDVBCISSA()
	if err := dec.SetKey(key); err != nil {
		t.Fatal(err)
	}
	recovered := make([]byte, len(plain))
	if _, err := dec.Decrypt(recovered, cipher); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plain, recovered) {
		t.Fatalf("round trip mismatch: got %x want %x", recovered, plain)
	}
}

func TestDVBCISSARejectsAES256Key(t *testing.T) {
	c := NewDVBCISSA()
	err := c.SetKey(bytes.Repeat([]byte{0x01}, 32))
	if kind, ok := crypto.KindOf(err); !ok || kind != crypto.ErrBadKeySize {
		t.Fatalf("expected ErrBadKeySize for a 32-byte key, got %v", err)
	}
}

func TestDVBCISSAIVNotSettable(t *testing.T) {
	c := NewDVBCISSA()
	err := c.SetIV(make([]byte, 16))
	if kind, ok := crypto.KindOf(err); !ok || kind != crypto.ErrBadIVSize {
		t.Fatalf("expected ErrBadIVSize when setting a fixed IV, got %v", err)
	}
}

func TestATISIDSARoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x7E}, 16)
	for _, n := range []int{3, 16, 20} {
		plain := make([]byte, n)
		for i := range plain {
			plain[i] = byte(i + 1)
		}
		enc := NewATISIDSA()
		if err := enc.SetKey(key); err != nil {
			t.Fatal(err)
		}
		cipher := make([]byte, n)
		if _, err := enc.Encrypt(cipher, plain); err != nil {
			t.Fatal(err)
		}
		dec := NewATISIDSA()
		if err := dec.SetKey(key); err != nil {
			t.Fatal(err)
		}
		recovered := make([]byte, n)
		if _, err := dec.Decrypt(recovered, cipher); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(plain, recovered) {
			t.Fatalf("size %d: round trip mismatch: got %x want %x", n, recovered, plain)
		}
	}
}

func TestSCTE52_2003ReusesLongIVForSubBlockMessage(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 8)
	iv := bytes.Repeat([]byte{0x22}, 8)
	plain := []byte{0xDE, 0xAD, 0xBE}

	c := NewSCTE52(SCTE52_2003)
	if err := c.SetKey(key); err != nil {
		t.Fatal(err)
	}
	if err := c.SetIV(iv); err != nil {
		t.Fatal(err)
	}
	cipher := make([]byte, len(plain))
	if _, err := c.Encrypt(cipher, plain); err != nil {
		t.Fatalf("2003 profile should not require a short IV: %v", err)
	}

	d := NewSCTE52(SCTE52_2003)
	if err := d.SetKey(key); err != nil {
		t.Fatal(err)
	}
	if err := d.SetIV(iv); err != nil {
		t.Fatal(err)
	}
	recovered := make([]byte, len(plain))
	if _, err := d.Decrypt(recovered, cipher); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plain, recovered) {
		t.Fatalf("round trip mismatch: got %x want %x", recovered, plain)
	}
}

func TestSCTE52_2008RequiresShortIV(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 8)
	iv := bytes.Repeat([]byte{0x22}, 8)
	plain := []byte{0xDE, 0xAD, 0xBE}

	c := NewSCTE52(SCTE52_2008)
	if err := c.SetKey(key); err != nil {
		t.Fatal(err)
	}
	if err := c.SetIV(iv); err != nil {
		t.Fatal(err)
	}
	cipher := make([]byte, len(plain))
	_, err := c.Encrypt(cipher, plain)
	if kind, ok := crypto.KindOf(err); !ok || kind != crypto.ErrBadIVSize {
		t.Fatalf("expected ErrBadIVSize without a short IV installed, got %v", err)
	}

	if err := c.SetShortIV(bytes.Repeat([]byte{0x33}, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Encrypt(cipher, plain); err != nil {
		t.Fatalf("should succeed once a short IV is installed: %v", err)
	}
}

func TestSCTE52KeySizeEnforced(t *testing.T) {
	c := NewSCTE52(SCTE52_2003)
	err := c.SetKey(bytes.Repeat([]byte{0x01}, 16))
	if kind, ok := crypto.KindOf(err); !ok || kind != crypto.ErrBadKeySize {
		t.Fatalf("expected ErrBadKeySize for a 16-byte key against DES, got %v", err)
	}
}
