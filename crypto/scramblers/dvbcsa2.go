// Package scramblers implements the bespoke TS-scrambling ciphers:
// algorithms that either compose a chaining mode from crypto/chaining over
// a primitive from crypto/engines (DVBCISSA, ATIS-IDSA, SCTE-52), or that
// are not decomposable into the BlockCipher primitive at all (DVB-CSA2).
package scramblers

import "github.com/tsduck-go/mpegcrypto/crypto"

// maxCSA2Blocks bounds a single Encrypt/Decrypt call to the largest
// possible TS packet payload (184 bytes / 8-byte blocks = 23), matching
// the reverse-CBC + stream-cipher composition's working-set bound.
const maxCSA2Blocks = 184 / 8

// csa2Sbox1..7 are the DVB-CSA2 stream cipher's seven 32-entry, 5-bit-in
// 2-bit-out substitution boxes. Fixed constants, not derivable from first
// principles; transcribed from the reference implementation.
var (
	csa2Sbox1 = [32]int{
		2, 0, 1, 1, 2, 3, 3, 0,
		3, 2, 2, 0, 1, 1, 0, 3,
		0, 3, 3, 0, 2, 2, 1, 1,
		2, 2, 0, 3, 1, 1, 3, 0,
	}
	csa2Sbox2 = [32]int{
		3, 1, 0, 2, 2, 3, 3, 0,
		1, 3, 2, 1, 0, 0, 1, 2,
		3, 1, 0, 3, 3, 2, 0, 2,
		0, 0, 1, 2, 2, 1, 3, 1,
	}
	csa2Sbox3 = [32]int{
		2, 0, 1, 2, 2, 3, 3, 1,
		1, 1, 0, 3, 3, 0, 2, 0,
		1, 3, 0, 1, 3, 0, 2, 2,
		2, 0, 1, 2, 0, 3, 3, 1,
	}
	csa2Sbox4 = [32]int{
		3, 1, 2, 3, 0, 2, 1, 2,
		1, 2, 0, 1, 3, 0, 0, 3,
		1, 0, 3, 1, 2, 3, 0, 3,
		0, 3, 2, 0, 1, 2, 2, 1,
	}
	csa2Sbox5 = [32]int{
		2, 0, 0, 1, 3, 2, 3, 2,
		0, 1, 3, 3, 1, 0, 2, 1,
		2, 3, 2, 0, 0, 3, 1, 1,
		1, 0, 3, 2, 3, 1, 0, 2,
	}
	csa2Sbox6 = [32]int{
		0, 1, 2, 3, 1, 2, 2, 0,
		0, 1, 3, 0, 2, 3, 1, 3,
		2, 3, 0, 2, 3, 0, 1, 1,
		2, 1, 1, 2, 0, 3, 3, 0,
	}
	csa2Sbox7 = [32]int{
		0, 3, 2, 2, 3, 0, 0, 1,
		3, 0, 1, 3, 1, 2, 2, 1,
		1, 0, 3, 3, 0, 1, 1, 2,
		2, 3, 1, 0, 2, 3, 0, 2,
	}
)

// csa2KeyPerm is the 64-bit key-schedule permutation table (1-based bit
// positions, as in the reference).
var csa2KeyPerm = [64]int{
	0x12, 0x24, 0x09, 0x07, 0x2A, 0x31, 0x1D, 0x15,
	0x1C, 0x36, 0x3E, 0x32, 0x13, 0x21, 0x3B, 0x40,
	0x18, 0x14, 0x25, 0x27, 0x02, 0x35, 0x1B, 0x01,
	0x22, 0x04, 0x0D, 0x0E, 0x39, 0x28, 0x1A, 0x29,
	0x33, 0x23, 0x34, 0x0C, 0x16, 0x30, 0x1E, 0x3A,
	0x2D, 0x1F, 0x08, 0x19, 0x17, 0x2F, 0x3D, 0x11,
	0x3C, 0x05, 0x38, 0x2B, 0x0B, 0x06, 0x0A, 0x2C,
	0x20, 0x3F, 0x2E, 0x0F, 0x03, 0x26, 0x10, 0x37,
}

// csa2BlockSbox is the block cipher's 256-entry substitution box.
var csa2BlockSbox = [256]byte{
	0x3A, 0xEA, 0x68, 0xFE, 0x33, 0xE9, 0x88, 0x1A,
	0x83, 0xCF, 0xE1, 0x7F, 0xBA, 0xE2, 0x38, 0x12,
	0xE8, 0x27, 0x61, 0x95, 0x0C, 0x36, 0xE5, 0x70,
	0xA2, 0x06, 0x82, 0x7C, 0x17, 0xA3, 0x26, 0x49,
	0xBE, 0x7A, 0x6D, 0x47, 0xC1, 0x51, 0x8F, 0xF3,
	0xCC, 0x5B, 0x67, 0xBD, 0xCD, 0x18, 0x08, 0xC9,
	0xFF, 0x69, 0xEF, 0x03, 0x4E, 0x48, 0x4A, 0x84,
	0x3F, 0xB4, 0x10, 0x04, 0xDC, 0xF5, 0x5C, 0xC6,
	0x16, 0xAB, 0xAC, 0x4C, 0xF1, 0x6A, 0x2F, 0x3C,
	0x3B, 0xD4, 0xD5, 0x94, 0xD0, 0xC4, 0x63, 0x62,
	0x71, 0xA1, 0xF9, 0x4F, 0x2E, 0xAA, 0xC5, 0x56,
	0xE3, 0x39, 0x93, 0xCE, 0x65, 0x64, 0xE4, 0x58,
	0x6C, 0x19, 0x42, 0x79, 0xDD, 0xEE, 0x96, 0xF6,
	0x8A, 0xEC, 0x1E, 0x85, 0x53, 0x45, 0xDE, 0xBB,
	0x7E, 0x0A, 0x9A, 0x13, 0x2A, 0x9D, 0xC2, 0x5E,
	0x5A, 0x1F, 0x32, 0x35, 0x9C, 0xA8, 0x73, 0x30,

	0x29, 0x3D, 0xE7, 0x92, 0x87, 0x1B, 0x2B, 0x4B,
	0xA5, 0x57, 0x97, 0x40, 0x15, 0xE6, 0xBC, 0x0E,
	0xEB, 0xC3, 0x34, 0x2D, 0xB8, 0x44, 0x25, 0xA4,
	0x1C, 0xC7, 0x23, 0xED, 0x90, 0x6E, 0x50, 0x00,
	0x99, 0x9E, 0x4D, 0xD9, 0xDA, 0x8D, 0x6F, 0x5F,
	0x3E, 0xD7, 0x21, 0x74, 0x86, 0xDF, 0x6B, 0x05,
	0x8E, 0x5D, 0x37, 0x11, 0xD2, 0x28, 0x75, 0xD6,
	0xA7, 0x77, 0x24, 0xBF, 0xF0, 0xB0, 0x02, 0xB7,
	0xF8, 0xFC, 0x81, 0x09, 0xB1, 0x01, 0x76, 0x91,
	0x7D, 0x0F, 0xC8, 0xA0, 0xF2, 0xCB, 0x78, 0x60,
	0xD1, 0xF7, 0xE0, 0xB5, 0x98, 0x22, 0xB3, 0x20,
	0x1D, 0xA6, 0xDB, 0x7B, 0x59, 0x9F, 0xAE, 0x31,
	0xFB, 0xD3, 0xB6, 0xCA, 0x43, 0x72, 0x07, 0xF4,
	0xD8, 0x41, 0x14, 0x55, 0x0D, 0x54, 0x8B, 0xB9,
	0xAD, 0x46, 0x0B, 0xAF, 0x80, 0x52, 0x2C, 0xFA,
	0x8C, 0x89, 0x66, 0xFD, 0xB2, 0xA9, 0x9B, 0xC0,
}

// csa2BlockPerm is the block cipher's 256-entry permutation box, applied
// to the S-box output.
var csa2BlockPerm = [256]int{
	0x00, 0x02, 0x80, 0x82, 0x20, 0x22, 0xA0, 0xA2,
	0x10, 0x12, 0x90, 0x92, 0x30, 0x32, 0xB0, 0xB2,
	0x04, 0x06, 0x84, 0x86, 0x24, 0x26, 0xA4, 0xA6,
	0x14, 0x16, 0x94, 0x96, 0x34, 0x36, 0xB4, 0xB6,
	0x40, 0x42, 0xC0, 0xC2, 0x60, 0x62, 0xE0, 0xE2,
	0x50, 0x52, 0xD0, 0xD2, 0x70, 0x72, 0xF0, 0xF2,
	0x44, 0x46, 0xC4, 0xC6, 0x64, 0x66, 0xE4, 0xE6,
	0x54, 0x56, 0xD4, 0xD6, 0x74, 0x76, 0xF4, 0xF6,
	0x01, 0x03, 0x81, 0x83, 0x21, 0x23, 0xA1, 0xA3,
	0x11, 0x13, 0x91, 0x93, 0x31, 0x33, 0xB1, 0xB3,
	0x05, 0x07, 0x85, 0x87, 0x25, 0x27, 0xA5, 0xA7,
	0x15, 0x17, 0x95, 0x97, 0x35, 0x37, 0xB5, 0xB7,
	0x41, 0x43, 0xC1, 0xC3, 0x61, 0x63, 0xE1, 0xE3,
	0x51, 0x53, 0xD1, 0xD3, 0x71, 0x73, 0xF1, 0xF3,
	0x45, 0x47, 0xC5, 0xC7, 0x65, 0x67, 0xE5, 0xE7,
	0x55, 0x57, 0xD5, 0xD7, 0x75, 0x77, 0xF5, 0xF7,

	0x08, 0x0A, 0x88, 0x8A, 0x28, 0x2A, 0xA8, 0xAA,
	0x18, 0x1A, 0x98, 0x9A, 0x38, 0x3A, 0xB8, 0xBA,
	0x0C, 0x0E, 0x8C, 0x8E, 0x2C, 0x2E, 0xAC, 0xAE,
	0x1C, 0x1E, 0x9C, 0x9E, 0x3C, 0x3E, 0xBC, 0xBE,
	0x48, 0x4A, 0xC8, 0xCA, 0x68, 0x6A, 0xE8, 0xEA,
	0x58, 0x5A, 0xD8, 0xDA, 0x78, 0x7A, 0xF8, 0xFA,
	0x4C, 0x4E, 0xCC, 0xCE, 0x6C, 0x6E, 0xEC, 0xEE,
	0x5C, 0x5E, 0xDC, 0xDE, 0x7C, 0x7E, 0xFC, 0xFE,
	0x09, 0x0B, 0x89, 0x8B, 0x29, 0x2B, 0xA9, 0xAB,
	0x19, 0x1B, 0x99, 0x9B, 0x39, 0x3B, 0xB9, 0xBB,
	0x0D, 0x0F, 0x8D, 0x8F, 0x2D, 0x2F, 0xAD, 0xAF,
	0x1D, 0x1F, 0x9D, 0x9F, 0x3D, 0x3F, 0xBD, 0xBF,
	0x49, 0x4B, 0xC9, 0xCB, 0x69, 0x6B, 0xE9, 0xEB,
	0x59, 0x5B, 0xD9, 0xDB, 0x79, 0x7B, 0xF9, 0xFB,
	0x4D, 0x4F, 0xCD, 0xCF, 0x6D, 0x6F, 0xED, 0xEF,
	0x5D, 0x5F, 0xDD, 0xDF, 0x7D, 0x7F, 0xFD, 0xFF,
}

// csa2BlockCipher is the 56-round Feistel-like block cipher half of
// DVB-CSA2, operating on 8-byte blocks under 56 scheduled subkeys.
type csa2BlockCipher struct {
	kk [57]int // kk[1..56]; index 0 unused
}

func (bc *csa2BlockCipher) init(key []byte) {
	var kb [8][9]int
	kb[7][1] = int(key[0])
	kb[7][2] = int(key[1])
	kb[7][3] = int(key[2])
	kb[7][4] = int(key[3])
	kb[7][5] = int(key[4])
	kb[7][6] = int(key[5])
	kb[7][7] = int(key[6])
	kb[7][8] = int(key[7])

	for i := 0; i < 7; i++ {
		var bit, newbit [64]int
		for j := 0; j < 8; j++ {
			for k := 0; k < 8; k++ {
				bit[j*8+k] = (kb[7-i][1+j] >> uint(7-k)) & 1
				newbit[csa2KeyPerm[j*8+k]-1] = bit[j*8+k]
			}
		}
		for j := 0; j < 8; j++ {
			kb[6-i][1+j] = 0
			for k := 0; k < 8; k++ {
				kb[6-i][1+j] |= newbit[j*8+k] << uint(7-k)
			}
		}
	}

	for i := 0; i < 7; i++ {
		for j := 0; j < 8; j++ {
			bc.kk[1+i*8+j] = kb[1+i][1+j] ^ i
		}
	}
}

func (bc *csa2BlockCipher) encipher(bd, ib []byte) {
	var r [9]int
	r[1] = int(bd[0])
	r[2] = int(bd[1])
	r[3] = int(bd[2])
	r[4] = int(bd[3])
	r[5] = int(bd[4])
	r[6] = int(bd[5])
	r[7] = int(bd[6])
	r[8] = int(bd[7])

	for i := 1; i <= 56; i++ {
		sboxIn := bc.kk[i] ^ r[8]
		sboxOut := int(csa2BlockSbox[sboxIn])
		permOut := csa2BlockPerm[sboxOut]
		nextR1 := r[2]
		r[2] = r[3] ^ r[1]
		r[3] = r[4] ^ r[1]
		r[4] = r[5] ^ r[1]
		r[5] = r[6]
		r[6] = r[7] ^ permOut
		r[7] = r[8]
		r[8] = r[1] ^ sboxOut
		r[1] = nextR1
	}

	ib[0] = byte(r[1])
	ib[1] = byte(r[2])
	ib[2] = byte(r[3])
	ib[3] = byte(r[4])
	ib[4] = byte(r[5])
	ib[5] = byte(r[6])
	ib[6] = byte(r[7])
	ib[7] = byte(r[8])
}

func (bc *csa2BlockCipher) decipher(ib, bd []byte) {
	var r [9]int
	r[1] = int(ib[0])
	r[2] = int(ib[1])
	r[3] = int(ib[2])
	r[4] = int(ib[3])
	r[5] = int(ib[4])
	r[6] = int(ib[5])
	r[7] = int(ib[6])
	r[8] = int(ib[7])

	for i := 56; i > 0; i-- {
		sboxIn := bc.kk[i] ^ r[7]
		sboxOut := int(csa2BlockSbox[sboxIn])
		permOut := csa2BlockPerm[sboxOut]
		nextR8 := r[7]
		r[7] = r[6] ^ permOut
		r[6] = r[5]
		r[5] = r[4] ^ r[8] ^ sboxOut
		r[4] = r[3] ^ r[8] ^ sboxOut
		r[3] = r[2] ^ r[8] ^ sboxOut
		r[2] = r[1]
		r[1] = r[8] ^ sboxOut
		r[8] = nextR8
	}

	bd[0] = byte(r[1])
	bd[1] = byte(r[2])
	bd[2] = byte(r[3])
	bd[3] = byte(r[4])
	bd[4] = byte(r[5])
	bd[5] = byte(r[6])
	bd[6] = byte(r[7])
	bd[7] = byte(r[8])
}

// csa2StreamCipher is the nibble-oriented stream-cipher half of DVB-CSA2.
// A zero value is usable only after init; cipher doubles as both the
// initialization pass (sb != nil, passes data through unchanged while
// absorbing it into the register state) and the generation pass (sb ==
// nil, emits eight keystream bytes per call).
type csa2StreamCipher struct {
	a, b                   [11]int
	x, y, z, d, e, f       int
	p, q, r                int
}

func (sc *csa2StreamCipher) init(key []byte) {
	sc.a[1] = (int(key[0]) >> 4) & 0x0F
	sc.a[2] = int(key[0]) & 0x0F
	sc.a[3] = (int(key[1]) >> 4) & 0x0F
	sc.a[4] = int(key[1]) & 0x0F
	sc.a[5] = (int(key[2]) >> 4) & 0x0F
	sc.a[6] = int(key[2]) & 0x0F
	sc.a[7] = (int(key[3]) >> 4) & 0x0F
	sc.a[8] = int(key[3]) & 0x0F
	sc.a[9] = 0
	sc.a[10] = 0

	sc.b[1] = (int(key[4]) >> 4) & 0x0F
	sc.b[2] = int(key[4]) & 0x0F
	sc.b[3] = (int(key[5]) >> 4) & 0x0F
	sc.b[4] = int(key[5]) & 0x0F
	sc.b[5] = (int(key[6]) >> 4) & 0x0F
	sc.b[6] = int(key[6]) & 0x0F
	sc.b[7] = (int(key[7]) >> 4) & 0x0F
	sc.b[8] = int(key[7]) & 0x0F
	sc.b[9] = 0
	sc.b[10] = 0

	sc.x, sc.y, sc.z, sc.d, sc.e, sc.f = 0, 0, 0, 0, 0, 0
	sc.p, sc.q, sc.r = 0, 0, 0
}

func (sc *csa2StreamCipher) cipher(sb, cb []byte) {
	init := sb != nil
	var in1, in2 int

	for i := 0; i < 8; i++ {
		if init {
			in1 = (int(sb[i]) >> 4) & 0x0F
			in2 = int(sb[i]) & 0x0F
		}
		op := 0
		for j := 0; j < 4; j++ {
			s1 := csa2Sbox1[(((sc.a[4]>>0)&1)<<4)|(((sc.a[1]>>2)&1)<<3)|(((sc.a[6]>>1)&1)<<2)|(((sc.a[7]>>3)&1)<<1)|(((sc.a[9]>>0)&1)<<0)]
			s2 := csa2Sbox2[(((sc.a[2]>>1)&1)<<4)|(((sc.a[3]>>2)&1)<<3)|(((sc.a[6]>>3)&1)<<2)|(((sc.a[7]>>0)&1)<<1)|(((sc.a[9]>>1)&1)<<0)]
			s3 := csa2Sbox3[(((sc.a[1]>>3)&1)<<4)|(((sc.a[2]>>0)&1)<<3)|(((sc.a[5]>>1)&1)<<2)|(((sc.a[5]>>3)&1)<<1)|(((sc.a[6]>>2)&1)<<0)]
			s4 := csa2Sbox4[(((sc.a[3]>>3)&1)<<4)|(((sc.a[1]>>1)&1)<<3)|(((sc.a[2]>>3)&1)<<2)|(((sc.a[4]>>2)&1)<<1)|(((sc.a[8]>>0)&1)<<0)]
			s5 := csa2Sbox5[(((sc.a[5]>>2)&1)<<4)|(((sc.a[4]>>3)&1)<<3)|(((sc.a[6]>>0)&1)<<2)|(((sc.a[8]>>1)&1)<<1)|(((sc.a[9]>>2)&1)<<0)]
			s6 := csa2Sbox6[(((sc.a[3]>>1)&1)<<4)|(((sc.a[4]>>1)&1)<<3)|(((sc.a[5]>>0)&1)<<2)|(((sc.a[7]>>2)&1)<<1)|(((sc.a[9]>>3)&1)<<0)]
			s7 := csa2Sbox7[(((sc.a[2]>>2)&1)<<4)|(((sc.a[3]>>0)&1)<<3)|(((sc.a[7]>>1)&1)<<2)|(((sc.a[8]>>2)&1)<<1)|(((sc.a[8]>>3)&1)<<0)]

			extraB := (((sc.b[3]&1)<<3)^((sc.b[6]&2)<<2)^((sc.b[7]&4)<<1)^((sc.b[9]&8)>>0))|
				(((sc.b[6]&1)<<2)^((sc.b[8]&2)<<1)^((sc.b[3]&8)>>1)^((sc.b[4]&4)>>0))|
				(((sc.b[5]&8)>>2)^((sc.b[8]&4)>>1)^((sc.b[4]&1)<<1)^((sc.b[5]&2)>>0))|
				(((sc.b[9]&4)>>2)^((sc.b[6]&8)>>3)^((sc.b[3]&2)>>1)^((sc.b[8]&1)>>0))

			nextA1 := sc.a[10] ^ sc.x
			if init {
				in := in1
				if j%2 != 0 {
					in = in2
				}
				nextA1 = nextA1 ^ sc.d ^ in
			}

			nextB1 := sc.b[7] ^ sc.b[10] ^ sc.y
			if init {
				in := in2
				if j%2 != 0 {
					in = in1
				}
				nextB1 = nextB1 ^ in
			}
			if sc.p != 0 {
				nextB1 = ((nextB1 << 1) | ((nextB1 >> 3) & 1)) & 0x0F
			}

			sc.d = sc.e ^ sc.z ^ extraB

			nextE := sc.f
			if sc.q != 0 {
				sc.f = sc.z + sc.e + sc.r
				sc.r = (sc.f >> 4) & 1
				sc.f = sc.f & 0x0F
			} else {
				sc.f = sc.e
			}
			sc.e = nextE

			sc.a[10] = sc.a[9]
			sc.a[9] = sc.a[8]
			sc.a[8] = sc.a[7]
			sc.a[7] = sc.a[6]
			sc.a[6] = sc.a[5]
			sc.a[5] = sc.a[4]
			sc.a[4] = sc.a[3]
			sc.a[3] = sc.a[2]
			sc.a[2] = sc.a[1]
			sc.a[1] = nextA1

			sc.b[10] = sc.b[9]
			sc.b[9] = sc.b[8]
			sc.b[8] = sc.b[7]
			sc.b[7] = sc.b[6]
			sc.b[6] = sc.b[5]
			sc.b[5] = sc.b[4]
			sc.b[4] = sc.b[3]
			sc.b[3] = sc.b[2]
			sc.b[2] = sc.b[1]
			sc.b[1] = nextB1

			sc.x = ((s4 & 1) << 3) | ((s3 & 1) << 2) | (s2 & 2) | ((s1 & 2) >> 1)
			sc.y = ((s6 & 1) << 3) | ((s5 & 1) << 2) | (s4 & 2) | ((s3 & 2) >> 1)
			sc.z = ((s2 & 1) << 3) | ((s1 & 1) << 2) | (s6 & 2) | ((s5 & 2) >> 1)
			sc.p = (s7 & 2) >> 1
			sc.q = s7 & 1

			op = (op << 2) ^ ((((sc.d ^ (sc.d >> 1)) >> 1) & 2) | ((sc.d ^ (sc.d >> 1)) & 1))
		}
		if init {
			cb[i] = sb[i]
		} else {
			cb[i] = byte(op)
		}
	}
}

// EntropyMode selects whether DVB-CSA2's control word keeps its full
// 64-bit entropy or is reduced to the 48-bit regulatory maximum.
type EntropyMode int

const (
	// FullCW keeps the full 64-bit control word.
	FullCW EntropyMode = iota
	// ReduceEntropy zeros the effective entropy to 48 bits by deriving
	// cw[3] and cw[7] from the other six bytes. This is the default,
	// matching the common regulatory deployment.
	ReduceEntropy
)

// ReduceCW performs DVB-CSA2 entropy reduction on an 8-byte control word
// in place: cw[3] = cw[0]+cw[1]+cw[2] and cw[7] = cw[4]+cw[5]+cw[6] (mod
// 256).
func ReduceCW(cw []byte) {
	cw[3] = cw[0] + cw[1] + cw[2]
	cw[7] = cw[4] + cw[5] + cw[6]
}

// IsReducedCW reports whether cw already satisfies the entropy-reduction
// invariant.
func IsReducedCW(cw []byte) bool {
	return cw[3] == cw[0]+cw[1]+cw[2] && cw[7] == cw[4]+cw[5]+cw[6]
}

// DVBCSA2 is the DVB Common Scrambling Algorithm, version 2: a composite
// of a custom 8-byte block cipher run in reverse-CBC and a nibble-oriented
// stream cipher seeded from the block cipher's first output block. It does
// not implement crypto.BlockCipher or chaining.Cipher: it is not reducible
// to the block-cipher primitive used by every other mode in this module.
type DVBCSA2 struct {
	mode     EntropyMode
	key      [8]byte
	block    csa2BlockCipher
	stream   csa2StreamCipher
	keySet   bool
	cipherID int
	alert    crypto.AlertHandler
	encCount uint64
	decCount uint64
	encMax   uint64
	decMax   uint64
}

// NewDVBCSA2 constructs an uninitialized DVB-CSA2 cipher with the default
// entropy-reduction mode. Call SetKey before Encrypt/Decrypt.
func NewDVBCSA2() *DVBCSA2 {
	return &DVBCSA2{mode: ReduceEntropy}
}

func (d *DVBCSA2) Name() string { return "DVB-CSA2" }

func (d *DVBCSA2) BlockSize() int { return 8 }

func (d *DVBCSA2) MinKeySize() int { return 8 }

func (d *DVBCSA2) MaxKeySize() int { return 8 }

func (d *DVBCSA2) MinMessageSize() int { return 0 }

func (d *DVBCSA2) ResidueAllowed() bool { return true }

func (d *DVBCSA2) CipherID() int { return d.cipherID }

func (d *DVBCSA2) SetCipherID(id int) { d.cipherID = id }

func (d *DVBCSA2) SetAlertHandler(h crypto.AlertHandler) { d.alert = h }

func (d *DVBCSA2) SetEncryptMax(n uint64) { d.encMax = n }

func (d *DVBCSA2) SetDecryptMax(n uint64) { d.decMax = n }

// SetEntropyMode selects the reduction behavior applied by the next
// SetKey call. When this instance is not the active algorithm of a
// controller, querying the mode can misreport the controller's effective
// setting; see tsscramble.Controller.EntropyMode for the query that
// accounts for that.
func (d *DVBCSA2) SetEntropyMode(m EntropyMode) { d.mode = m }

func (d *DVBCSA2) GetEntropyMode() EntropyMode { return d.mode }

// SetKey installs an 8-byte control word, applying entropy reduction if
// configured, and runs both the block- and stream-cipher key schedules.
func (d *DVBCSA2) SetKey(key []byte) error {
	if len(key) != 8 {
		d.keySet = false
		return crypto.NewError(crypto.ErrBadKeySize, "DVB-CSA2")
	}
	copy(d.key[:], key)
	if d.mode == ReduceEntropy {
		ReduceCW(d.key[:])
	}
	d.block.init(d.key[:])
	d.stream.init(d.key[:])
	d.keySet = true
	d.encCount = 0
	d.decCount = 0
	return nil
}

func (d *DVBCSA2) allowEncrypt() error {
	if !d.keySet {
		return crypto.NewError(crypto.ErrKeyNotSet, "DVB-CSA2")
	}
	if d.encMax > 0 && d.encCount >= d.encMax {
		if d.alert == nil || !d.alert.HandleAlert(d, crypto.EncryptionExceeded) {
			return crypto.NewError(crypto.ErrUseLimitExceeded, "encryption")
		}
	}
	if d.encCount == 0 && d.alert != nil {
		d.alert.HandleAlert(d, crypto.FirstEncryption)
	}
	d.encCount++
	return nil
}

func (d *DVBCSA2) allowDecrypt() error {
	if !d.keySet {
		return crypto.NewError(crypto.ErrKeyNotSet, "DVB-CSA2")
	}
	if d.decMax > 0 && d.decCount >= d.decMax {
		if d.alert == nil || !d.alert.HandleAlert(d, crypto.DecryptionExceeded) {
			return crypto.NewError(crypto.ErrUseLimitExceeded, "decryption")
		}
	}
	if d.decCount == 0 && d.alert != nil {
		d.alert.HandleAlert(d, crypto.FirstDecryption)
	}
	d.decCount++
	return nil
}

// Encrypt scrambles a message of up to 184 bytes (the largest TS packet
// payload). Messages shorter than 8 bytes are left clear.
func (d *DVBCSA2) Encrypt(dst, src []byte) (int, error) {
	n := len(src)
	nblocks := n / 8
	r := n % 8
	if n > 8*maxCSA2Blocks {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, "DVB-CSA2")
	}
	if err := d.allowEncrypt(); err != nil {
		return 0, err
	}
	if n < 8 {
		copy(dst, src)
		return n, nil
	}

	ib := make([][8]byte, nblocks+1)
	var iblock [8]byte
	for i := nblocks - 1; i >= 0; i-- {
		xorBytes(iblock[:], src[8*i:8*i+8], ib[i+1][:])
		d.block.encipher(iblock[:], ib[i][:])
	}
	copy(dst[0:8], ib[0][:])

	streamCtx := d.stream
	var ostream [8]byte
	streamCtx.cipher(ib[0][:], ostream[:])
	for i := 1; i < nblocks; i++ {
		streamCtx.cipher(nil, ostream[:])
		xorBytes(dst[8*i:8*i+8], ib[i][:], ostream[:])
	}
	if r > 0 {
		streamCtx.cipher(nil, ostream[:])
		for i := 0; i < r; i++ {
			dst[8*nblocks+i] = src[8*nblocks+i] ^ ostream[i]
		}
	}
	return n, nil
}

// Decrypt reverses Encrypt bit-for-bit.
func (d *DVBCSA2) Decrypt(dst, src []byte) (int, error) {
	n := len(src)
	nblocks := n / 8
	r := n % 8
	if n > 8*maxCSA2Blocks {
		return 0, crypto.NewError(crypto.ErrBadMessageSize, "DVB-CSA2")
	}
	if err := d.allowDecrypt(); err != nil {
		return 0, err
	}
	if n < 8 {
		copy(dst, src)
		return n, nil
	}

	streamCtx := d.stream
	var ib [8]byte
	streamCtx.cipher(src[0:8], ib[:])

	var oblock, ostream [8]byte
	for i := 1; i < nblocks; i++ {
		d.block.decipher(ib[:], oblock[:])
		streamCtx.cipher(nil, ostream[:])
		var nextIB [8]byte
		xorBytes(nextIB[:], src[8*i:8*i+8], ostream[:])
		xorBytes(dst[8*(i-1):8*(i-1)+8], nextIB[:], oblock[:])
		ib = nextIB
	}
	d.block.decipher(ib[:], dst[8*(nblocks-1):8*(nblocks-1)+8])

	if r > 0 {
		streamCtx.cipher(nil, ostream[:])
		for i := 0; i < r; i++ {
			dst[8*nblocks+i] = src[8*nblocks+i] ^ ostream[i]
		}
	}
	return n, nil
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

var _ crypto.AlertSource = (*DVBCSA2)(nil)
