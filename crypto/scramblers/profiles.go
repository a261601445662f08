package scramblers

import (
	"github.com/tsduck-go/mpegcrypto/crypto"
	"github.com/tsduck-go/mpegcrypto/crypto/chaining"
	"github.com/tsduck-go/mpegcrypto/crypto/engines"
)

// dvbCISSAIV is the standard-mandated constant IV for DVB-CISSA, the ASCII
// bytes "DVBTMCPTAESCISSA".
var dvbCISSAIV = []byte{
	0x44, 0x56, 0x42, 0x54, 0x4D, 0x43, 0x50, 0x54,
	0x41, 0x45, 0x53, 0x43, 0x49, 0x53, 0x53, 0x41,
}

// DVBCISSA is CBC<AES-128> under the DVB Common IPTV Software-defined
// Scrambling Algorithm's fixed IV. The underlying AES engine also accepts
// 32-byte (AES-256) keys; this wrapper restricts that back down to
// DVB-CISSA's mandated 16-byte key.
type DVBCISSA struct {
	*chaining.CBC
}

// NewDVBCISSA constructs an uninitialized DVB-CISSA cipher. Call SetKey
// before Encrypt/Decrypt.
func NewDVBCISSA() *DVBCISSA {
	return &DVBCISSA{chaining.NewCBCFixedIV(engines.NewAESEngine(), dvbCISSAIV)}
}

func (d *DVBCISSA) SetKey(key []byte) error {
	if len(key) != 16 {
		return crypto.NewError(crypto.ErrBadKeySize, "DVB-CISSA")
	}
	return d.CBC.SetKey(key)
}

// ATISIDSA is DVS-042<AES-128> under the ATIS IPTV Interoperability Forum's
// zero IV, with the short-IV facility suppressed: sub-block messages
// always fall back to the long (zero) IV, matching the standard's
// always-use-the-long-IV rule.
type ATISIDSA struct {
	*chaining.DVS042
}

// NewATISIDSA constructs an uninitialized ATIS-IDSA cipher. Call SetKey
// before Encrypt/Decrypt.
func NewATISIDSA() *ATISIDSA {
	engine := engines.NewAESEngine()
	zeroIV := make([]byte, engine.GetBlockSize())
	return &ATISIDSA{chaining.NewDVS042FixedIV(engine, zeroIV)}
}

func (a *ATISIDSA) SetKey(key []byte) error {
	if len(key) != 16 {
		return crypto.NewError(crypto.ErrBadKeySize, "ATIS-IDSA")
	}
	return a.DVS042.SetKey(key)
}

// SCTE52Profile distinguishes the two SCTE-52 revisions, which differ only
// in whether a sub-block message's residue keystream requires a distinct
// short IV or may silently reuse the long IV.
type SCTE52Profile int

const (
	// SCTE52_2003 ignores the short IV and always reuses the long IV.
	SCTE52_2003 SCTE52Profile = iota
	// SCTE52_2008 requires a distinct short IV for any message shorter
	// than one block.
	SCTE52_2008
)

// SCTE52 is DVS-042<DES> under either the 2003 or 2008 ANSI/SCTE 52
// profile.
type SCTE52 struct {
	*chaining.DVS042
	profile SCTE52Profile
}

// NewSCTE52 constructs an uninitialized SCTE-52 cipher for the given
// profile. Call SetKey and SetIV before Encrypt/Decrypt.
func NewSCTE52(profile SCTE52Profile) *SCTE52 {
	d := chaining.NewDVS042(engines.NewDESEngine())
	if profile == SCTE52_2008 {
		d.EnableShortIV()
	}
	return &SCTE52{DVS042: d, profile: profile}
}

// requiresShortIV reports whether src is a sub-block message that, under
// the 2008 profile, must have a distinct short IV installed.
func (s *SCTE52) requiresShortIV(src []byte) bool {
	return s.profile == SCTE52_2008 && len(src) < s.BlockSize() && !s.HasShortIV()
}

func (s *SCTE52) Encrypt(dst, src []byte) (int, error) {
	if s.requiresShortIV(src) {
		return 0, crypto.NewError(crypto.ErrBadIVSize, "SCTE-52-2008 short IV required")
	}
	return s.DVS042.Encrypt(dst, src)
}

func (s *SCTE52) Decrypt(dst, src []byte) (int, error) {
	if s.requiresShortIV(src) {
		return 0, crypto.NewError(crypto.ErrBadIVSize, "SCTE-52-2008 short IV required")
	}
	return s.DVS042.Decrypt(dst, src)
}

var (
	_ chaining.Cipher = (*DVBCISSA)(nil)
	_ chaining.Cipher = (*ATISIDSA)(nil)
	_ chaining.Cipher = (*SCTE52)(nil)
)
