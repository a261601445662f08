// Package tsscramble implements the TS-packet scrambling controller: the
// two-key (even/odd) control-word lifecycle that drives whichever chaining
// mode or bespoke scrambler (crypto/chaining, crypto/scramblers) is
// selected against the transport_scrambling_control field of one MPEG-TS
// packet at a time. This is the component that ties the algorithm catalog
// to a concrete broadcast use, the same role the reference toolkit's
// Scrambler/CWGenerator classes play around a pluggable CipherChaining.
package tsscramble

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/tsduck-go/mpegcrypto/crypto"
	"github.com/tsduck-go/mpegcrypto/crypto/chaining"
	"github.com/tsduck-go/mpegcrypto/crypto/engines"
	"github.com/tsduck-go/mpegcrypto/crypto/scramblers"
	"github.com/tsduck-go/mpegcrypto/report"
)

// SCV is a TS packet's transport_scrambling_control value.
type SCV int

const (
	// Clear means the packet payload is not scrambled.
	Clear SCV = 0
	// Even selects control-word slot 0.
	Even SCV = 2
	// Odd selects control-word slot 1.
	Odd SCV = 3
)

// Parity returns the slot index (0 or 1) this scrambling-control value
// selects. Valid only for Even/Odd; callers must check against Clear
// first.
func (s SCV) Parity() int { return int(s) & 1 }

func (s SCV) String() string {
	switch s {
	case Clear:
		return "clear"
	case Even:
		return "even"
	case Odd:
		return "odd"
	default:
		return "invalid"
	}
}

// AlgorithmKind selects which scrambling algorithm a Controller drives.
// Both parity slots of one Controller always run the same algorithm;
// selection is controller-wide, not per-slot.
type AlgorithmKind int

const (
	DVBCSA2 AlgorithmKind = iota
	DVBCISSA
	ATISIDSA
	SCTE52_2003
	SCTE52_2008
	AESCBC
	AESCTR
)

func (k AlgorithmKind) String() string {
	switch k {
	case DVBCSA2:
		return "DVB-CSA2"
	case DVBCISSA:
		return "DVB-CISSA"
	case ATISIDSA:
		return "ATIS-IDSA"
	case SCTE52_2003:
		return "SCTE-52-2003"
	case SCTE52_2008:
		return "SCTE-52-2008"
	case AESCBC:
		return "AES-CBC"
	case AESCTR:
		return "AES-CTR"
	default:
		return "unknown"
	}
}

// ScramblingCipher is the subset of crypto/chaining.Cipher and
// crypto/scramblers.DVBCSA2 a Controller needs: key installation, whole-
// payload encrypt/decrypt, use-count accounting and alert dispatch. It
// deliberately omits IV management, since DVB-CSA2 has no IV at all and a
// Controller never needs to touch one directly — fixed-IV algorithms
// (DVB-CISSA, ATIS-IDSA) bind their IV internally at construction.
type ScramblingCipher interface {
	Name() string
	BlockSize() int
	MinKeySize() int
	MaxKeySize() int
	MinMessageSize() int
	ResidueAllowed() bool

	SetKey(key []byte) error
	Encrypt(dst, src []byte) (int, error)
	Decrypt(dst, src []byte) (int, error)

	SetCipherID(id int)
	CipherID() int
	SetAlertHandler(h crypto.AlertHandler)
	SetEncryptMax(n uint64)
	SetDecryptMax(n uint64)
}

// Config parameterizes cipher construction for algorithms with tunable
// knobs (AES-CBC/CTR's IV, CTR's counter width, DVB-CSA2's entropy mode).
// Zero value selects each algorithm's default.
type Config struct {
	FixedIV            []byte // AES-CBC/AES-CTR only; nil keeps the mode's initial all-zero IV.
	CTRCounterBits     int    // AES-CTR only; 0 selects the mode's own default (half the IV width).
	CSA2EntropyMode    scramblers.EntropyMode
	CSA2EntropyModeSet bool // distinguishes an explicit FullCW request from the zero value.
}

// WithCTRCounterBits returns a Config requesting a non-default CTR counter
// width.
func WithCTRCounterBits(bits int) Config { return Config{CTRCounterBits: bits} }

// WithCSA2EntropyMode returns a Config requesting a non-default DVB-CSA2
// entropy-reduction mode.
func WithCSA2EntropyMode(mode scramblers.EntropyMode) Config {
	return Config{CSA2EntropyMode: mode, CSA2EntropyModeSet: true}
}

func buildCipher(algo AlgorithmKind, cfg Config) (ScramblingCipher, error) {
	switch algo {
	case DVBCSA2:
		d := scramblers.NewDVBCSA2()
		if cfg.CSA2EntropyModeSet {
			d.SetEntropyMode(cfg.CSA2EntropyMode)
		}
		return d, nil
	case DVBCISSA:
		return scramblers.NewDVBCISSA(), nil
	case ATISIDSA:
		return scramblers.NewATISIDSA(), nil
	case SCTE52_2003:
		return scramblers.NewSCTE52(scramblers.SCTE52_2003), nil
	case SCTE52_2008:
		return scramblers.NewSCTE52(scramblers.SCTE52_2008), nil
	case AESCBC:
		c := chaining.NewCBC(engines.NewAESEngine())
		if len(cfg.FixedIV) > 0 {
			if err := c.SetIV(cfg.FixedIV); err != nil {
				return nil, err
			}
		}
		return c, nil
	case AESCTR:
		c := chaining.NewCTR(engines.NewAESEngine())
		if cfg.CTRCounterBits > 0 {
			c.SetCounterBits(cfg.CTRCounterBits)
		}
		if len(cfg.FixedIV) > 0 {
			if err := c.SetIV(cfg.FixedIV); err != nil {
				return nil, err
			}
		}
		return c, nil
	default:
		return nil, crypto.NewError(crypto.ErrBadKeySize, fmt.Sprintf("unknown algorithm %v", algo))
	}
}

// slot holds one parity's cipher plus the bookkeeping needed to report the
// first CW it ever uses.
type slot struct {
	cipher    ScramblingCipher
	cwLoaded  bool
	reported  bool
	currentCW []byte
}

// Controller owns the even/odd control-word lifecycle for one scrambling
// algorithm and drives encrypt/decrypt of individual TS packet payloads.
// Not safe for concurrent use by multiple goroutines against the same
// instance; the two slots may be driven from separate goroutines only if
// each slot is touched by exactly one goroutine at a time (see §5 of the
// design: parity slots are independent).
type Controller struct {
	algo         AlgorithmKind
	cfg          Config
	slots        [2]*slot
	explicitAlgo bool

	encryptSCV SCV
	decryptSCV SCV

	cwList     [][]byte
	cwCursor   int
	fixedCWSet bool

	outputCW io.Writer
	log      report.Report
}

// New constructs a Controller bound to algo. report may be nil, in which
// case diagnostics are discarded (report.Discard).
func New(algo AlgorithmKind, cfg Config, rep report.Report) (*Controller, error) {
	if rep == nil {
		rep = report.Discard
	}
	c := &Controller{algo: algo, cfg: cfg, log: rep}
	for i := range c.slots {
		cipher, err := buildCipher(algo, cfg)
		if err != nil {
			return nil, err
		}
		cipher.SetCipherID(i)
		s := &slot{cipher: cipher}
		c.slots[i] = s
		cipher.SetAlertHandler(&slotAlert{ctrl: c, slot: s})
	}
	return c, nil
}

// slotAlert adapts crypto.AlertHandler to log the CW the first time a slot
// is used and to record it to the output CW file, per §4.F's "alert
// dispatch" rule.
type slotAlert struct {
	ctrl *Controller
	slot *slot
}

func (a *slotAlert) HandleAlert(source crypto.AlertSource, reason crypto.AlertReason) bool {
	switch reason {
	case crypto.FirstEncryption, crypto.FirstDecryption:
		if !a.slot.reported {
			a.slot.reported = true
			parity := "even"
			if source.CipherID() == 1 {
				parity = "odd"
			}
			hexCW := hex.EncodeToString(a.slot.currentCW)
			a.ctrl.log.Debug("first use of %s control word on %s slot: %s", a.ctrl.algo, parity, hexCW)
			if a.ctrl.outputCW != nil {
				fmt.Fprintln(a.ctrl.outputCW, hexCW)
			}
		}
		return true
	default:
		// EncryptionExceeded / DecryptionExceeded: no ceiling is configured
		// by this controller itself, so confirm (deny) every time one of
		// the slot's own ceilings (set via SetEncryptMax/SetDecryptMax) is
		// reached.
		return false
	}
}

// AlgoName returns the display name of the currently active algorithm,
// reflecting whichever parity slot is presently selected — both slots of
// one controller always run the same algorithm.
func (c *Controller) AlgoName() string { return c.slots[0].cipher.Name() }

// CWSize returns the control-word length in octets the active algorithm
// expects. Once a control word has been installed, the length actually
// loaded is authoritative (AES-CBC/CTR accept either 16- or 32-byte CWs);
// otherwise it falls back to each algorithm's default.
func (c *Controller) CWSize() int {
	if n := len(c.slots[0].currentCW); n > 0 {
		return n
	}
	switch c.algo {
	case DVBCSA2, SCTE52_2003, SCTE52_2008:
		return 8
	case DVBCISSA, ATISIDSA, AESCBC, AESCTR:
		return 16
	default:
		return 0
	}
}

// EntropyMode reports the DVB-CSA2 entropy-reduction mode of the active
// slots. It always returns scramblers.FullCW when the active algorithm is
// not DVB-CSA2, even though a non-active DVB-CSA2 cipher instance (if one
// were retained) would keep its own configured mode — avoiding a caller
// misreading a setting that is not presently in effect.
func (c *Controller) EntropyMode() scramblers.EntropyMode {
	if c.algo != DVBCSA2 {
		return scramblers.FullCW
	}
	d, ok := c.slots[0].cipher.(*scramblers.DVBCSA2)
	if !ok {
		return scramblers.FullCW
	}
	return d.GetEntropyMode()
}

// SetScramblingType switches the controller to a new algorithm, rebinding
// both slots. Once an algorithm has been explicitly selected (via this
// call with explicit=true, mirroring a CLI flag), a later call is rejected
// unless override is true — mirroring the reference toolkit's rule that
// an explicit scrambling type wins over one later auto-detected from a
// stream descriptor.
func (c *Controller) SetScramblingType(algo AlgorithmKind, cfg Config, explicit, override bool) error {
	if c.explicitAlgo && !override {
		return crypto.NewError(crypto.ErrBadKeySize, "scrambling type already explicitly set; use override to replace it")
	}
	newSlots := [2]*slot{}
	for i := range newSlots {
		cipher, err := buildCipher(algo, cfg)
		if err != nil {
			return err
		}
		cipher.SetCipherID(i)
		s := &slot{cipher: cipher}
		newSlots[i] = s
		cipher.SetAlertHandler(&slotAlert{ctrl: c, slot: s})
	}
	c.algo = algo
	c.cfg = cfg
	c.slots = newSlots
	if explicit {
		c.explicitAlgo = true
	}
	c.encryptSCV = Clear
	c.decryptSCV = Clear
	return nil
}

// SetOutputCW directs every first-use control word to w, hex-encoded one
// per line — the same format ParseCWFile reads back, so a capture's
// output-CW log can be fed into a later run as its fixed-CW list.
func (c *Controller) SetOutputCW(w io.Writer) { c.outputCW = w }

// SetCW installs a single fixed control word into both slots immediately,
// taking the controller out of fixed-CW-list rotation mode.
func (c *Controller) SetCW(cw []byte) error {
	c.cwList = nil
	c.fixedCWSet = false
	for _, s := range c.slots {
		if err := s.cipher.SetKey(cw); err != nil {
			return err
		}
		s.currentCW = append([]byte(nil), cw...)
		s.cwLoaded = true
		s.reported = false
	}
	return nil
}

// SetCWList installs an ordered sequence of control words. The controller
// advances to the next entry on every observed scrambling-control-value
// transition (see EncryptPacket/DecryptPacket), wrapping at the end of the
// list, and installs the entry into the newly-selected slot only.
func (c *Controller) SetCWList(cws [][]byte) error {
	if len(cws) == 0 {
		return crypto.NewError(crypto.ErrBadKeySize, "empty CW list")
	}
	c.cwList = cws
	c.cwCursor = 0
	c.fixedCWSet = true
	c.encryptSCV = Clear
	c.decryptSCV = Clear
	return nil
}

// ParseCWFile reads a CW-list file: UTF-8 text, one hex-encoded CW per
// non-empty line, blank lines and surrounding whitespace ignored.
func ParseCWFile(r io.Reader) ([][]byte, error) {
	var cws [][]byte
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cw, err := hex.DecodeString(line)
		if err != nil {
			return nil, crypto.WrapError(crypto.ErrBadKeySize, err, "malformed CW line: "+line)
		}
		cws = append(cws, cw)
	}
	if err := scanner.Err(); err != nil {
		return nil, crypto.WrapError(crypto.ErrProviderFailure, err, "reading CW file")
	}
	return cws, nil
}

// Rewind resets the fixed-CW list cursor and both scrambling-control-value
// trackers to Clear, letting a controller be reused for a second pass over
// the same TS stream (e.g. re-encoding) without reconstructing it.
func (c *Controller) Rewind() {
	c.cwCursor = 0
	c.encryptSCV = Clear
	c.decryptSCV = Clear
	for _, s := range c.slots {
		s.reported = false
	}
}

// SetEncryptSCV selects the scrambling-control value subsequent
// EncryptPacket calls use, advancing the fixed-CW list into the newly
// selected slot on every transition (including the first selection away
// from Clear). Applications that rotate control words periodically call
// this directly rather than letting EncryptPacket default to Even forever.
func (c *Controller) SetEncryptSCV(scv SCV) error {
	if scv == c.encryptSCV {
		return nil
	}
	if err := c.advanceFixedCW(scv.Parity()); err != nil {
		return err
	}
	c.encryptSCV = scv
	return nil
}

// advanceFixedCW installs the next CW in the list into slot newParity,
// wrapping at the end of the list. No-op outside fixed-CW-list mode.
func (c *Controller) advanceFixedCW(newParity int) error {
	if !c.fixedCWSet {
		return nil
	}
	cw := c.cwList[c.cwCursor%len(c.cwList)]
	c.cwCursor++
	s := c.slots[newParity]
	if err := s.cipher.SetKey(cw); err != nil {
		return err
	}
	s.currentCW = append([]byte(nil), cw...)
	s.cwLoaded = true
	s.reported = false
	return nil
}

// effectivePayloadLen computes how much of a payload of length n a
// residue-sensitive algorithm will actually transform: rounded down to a
// block-size multiple when the algorithm disallows residue, or 0 when the
// result falls below the algorithm's minimum message size (the trailing
// bytes are then left clear).
func effectivePayloadLen(cipher ScramblingCipher, n int) int {
	if !cipher.ResidueAllowed() {
		bs := cipher.BlockSize()
		n -= n % bs
	}
	if n < cipher.MinMessageSize() {
		return 0
	}
	return n
}

// EncryptPacket scrambles pkt's payload in place using the parity-selected
// cipher, rotating the fixed-CW list on every scv transition, and sets
// pkt's tsc to the resulting scrambling-control value. Double-scrambling
// (a packet whose tsc is already non-clear) is an error. A packet with no
// payload is a silent no-op.
func (c *Controller) EncryptPacket(pkt *Packet) error {
	if pkt.TSC() != Clear {
		return crypto.NewError(crypto.ErrAlreadyScrambled, "packet already scrambled")
	}
	if pkt.PayloadLen() == 0 {
		return nil
	}
	if c.encryptSCV == Clear {
		if err := c.SetEncryptSCV(Even); err != nil {
			return err
		}
	}
	parity := c.encryptSCV.Parity()
	s := c.slots[parity]
	if !s.cwLoaded {
		return crypto.NewError(crypto.ErrKeyNotSet, "no control word installed for this parity")
	}
	payload := pkt.Payload()
	n := effectivePayloadLen(s.cipher, len(payload))
	if n > 0 {
		if _, err := s.cipher.Encrypt(payload[:n], payload[:n]); err != nil {
			return err
		}
	}
	pkt.SetTSC(c.encryptSCV)
	return nil
}

// DecryptPacket descrambles pkt's payload in place using the parity
// selected by pkt's own tsc field, rotating the fixed-CW list on every
// observed transition, and clears pkt's tsc. A packet whose tsc is not
// Even/Odd is a silent no-op — clear or invalid packets are not an error.
func (c *Controller) DecryptPacket(pkt *Packet) error {
	scv := pkt.TSC()
	if scv != Even && scv != Odd {
		return nil
	}
	if scv != c.decryptSCV {
		if err := c.advanceFixedCW(scv.Parity()); err != nil {
			return err
		}
		c.decryptSCV = scv
	}
	s := c.slots[scv.Parity()]
	if !s.cwLoaded {
		return crypto.NewError(crypto.ErrKeyNotSet, "no control word installed for this parity")
	}
	payload := pkt.Payload()
	n := effectivePayloadLen(s.cipher, len(payload))
	if n > 0 {
		if _, err := s.cipher.Decrypt(payload[:n], payload[:n]); err != nil {
			return err
		}
	}
	pkt.SetTSC(Clear)
	return nil
}

var (
	_ ScramblingCipher = (*scramblers.DVBCSA2)(nil)
	_ ScramblingCipher = chaining.Cipher(nil)
)
