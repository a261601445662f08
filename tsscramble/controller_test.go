package tsscramble

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tsduck-go/mpegcrypto/crypto/scramblers"
)

func makePacket(payloadLen int, fill byte) (*Packet, []byte) {
	buf := make([]byte, PacketSize)
	buf[0] = 0x47
	payload := buf[4 : 4+payloadLen]
	for i := range payload {
		payload[i] = fill + byte(i)
	}
	original := append([]byte(nil), payload...)
	return NewPacket(buf, 4, payloadLen), original
}

func TestControllerEncryptDecryptRoundTrip(t *testing.T) {
	for _, algo := range []AlgorithmKind{DVBCSA2, DVBCISSA, ATISIDSA, SCTE52_2003, AESCBC, AESCTR} {
		t.Run(algo.String(), func(t *testing.T) {
			enc, err := New(algo, Config{}, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			dec, err := New(algo, Config{}, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			cwSize := enc.CWSize()
			cw := make([]byte, cwSize)
			for i := range cw {
				cw[i] = byte(i + 1)
			}
			if err := enc.SetCW(cw); err != nil {
				t.Fatalf("enc.SetCW: %v", err)
			}
			if err := dec.SetCW(cw); err != nil {
				t.Fatalf("dec.SetCW: %v", err)
			}

			pkt, original := makePacket(100, 0x10)
			if err := enc.EncryptPacket(pkt); err != nil {
				t.Fatalf("EncryptPacket: %v", err)
			}
			if pkt.TSC() != Even {
				t.Fatalf("expected tsc Even, got %v", pkt.TSC())
			}
			if err := dec.DecryptPacket(pkt); err != nil {
				t.Fatalf("DecryptPacket: %v", err)
			}
			if pkt.TSC() != Clear {
				t.Fatalf("expected tsc Clear after decrypt, got %v", pkt.TSC())
			}
			if !bytes.Equal(pkt.Payload(), original) {
				t.Fatalf("round trip mismatch: got %x want %x", pkt.Payload(), original)
			}
		})
	}
}

func TestControllerParityRotation(t *testing.T) {
	cws := [][]byte{
		bytes.Repeat([]byte{0x01}, 16),
		bytes.Repeat([]byte{0x02}, 16),
		bytes.Repeat([]byte{0x03}, 16),
	}
	encoder, err := New(DVBCISSA, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := encoder.SetCWList(cws); err != nil {
		t.Fatalf("SetCWList: %v", err)
	}
	decoder, err := New(DVBCISSA, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := decoder.SetCWList(cws); err != nil {
		t.Fatalf("SetCWList: %v", err)
	}

	scvs := []SCV{Even, Odd, Even, Odd, Even, Odd, Even, Odd, Even, Odd}
	var originals [][]byte
	var packets []*Packet
	for i, scv := range scvs {
		if err := encoder.SetEncryptSCV(scv); err != nil {
			t.Fatalf("packet %d: SetEncryptSCV: %v", i, err)
		}
		pkt, original := makePacket(64, byte(i))
		if err := encoder.EncryptPacket(pkt); err != nil {
			t.Fatalf("packet %d: EncryptPacket: %v", i, err)
		}
		if pkt.TSC() != scv {
			t.Fatalf("packet %d: expected tsc %v, got %v", i, scv, pkt.TSC())
		}
		originals = append(originals, original)
		packets = append(packets, pkt)
	}

	for i, pkt := range packets {
		if err := decoder.DecryptPacket(pkt); err != nil {
			t.Fatalf("packet %d: DecryptPacket: %v", i, err)
		}
		if !bytes.Equal(pkt.Payload(), originals[i]) {
			t.Fatalf("packet %d: round trip mismatch: got %x want %x", i, pkt.Payload(), originals[i])
		}
	}
}

func TestControllerDoubleScrambleIsError(t *testing.T) {
	c, err := New(DVBCSA2, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetCW(make([]byte, 8)); err != nil {
		t.Fatalf("SetCW: %v", err)
	}
	pkt, _ := makePacket(64, 0)
	pkt.SetTSC(Even)
	if err := c.EncryptPacket(pkt); err == nil {
		t.Fatal("expected error encrypting an already-scrambled packet")
	}
}

func TestControllerDecryptClearPacketIsSilentSuccess(t *testing.T) {
	c, err := New(DVBCSA2, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pkt, original := makePacket(64, 0)
	if err := c.DecryptPacket(pkt); err != nil {
		t.Fatalf("decrypting a clear packet should be a silent success, got %v", err)
	}
	if !bytes.Equal(pkt.Payload(), original) {
		t.Fatal("clear packet payload must be left untouched")
	}
}

func TestControllerNoPayloadIsNoOp(t *testing.T) {
	c, err := New(DVBCSA2, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetCW(make([]byte, 8)); err != nil {
		t.Fatalf("SetCW: %v", err)
	}
	pkt, _ := makePacket(0, 0)
	if err := c.EncryptPacket(pkt); err != nil {
		t.Fatalf("EncryptPacket with empty payload should no-op, got %v", err)
	}
	if pkt.TSC() != Clear {
		t.Fatalf("empty-payload packet tsc must stay Clear, got %v", pkt.TSC())
	}
}

func TestControllerCWFileRoundTrip(t *testing.T) {
	var logged strings.Builder
	c, err := New(DVBCSA2, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetOutputCW(&logged)
	if err := c.SetCW([]byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("SetCW: %v", err)
	}
	pkt, _ := makePacket(64, 0)
	if err := c.EncryptPacket(pkt); err != nil {
		t.Fatalf("EncryptPacket: %v", err)
	}
	if logged.Len() == 0 {
		t.Fatal("expected first-use CW to be logged to the output CW writer")
	}

	cws, err := ParseCWFile(strings.NewReader(logged.String()))
	if err != nil {
		t.Fatalf("ParseCWFile: %v", err)
	}
	if len(cws) != 1 || !bytes.Equal(cws[0], []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("round-tripped CW mismatch: got %x", cws)
	}
}

func TestControllerRewind(t *testing.T) {
	cws := [][]byte{bytes.Repeat([]byte{0xAA}, 8), bytes.Repeat([]byte{0xBB}, 8)}
	c, err := New(DVBCSA2, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetCWList(cws); err != nil {
		t.Fatalf("SetCWList: %v", err)
	}

	pkt1, _ := makePacket(32, 1)
	if err := c.EncryptPacket(pkt1); err != nil {
		t.Fatalf("EncryptPacket: %v", err)
	}
	if err := c.SetEncryptSCV(Odd); err != nil {
		t.Fatalf("SetEncryptSCV: %v", err)
	}

	c.Rewind()

	pkt2, _ := makePacket(32, 1)
	if err := c.EncryptPacket(pkt2); err != nil {
		t.Fatalf("EncryptPacket after rewind: %v", err)
	}
	if !bytes.Equal(pkt1.Bytes(), pkt2.Bytes()) {
		t.Fatalf("rewound controller produced different output: %x vs %x", pkt2.Bytes(), pkt1.Bytes())
	}
}

func TestControllerExplicitTypeLock(t *testing.T) {
	c, err := New(DVBCSA2, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetScramblingType(DVBCISSA, Config{}, true, false); err != nil {
		t.Fatalf("first explicit SetScramblingType should succeed: %v", err)
	}
	if err := c.SetScramblingType(AESCBC, Config{}, true, false); err == nil {
		t.Fatal("expected a second explicit SetScramblingType without override to be rejected")
	}
	if err := c.SetScramblingType(AESCBC, Config{}, true, true); err != nil {
		t.Fatalf("SetScramblingType with override should succeed: %v", err)
	}
}

func TestControllerEntropyModeQuery(t *testing.T) {
	c, err := New(DVBCISSA, Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.EntropyMode() != scramblers.FullCW {
		t.Fatalf("expected FullCW for a non-CSA2 algorithm")
	}
}
