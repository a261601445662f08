// Command tsscramble is a stream filter: it reads 188-byte MPEG-TS packets
// from stdin, scrambles or descrambles each payload with the selected
// algorithm, and writes the packets back out to stdout unchanged in size.
// Flags mirror the reference toolkit's --dvb-csa2/--aes-cbc/--cw/--cw-file/
// --output-cw-file surface.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/tsduck-go/mpegcrypto/crypto/scramblers"
	"github.com/tsduck-go/mpegcrypto/report"
	"github.com/tsduck-go/mpegcrypto/tsscramble"
)

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	Use:   "tsscramble",
	Short: "Scramble or descramble an MPEG-TS packet stream",
	Long: `tsscramble reads 188-byte MPEG-TS packets from stdin and writes
scrambled (or, with --decrypt, descrambled) packets of the same size to
stdout. Exactly one of --cw or --cw-file selects the control word(s).`,
	RunE: run,
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stderr, &devlog.Options{Level: &logLevel})))

	flags := rootCmd.Flags()
	flags.String("algo", "dvb-csa2", "scrambling algorithm: dvb-csa2, dvb-cissa, atis-idsa, scte52-2003, scte52-2008, aes-cbc, aes-ctr")
	flags.String("cw", "", "single fixed control word, hex-encoded")
	flags.String("cw-file", "", "ordered control-word list file, one hex CW per line")
	flags.String("output-cw-file", "", "path to record every control word as it is first used")
	flags.String("iv", "", "fixed IV, hex-encoded (aes-cbc/aes-ctr only)")
	flags.Int("ctr-counter-bits", 0, "CTR counter width in bits (aes-ctr only; 0 selects the mode default)")
	flags.Bool("no-entropy-reduction", false, "use the full 8-byte control word instead of DVB-CSA2's reduced-entropy form")
	flags.Bool("decrypt", false, "descramble instead of scramble")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("config", "", "path to a configuration file (flags still take precedence)")

	viper.SetEnvPrefix("TSSCRAMBLE")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

func parseAlgo(name string) (tsscramble.AlgorithmKind, error) {
	switch name {
	case "dvb-csa2":
		return tsscramble.DVBCSA2, nil
	case "dvb-cissa":
		return tsscramble.DVBCISSA, nil
	case "atis-idsa":
		return tsscramble.ATISIDSA, nil
	case "scte52-2003":
		return tsscramble.SCTE52_2003, nil
	case "scte52-2008":
		return tsscramble.SCTE52_2008, nil
	case "aes-cbc":
		return tsscramble.AESCBC, nil
	case "aes-ctr":
		return tsscramble.AESCTR, nil
	default:
		return 0, fmt.Errorf("unknown --algo %q", name)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}
	if viper.GetBool("debug") {
		logLevel.Set(slog.LevelDebug)
	}

	cw := viper.GetString("cw")
	cwFile := viper.GetString("cw-file")
	if cw != "" && cwFile != "" {
		return fmt.Errorf("--cw and --cw-file are mutually exclusive")
	}
	if cw == "" && cwFile == "" {
		return fmt.Errorf("one of --cw or --cw-file is required")
	}

	algo, err := parseAlgo(viper.GetString("algo"))
	if err != nil {
		return err
	}

	cfg := tsscramble.Config{
		CTRCounterBits: viper.GetInt("ctr-counter-bits"),
	}
	if ivHex := viper.GetString("iv"); ivHex != "" {
		iv, err := hex.DecodeString(ivHex)
		if err != nil {
			return fmt.Errorf("decoding --iv: %w", err)
		}
		cfg.FixedIV = iv
	}
	if viper.GetBool("no-entropy-reduction") {
		cfg.CSA2EntropyMode = scramblers.FullCW
		cfg.CSA2EntropyModeSet = true
	}

	rep := report.New(os.Stderr, &logLevel)
	ctrl, err := tsscramble.New(algo, cfg, rep)
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}

	if path := viper.GetString("output-cw-file"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("opening --output-cw-file: %w", err)
		}
		defer f.Close()
		ctrl.SetOutputCW(f)
	}

	switch {
	case cw != "":
		key, err := hex.DecodeString(cw)
		if err != nil {
			return fmt.Errorf("decoding --cw: %w", err)
		}
		if err := ctrl.SetCW(key); err != nil {
			return fmt.Errorf("installing --cw: %w", err)
		}
	case cwFile != "":
		f, err := os.Open(cwFile)
		if err != nil {
			return fmt.Errorf("opening --cw-file: %w", err)
		}
		defer f.Close()
		cws, err := tsscramble.ParseCWFile(f)
		if err != nil {
			return fmt.Errorf("parsing --cw-file: %w", err)
		}
		if err := ctrl.SetCWList(cws); err != nil {
			return fmt.Errorf("installing --cw-file: %w", err)
		}
	}

	decrypt := viper.GetBool("decrypt")
	return filterStream(ctrl, os.Stdin, os.Stdout, decrypt, rep)
}

// filterStream reads fixed-size TS packets from r, scrambles or descrambles
// each one's payload with ctrl, and writes the result to w. Deriving the
// payload offset from the adaptation-field control bits is done here, at
// the CLI boundary, per §6's "the caller's responsibility" rule — the
// tsscramble package itself only ever sees an already-resolved payload
// window.
func filterStream(ctrl *tsscramble.Controller, r io.Reader, w io.Writer, decrypt bool, rep report.Report) error {
	in := bufio.NewReaderSize(r, 188*256)
	out := bufio.NewWriterSize(w, 188*256)
	defer out.Flush()

	buf := make([]byte, tsscramble.PacketSize)
	count := 0
	for {
		if _, err := io.ReadFull(in, buf); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("reading packet %d: %w", count, err)
		}
		start, length, ok := payloadWindow(buf)
		if ok && length > 0 {
			pkt := tsscramble.NewPacket(buf, start, length)
			var opErr error
			if decrypt {
				opErr = ctrl.DecryptPacket(pkt)
			} else {
				opErr = ctrl.EncryptPacket(pkt)
			}
			if opErr != nil {
				return fmt.Errorf("packet %d: %w", count, opErr)
			}
		}
		if _, err := out.Write(buf); err != nil {
			return fmt.Errorf("writing packet %d: %w", count, err)
		}
		count++
	}
	rep.Info("processed %d packets", count)
	return nil
}

// payloadWindow derives the payload offset and length of one 188-byte TS
// packet from its adaptation_field_control bits (byte 3, bits 5-4). ok is
// false for a malformed sync byte or a reserved control-bit value.
func payloadWindow(buf []byte) (start, length int, ok bool) {
	if buf[0] != 0x47 {
		return 0, 0, false
	}
	switch afc := (buf[3] >> 4) & 0x3; afc {
	case 0x1: // payload only
		return 4, len(buf) - 4, true
	case 0x2: // adaptation field only, no payload
		return 4, 0, true
	case 0x3: // adaptation field followed by payload
		adaptLen := int(buf[4])
		start := 5 + adaptLen
		if start > len(buf) {
			return 0, 0, false
		}
		return start, len(buf) - start, true
	default: // 0x0 reserved
		return 0, 0, false
	}
}
