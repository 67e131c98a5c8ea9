package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/bigbag/wuart/internal/protocol"
)

var (
	packetKeyFlag   string
	packetValueFlag string
	packetRawFlag   bool
)

func newPacketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packet",
		Short: "Print an encoded frame",
		Long: `Encode one key/value frame and print it as \XX escaped bytes, ready to
paste into a serial terminal or test script. A value starting with 0x is
read as hex.`,
		Example: `  wuart packet -k path -v /dev/ttyUSB0
  wuart packet -k data -v 0x0d0a --protocol 2`,
		Args: cobra.NoArgs,
		RunE: runPacket,
	}
	cmd.Flags().StringVarP(&packetKeyFlag, "key", "k", "test", "Frame key")
	cmd.Flags().StringVarP(&packetValueFlag, "value", "v", "", "Frame value, 0x prefix for hex")
	cmd.Flags().BoolVar(&packetRawFlag, "raw", false, "Write the raw frame bytes instead")
	return cmd
}

func runPacket(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	value, err := parseValue(packetValueFlag)
	if err != nil {
		return err
	}

	if !protocol.KnownKey(packetKeyFlag) {
		fmt.Fprintf(os.Stderr, "Warning: %q is not a protocol key, peers will reject it\n", packetKeyFlag)
	}

	raw := cfg.Codec().Encode(packetKeyFlag, value)
	if packetRawFlag {
		_, err := os.Stdout.Write(raw)
		return err
	}

	fmt.Println(formatPacket(raw))
	return nil
}

// parseValue reads a 0x prefixed value as hex and anything else as text.
func parseValue(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if hexPart, ok := strings.CutPrefix(s, "0x"); ok {
		b, err := hex.DecodeString(hexPart)
		if err != nil {
			return nil, errors.Wrap(err, "parse hex value")
		}
		return b, nil
	}
	return []byte(s), nil
}

// formatPacket renders every byte as \XX.
func formatPacket(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw) * 3)
	for _, b := range raw {
		fmt.Fprintf(&sb, "\\%02X", b)
	}
	return sb.String()
}

