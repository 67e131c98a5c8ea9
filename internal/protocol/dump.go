package protocol

import (
	"encoding/hex"
)

// Dump formats b as a hex dump with offsets and printable characters,
// sixteen bytes per row.
func Dump(b []byte) string {
	return hex.Dump(b)
}
