package embedded

import (
	_ "embed"
)

//go:embed wuart.toml
var defaultConfig []byte

// DefaultConfig returns the annotated default configuration file.
func DefaultConfig() []byte {
	return defaultConfig
}
