package main

import (
	"testing"

	"github.com/bigbag/wuart/internal/protocol"
)

func TestFormatPacket(t *testing.T) {
	raw := protocol.NewCodec(protocol.V1).Encode(protocol.KeyStart, nil)
	got := formatPacket(raw)
	want := `\23\24\05\00\00\00\73\74\61\72\74\60`
	if got != want {
		t.Errorf("formatPacket(start) = %s, want %s", got, want)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"COM3", "COM3", false},
		{"0x0d0a", "\r\n", false},
		{"0xZZ", "", true},
		{"0X41", "0X41", false},
	}

	for _, tt := range tests {
		got, err := parseValue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("parseValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
