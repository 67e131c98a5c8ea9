package escape

import (
	"bytes"
	"testing"
)

func TestEncode_EmptyData(t *testing.T) {
	result := Encode(nil)
	if len(result) != 0 {
		t.Errorf("Encode(nil) = %v, want empty", result)
	}
}

func TestEncode_PrintablePassThrough(t *testing.T) {
	input := []byte("hello, world ~ 0x20")
	result := Encode(input)
	if !bytes.Equal(result, input) {
		t.Errorf("Encode(%q) = %q, want %q", input, result, input)
	}
}

func TestEncode_Backslash(t *testing.T) {
	input := []byte(`a\b`)
	result := Encode(input)
	expected := []byte(`a\\b`)
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(%q) = %q, want %q", input, result, expected)
	}
}

func TestEncode_NonPrintable(t *testing.T) {
	tests := []struct {
		input    []byte
		expected string
	}{
		{[]byte{0x00}, `\x00`},
		{[]byte{0x0d, 0x0a}, `\x0d\x0a`},
		{[]byte{0x1f}, `\x1f`},
		{[]byte{0x7f}, `\x7f`},
		{[]byte{0xff}, `\xff`},
		{[]byte{'A', 0xab, 'B'}, `A\xabB`},
	}

	for _, tc := range tests {
		result := Encode(tc.input)
		if string(result) != tc.expected {
			t.Errorf("Encode(%v) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestDecode_ValidSequences(t *testing.T) {
	tests := []struct {
		input    string
		expected []byte
	}{
		{``, []byte{}},
		{`plain`, []byte("plain")},
		{`\\`, []byte{'\\'}},
		{`\x00`, []byte{0x00}},
		{`\xFF`, []byte{0xff}},
		{`\XaB`, []byte{0xab}},
		{`a\x0d\x0ab`, []byte{'a', 0x0d, 0x0a, 'b'}},
	}

	for _, tc := range tests {
		result, malformed := Decode([]byte(tc.input))
		if !bytes.Equal(result, tc.expected) {
			t.Errorf("Decode(%q) = %v, want %v", tc.input, result, tc.expected)
		}
		if malformed != 0 {
			t.Errorf("Decode(%q) malformed = %d, want 0", tc.input, malformed)
		}
	}
}

func TestDecode_MalformedPassThrough(t *testing.T) {
	tests := []struct {
		input     string
		expected  string
		malformed int
	}{
		{`\q`, `\q`, 1},
		{`\xg1`, `\xg1`, 1},
		{`\x1g`, `\x1g`, 1},
		{`a\`, `a\`, 1},
		{`a\x`, `a\x`, 1},
		{`a\x4`, `a\x4`, 1},
		{`\q\x41\z`, `\qA\z`, 2},
	}

	for _, tc := range tests {
		result, malformed := Decode([]byte(tc.input))
		if string(result) != tc.expected {
			t.Errorf("Decode(%q) = %q, want %q", tc.input, result, tc.expected)
		}
		if malformed != tc.malformed {
			t.Errorf("Decode(%q) malformed = %d, want %d", tc.input, malformed, tc.malformed)
		}
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	testCases := [][]byte{
		{},
		{0x00},
		{'\\'},
		{'\\', 'x', '4', '1'},
		[]byte(`\\\\`),
		{0x5c, 0x00, 0x5c},
		all,
	}

	for i, tc := range testCases {
		encoded := Encode(tc)
		decoded, malformed := Decode(encoded)
		if !bytes.Equal(decoded, tc) {
			t.Errorf("Case %d: RoundTrip(%v) = %v, want %v", i, tc, decoded, tc)
		}
		if malformed != 0 {
			t.Errorf("Case %d: RoundTrip malformed = %d, want 0", i, malformed)
		}
	}
}

func TestEncode_OutputIsPrintable(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	for _, b := range Encode(all) {
		if !isPrintable(b) {
			t.Fatalf("Encode produced non-printable byte 0x%02X", b)
		}
	}
}
