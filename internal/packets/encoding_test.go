package packets

import (
	"bytes"
	"testing"
)

func TestAppendString(t *testing.T) {
	tests := []struct {
		name     string
		dst      []byte
		input    string
		expected []byte
	}{
		{"empty string", nil, "", []byte{0, 0}},
		{"simple string", nil, "foo", []byte{0, 3, 'f', 'o', 'o'}},
		{"preexisting data", []byte{0xAA}, "bar", []byte{0xAA, 0, 3, 'b', 'a', 'r'}},
		{"utf-8 string", nil, "héllö", []byte{0, 7, 'h', 0xc3, 0xa9, 'l', 'l', 0xc3, 0xb6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendString(tt.dst, tt.input)
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("appendString() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppendBinary(t *testing.T) {
	tests := []struct {
		name     string
		dst      []byte
		input    []byte
		expected []byte
	}{
		{"empty", nil, []byte{}, []byte{0, 0}},
		{"data", nil, []byte{1, 2, 3}, []byte{0, 3, 1, 2, 3}},
		{"preexisting data", []byte{0xFF}, []byte{0x01, 0x02}, []byte{0xFF, 0, 2, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendBinary(tt.dst, tt.input)
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("appendBinary() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		want      string
		wantBytes int
		wantErr   bool
	}{
		{"valid string", []byte{0, 3, 'b', 'a', 'z'}, "baz", 5, false},
		{"valid utf-8", []byte{0, 2, 0xc3, 0xb6}, "ö", 4, false},
		{"buffer too short for length", []byte{0}, "", 0, true},
		{"buffer too short for data", []byte{0, 5, 'a', 'b'}, "", 0, true},
		{"invalid utf-8", []byte{0, 1, 0xFF}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := decodeString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want || n != tt.wantBytes {
				t.Errorf("decodeString() = (%q, %d), want (%q, %d)", got, n, tt.want, tt.wantBytes)
			}
		})
	}
}

func TestDecodeBinary(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		want      []byte
		wantBytes int
		wantErr   bool
	}{
		{"valid data", []byte{0, 2, 0xCA, 0xFE}, []byte{0xCA, 0xFE}, 4, false},
		{"buffer too short for length", []byte{0}, nil, 0, true},
		{"buffer too short for data", []byte{0, 3, 0x01}, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := decodeBinary(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeBinary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(got, tt.want) || n != tt.wantBytes {
				t.Errorf("decodeBinary() = (%v, %d), want (%v, %d)", got, n, tt.want, tt.wantBytes)
			}
		})
	}
}

func TestRequireNonEmptyString(t *testing.T) {
	if err := RequireNonEmptyString(""); err == nil {
		t.Error("expected error for empty string")
	}
	if err := RequireNonEmptyString("ok"); err != nil {
		t.Errorf("unexpected error for valid string: %v", err)
	}
}
