package packets

import (
	"bytes"
	"testing"
)

func TestFixedHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header FixedHeader
	}{
		{"connect", FixedHeader{PacketType: CONNECT, Flags: 0, RemainingLength: 10}},
		{"pubrel flags", FixedHeader{PacketType: PUBREL, Flags: 0x02, RemainingLength: 2}},
		{"large remaining length", FixedHeader{PacketType: PUBLISH, Flags: 0x02, RemainingLength: 128 * 128 * 2}},
		{"max remaining length", FixedHeader{PacketType: PUBLISH, Flags: 0, RemainingLength: maxRemainingLength}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := tt.header.WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}

			got, err := DecodeFixedHeader(&buf)
			if err != nil {
				t.Fatalf("DecodeFixedHeader() error = %v", err)
			}
			if got != tt.header {
				t.Errorf("DecodeFixedHeader() = %+v, want %+v", got, tt.header)
			}
		})
	}
}
