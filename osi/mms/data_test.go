package mms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grid61850/mms/osi/mms/variant"
)

func TestDataRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		value   *variant.Value
		wantHex string
	}{
		{
			name:    "boolean true",
			value:   variant.NewBool(true),
			wantHex: "8301ff",
		},
		{
			name:    "integer negative",
			value:   variant.NewInt(-128),
			wantHex: "850180",
		},
		{
			name:    "integer wide",
			value:   variant.NewInt(1000000),
			wantHex: "85030f4240",
		},
		{
			name:    "unsigned with leading zero",
			value:   variant.NewUint(200),
			wantHex: "860200c8",
		},
		{
			name:    "float32",
			value:   variant.NewFloat32(0.5),
			wantHex: "8705083f000000",
		},
		{
			name:    "float64",
			value:   variant.NewFloat64(1.0),
			wantHex: "87090b3ff0000000000000",
		},
		{
			// 13 bit quality, all zero.
			name:    "bit string",
			value:   variant.NewBitString([]byte{0x00, 0x00}, 13),
			wantHex: "8403030000",
		},
		{
			name:    "octet string",
			value:   variant.NewOctetString([]byte{0xde, 0xad}),
			wantHex: "8902dead",
		},
		{
			name:    "visible string",
			value:   variant.NewVisibleString("on"),
			wantHex: "8a026f6e",
		},
		{
			name:    "mms string",
			value:   variant.NewMMSString("ok"),
			wantHex: "90026f6b",
		},
		{
			// 0.5 s fraction is exactly 0x800000 of 2^24.
			name:    "utc time",
			value:   variant.NewUTCTime(time.Unix(0x695b7607, 500000000).UTC(), 0x0a),
			wantHex: "9108695b76078000000a",
		},
		{
			name: "structure",
			value: variant.NewStructure(
				variant.NewBool(false),
				variant.NewInt(2),
			),
			wantHex: "a206830100850102",
		},
		{
			name: "array",
			value: variant.NewArray(
				variant.NewUint(1),
				variant.NewUint(2),
			),
			wantHex: "a106860101860102",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeData(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHex, hexString(encoded.Encode()))

			decoded, err := DecodeData(decodeHex(t, tt.wantHex))
			require.NoError(t, err)
			assert.True(t, tt.value.Equal(decoded), "got %s", decoded)
		})
	}
}

func TestDecodeDataUTCTime(t *testing.T) {
	// From a wireshark read response capture: a 61850 timestamp with
	// quality octet 0x80.
	v, err := DecodeData(decodeHex(t, "9108695b7607276c8b80"))
	require.NoError(t, err)
	assert.Equal(t, variant.UTCTime, v.Kind())
	assert.Equal(t, int64(0x695b7607), v.Time().Unix())
	assert.Equal(t, variant.TimeQuality(0x80), v.Quality())
}

func TestDecodeDataBinaryTimeRoundTrip(t *testing.T) {
	instant := time.Date(2026, time.March, 14, 9, 26, 53, 589000000, time.UTC)
	encoded, err := EncodeData(variant.NewBinaryTime(instant))
	require.NoError(t, err)
	decoded, err := DecodeData(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.Time().Equal(instant), "got %s", decoded.Time())
}

func TestDecodeDataMalformed(t *testing.T) {
	tests := []struct {
		name   string
		buffer string
	}{
		{name: "boolean too long", buffer: "83020000"},
		{name: "integer empty", buffer: "8500"},
		{name: "float wrong width", buffer: "8703080000"},
		{name: "bit string empty", buffer: "8400"},
		{name: "utc time short", buffer: "9104695b7607"},
		{name: "unknown tag", buffer: "9f6300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeData(decodeHex(t, tt.buffer))
			assert.ErrorIs(t, err, ErrMalformedPDU)
		})
	}
}

func hexString(data []byte) string {
	const hexdigit = "0123456789abcdef"
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		out = append(out, hexdigit[b>>4], hexdigit[b&0x0F])
	}
	return string(out)
}
