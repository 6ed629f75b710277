package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/mms/variant"
)

func TestCheckValue(t *testing.T) {
	quality := mms.TypeSpec{Kind: variant.BitString, Size: 13, Fixed: true}
	point := mms.TypeSpec{
		Kind: variant.Structure,
		Components: []mms.Component{
			{Name: "f", Type: mms.TypeSpec{Kind: variant.Float32, FormatWidth: 32, ExponentWidth: 8}},
			{Name: "q", Type: quality},
		},
	}
	fourInts := mms.TypeSpec{
		Kind:     variant.Array,
		Elements: 4,
		Element:  &mms.TypeSpec{Kind: variant.Int, Size: 32},
	}

	tests := []struct {
		name    string
		spec    *mms.TypeSpec
		value   *variant.Value
		wantErr string
	}{
		{
			name:  "matching structure",
			spec:  &point,
			value: variant.NewStructure(variant.NewFloat32(1.5), variant.NewBitString([]byte{0, 0}, 13)),
		},
		{
			name:    "kind mismatch",
			spec:    &mms.TypeSpec{Kind: variant.Int, Size: 32},
			value:   variant.NewVisibleString("7"),
			wantErr: "have visible-string, want int32",
		},
		{
			name:    "structure arity",
			spec:    &point,
			value:   variant.NewStructure(variant.NewFloat32(1.5)),
			wantErr: "structure of 1 members, want 2",
		},
		{
			name:    "member mismatch is named",
			spec:    &point,
			value:   variant.NewStructure(variant.NewFloat64(1.5), variant.NewBitString([]byte{0, 0}, 13)),
			wantErr: "f: ",
		},
		{
			name:    "fixed bit width",
			spec:    &quality,
			value:   variant.NewBitString([]byte{0}, 8),
			wantErr: "8 bits, want exactly 13",
		},
		{
			name: "array length",
			spec: &fourInts,
			value: variant.NewArray(
				variant.NewInt(1), variant.NewInt(2), variant.NewInt(3),
			),
			wantErr: "array of 3 elements, want 4",
		},
		{
			name: "array element kind",
			spec: &fourInts,
			value: variant.NewArray(
				variant.NewInt(1), variant.NewInt(2), variant.NewInt(3), variant.NewBool(true),
			),
			wantErr: "[3]: ",
		},
		{
			name:  "nil descriptor accepts anything",
			spec:  nil,
			value: variant.NewBool(true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckValue(tt.spec, tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrTypeMismatch)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncodeDecodeValue(t *testing.T) {
	spec := mms.TypeSpec{Kind: variant.Int, Size: 32}
	value := variant.NewInt(42)

	encoded, err := EncodeValue(&spec, value)
	require.NoError(t, err)

	decoded, err := DecodeValue(&spec, encoded)
	require.NoError(t, err)
	assert.True(t, value.Equal(decoded))

	_, err = EncodeValue(&spec, variant.NewBool(true))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	boolSpec := mms.TypeSpec{Kind: variant.Bool}
	_, err = DecodeValue(&boolSpec, encoded)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
