package variant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindAccessors(t *testing.T) {
	assert.True(t, NewBool(true).Bool())
	assert.Equal(t, int64(-5), NewInt(-5).Int())
	assert.Equal(t, uint64(5), NewInt(5).Uint())
	assert.Equal(t, uint64(0), NewInt(-5).Uint(), "negative does not convert")
	assert.Equal(t, 3.0, NewUint(3).Float())
	assert.Equal(t, "abc", NewVisibleString("abc").Str())
	assert.Equal(t, "", NewInt(1).Str(), "mismatch yields zero value")
	assert.False(t, NewInt(1).Bool())
}

func TestBitString(t *testing.T) {
	// 13 bits: 1010 1010 1111 1
	v := NewBitString([]byte{0xAA, 0xF8}, 13)
	assert.Equal(t, 13, v.BitCount())
	assert.True(t, v.Bit(0))
	assert.False(t, v.Bit(1))
	assert.True(t, v.Bit(8))
	assert.False(t, v.Bit(13), "out of range")
	assert.Equal(t, "bit-string(1010101011111)", v.String())
}

func TestStructureIndex(t *testing.T) {
	v := NewStructure(NewBool(true), NewInt(7))
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, int64(7), v.Index(1).Int())
	assert.Nil(t, v.Index(2))
	assert.Nil(t, v.Index(-1))
}

func TestEqual(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		a, b *Value
		want bool
	}{
		{name: "same int", a: NewInt(1), b: NewInt(1), want: true},
		{name: "different kind", a: NewInt(1), b: NewUint(1), want: false},
		{name: "same structure", a: NewStructure(NewBool(true)), b: NewStructure(NewBool(true)), want: true},
		{name: "different arity", a: NewStructure(NewBool(true)), b: NewStructure(NewBool(true), NewInt(1)), want: false},
		{name: "same time", a: NewUTCTime(now, 0x0a), b: NewUTCTime(now, 0x0a), want: true},
		{name: "different quality", a: NewUTCTime(now, 0x0a), b: NewUTCTime(now, 0x0b), want: false},
		{name: "bit count matters", a: NewBitString([]byte{0xA0}, 4), b: NewBitString([]byte{0xA0}, 3), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestString(t *testing.T) {
	v := NewStructure(NewFloat32(0.5), NewVisibleString("x"))
	assert.Equal(t, "structure(float32(0.5), visible-string(x))", v.String())
}
