// Package ber implements the subset of ASN.1 Basic Encoding Rules
// needed by the MMS mapping of IEC 61850-8-1: tag-length-value
// primitives, short/long/indefinite lengths and minimal
// two's-complement integers. Positional helpers operate on a buffer
// and an explicit position the way the on-wire layout reads; the
// Value type in value.go provides a generic decoded tree.
package ber

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedEncoding is the umbrella error for every decode failure
// in this package. Specific conditions wrap it, so callers can match
// with errors.Is.
var ErrMalformedEncoding = errors.New("malformed BER encoding")

var (
	ErrBufferOverflow    = fmt.Errorf("%w: length exceeds buffer", ErrMalformedEncoding)
	ErrInvalidLength     = fmt.Errorf("%w: invalid length field", ErrMalformedEncoding)
	ErrInvalidIndefinite = fmt.Errorf("%w: unterminated indefinite length", ErrMalformedEncoding)
	ErrMaxDepthExceeded  = fmt.Errorf("%w: maximum nesting depth exceeded", ErrMalformedEncoding)
)

const maxDepth = 50

// DecodeLength decodes a definite-form length field starting at bufPos.
// Returns the position after the length octets and the decoded length.
// The declared length is validated against maxBufPos so a caller can
// never be led past the end of the buffer.
func DecodeLength(buffer []byte, bufPos, maxBufPos int) (newPos, length int, err error) {
	if bufPos >= maxBufPos || maxBufPos > len(buffer) {
		return -1, 0, ErrBufferOverflow
	}

	first := buffer[bufPos]
	bufPos++

	if first&0x80 == 0 {
		length = int(first)
	} else {
		lenOctets := int(first & 0x7f)
		if lenOctets == 0 {
			// Indefinite form is only meaningful for constructed
			// values and is handled by the Value decoder.
			return -1, 0, ErrInvalidLength
		}
		if lenOctets > 4 {
			return -1, 0, ErrInvalidLength
		}
		for i := 0; i < lenOctets; i++ {
			if bufPos >= maxBufPos {
				return -1, 0, ErrBufferOverflow
			}
			length = length<<8 | int(buffer[bufPos])
			bufPos++
		}
	}

	if length < 0 {
		return -1, 0, ErrInvalidLength
	}
	if bufPos+length > maxBufPos {
		return -1, 0, ErrBufferOverflow
	}
	return bufPos, length, nil
}

// DecodeString decodes strlen bytes at bufPos as a string.
func DecodeString(buffer []byte, strlen, bufPos, maxBufPos int) (string, error) {
	if strlen < 0 || bufPos < 0 || bufPos+strlen > maxBufPos || maxBufPos > len(buffer) {
		return "", ErrBufferOverflow
	}
	return string(buffer[bufPos : bufPos+strlen]), nil
}

// DecodeUint32 decodes an unsigned big-endian integer of intLen bytes.
func DecodeUint32(buffer []byte, intLen, bufPos int) uint32 {
	var value uint32
	for i := 0; i < intLen; i++ {
		value = value<<8 | uint32(buffer[bufPos+i])
	}
	return value
}

// DecodeInt32 decodes a signed big-endian integer of intLen bytes with
// sign extension.
func DecodeInt32(buffer []byte, intLen, bufPos int) int32 {
	return int32(DecodeInt64(buffer, intLen, bufPos))
}

// DecodeInt64 decodes a signed big-endian integer of intLen bytes with
// sign extension.
func DecodeInt64(buffer []byte, intLen, bufPos int) int64 {
	if intLen == 0 {
		return 0
	}
	var value int64
	if buffer[bufPos]&0x80 != 0 {
		value = -1
	}
	for i := 0; i < intLen; i++ {
		value = value<<8 | int64(buffer[bufPos+i])
	}
	return value
}

// DecodeUint64 decodes an unsigned big-endian integer of intLen bytes.
func DecodeUint64(buffer []byte, intLen, bufPos int) uint64 {
	var value uint64
	for i := 0; i < intLen; i++ {
		value = value<<8 | uint64(buffer[bufPos+i])
	}
	return value
}

// DecodeBoolean decodes a BER boolean content octet.
func DecodeBoolean(buffer []byte, bufPos int) bool {
	return buffer[bufPos] != 0
}

// DecodeFloat decodes the MMS FloatingPoint content (exponent-width
// octet followed by the IEEE 754 value) as float32. The caller must
// have verified that 5 bytes are available at bufPos.
func DecodeFloat(buffer []byte, bufPos int) float32 {
	bits := binary.BigEndian.Uint32(buffer[bufPos+1 : bufPos+5])
	return math.Float32frombits(bits)
}

// DecodeDouble decodes the MMS FloatingPoint content as float64
// (exponent-width octet followed by 8 value bytes).
func DecodeDouble(buffer []byte, bufPos int) float64 {
	bits := binary.BigEndian.Uint64(buffer[bufPos+1 : bufPos+9])
	return math.Float64frombits(bits)
}

// AppendLength appends a definite-form length field, short form below
// 128 and the minimal long form otherwise.
func AppendLength(dst []byte, length int) []byte {
	switch {
	case length < 0x80:
		return append(dst, byte(length))
	case length <= 0xFF:
		return append(dst, 0x81, byte(length))
	case length <= 0xFFFF:
		return append(dst, 0x82, byte(length>>8), byte(length))
	case length <= 0xFFFFFF:
		return append(dst, 0x83, byte(length>>16), byte(length>>8), byte(length))
	default:
		return append(dst, 0x84, byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	}
}

// LengthSize returns the number of octets AppendLength will emit.
func LengthSize(length int) int {
	switch {
	case length < 0x80:
		return 1
	case length <= 0xFF:
		return 2
	case length <= 0xFFFF:
		return 3
	case length <= 0xFFFFFF:
		return 4
	default:
		return 5
	}
}

// AppendTagLength appends a single-octet tag and a length field.
func AppendTagLength(dst []byte, tag Tag, length int) []byte {
	dst = append(dst, byte(tag))
	return AppendLength(dst, length)
}

// AppendTagged appends tag, length and content in one step.
func AppendTagged(dst []byte, tag Tag, content []byte) []byte {
	dst = AppendTagLength(dst, tag, len(content))
	return append(dst, content...)
}

// AppendBoolean appends a tagged boolean (0xFF/0x00 content octet).
func AppendBoolean(dst []byte, tag Tag, value bool) []byte {
	dst = append(dst, byte(tag), 1)
	if value {
		return append(dst, 0xFF)
	}
	return append(dst, 0x00)
}

// AppendString appends a tagged character string.
func AppendString(dst []byte, tag Tag, s string) []byte {
	dst = AppendTagLength(dst, tag, len(s))
	return append(dst, s...)
}

// AppendOctetString appends a tagged octet string.
func AppendOctetString(dst []byte, tag Tag, octets []byte) []byte {
	return AppendTagged(dst, tag, octets)
}

// AppendBitString appends a tagged bit string of bitCount bits. Unused
// trailing bits in the last octet are masked to zero as X.690 requires.
func AppendBitString(dst []byte, tag Tag, bits []byte, bitCount int) []byte {
	byteCount := (bitCount + 7) / 8
	padding := byteCount*8 - bitCount

	dst = AppendTagLength(dst, tag, byteCount+1)
	dst = append(dst, byte(padding))
	start := len(dst)
	dst = append(dst, bits[:byteCount]...)
	if padding > 0 && byteCount > 0 {
		dst[start+byteCount-1] &= ^byte(1<<padding - 1)
	}
	return dst
}

// IntSize returns the minimal two's-complement octet count for value.
func IntSize(value int64) int {
	size := 1
	for value > 0x7F || value < -0x80 {
		value >>= 8
		size++
	}
	return size
}

// UintSize returns the octet count for an unsigned value encoded as a
// positive two's-complement integer (a leading zero octet is added
// when the high bit would be set).
func UintSize(value uint64) int {
	size := 1
	for value > 0x7F {
		value >>= 8
		size++
	}
	return size
}

// AppendInt appends a tagged signed integer using the minimal
// two's-complement representation.
func AppendInt(dst []byte, tag Tag, value int64) []byte {
	size := IntSize(value)
	dst = append(dst, byte(tag), byte(size))
	for i := size - 1; i >= 0; i-- {
		dst = append(dst, byte(value>>(8*i)))
	}
	return dst
}

// AppendUint appends a tagged unsigned integer, prepending a zero
// octet when needed to keep the value positive.
func AppendUint(dst []byte, tag Tag, value uint64) []byte {
	size := UintSize(value)
	dst = append(dst, byte(tag), byte(size))
	for i := size - 1; i >= 0; i-- {
		dst = append(dst, byte(value>>(8*i)))
	}
	return dst
}

// AppendFloat32 appends the MMS FloatingPoint content for an IEEE 754
// single: exponent-width octet (8) followed by the 4 value bytes.
func AppendFloat32(dst []byte, tag Tag, value float32) []byte {
	dst = AppendTagLength(dst, tag, 5)
	dst = append(dst, 8)
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(value))
}

// AppendFloat64 appends the MMS FloatingPoint content for an IEEE 754
// double: exponent-width octet (11) followed by the 8 value bytes.
func AppendFloat64(dst []byte, tag Tag, value float64) []byte {
	dst = AppendTagLength(dst, tag, 9)
	dst = append(dst, 11)
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(value))
}
