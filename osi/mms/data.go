package mms

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/osi/mms/variant"
)

// Data CHOICE tags per ISO 9506-2.
const (
	dataArray         = 1
	dataStructure     = 2
	dataBoolean       = 3
	dataBitString     = 4
	dataInteger       = 5
	dataUnsigned      = 6
	dataFloatingPoint = 7
	dataOctetString   = 9
	dataVisibleString = 10
	dataBinaryTime    = 12
	dataMMSString     = 16
	dataUTCTime       = 17
)

// binaryTimeEpoch is the MMS binary-time day zero.
var binaryTimeEpoch = time.Date(1984, time.January, 1, 0, 0, 0, 0, time.UTC)

// EncodeData encodes one typed value as the MMS Data CHOICE.
func EncodeData(v *variant.Value) (ber.Value, error) {
	switch v.Kind() {
	case variant.Bool:
		content := []byte{0x00}
		if v.Bool() {
			content[0] = 0xFF
		}
		return ber.ContextValue(dataBoolean, content), nil

	case variant.Int:
		encoded := ber.AppendInt(nil, ber.Tag(0x80|dataInteger), v.Int())
		return ber.ContextValue(dataInteger, encoded[2:]), nil

	case variant.Uint:
		encoded := ber.AppendUint(nil, ber.Tag(0x80|dataUnsigned), v.Uint())
		return ber.ContextValue(dataUnsigned, encoded[2:]), nil

	case variant.Float32:
		content := make([]byte, 0, 5)
		content = append(content, 8)
		content = binary.BigEndian.AppendUint32(content, math.Float32bits(float32(v.Float())))
		return ber.ContextValue(dataFloatingPoint, content), nil

	case variant.Float64:
		content := make([]byte, 0, 9)
		content = append(content, 11)
		content = binary.BigEndian.AppendUint64(content, math.Float64bits(v.Float()))
		return ber.ContextValue(dataFloatingPoint, content), nil

	case variant.BitString:
		bitCount := v.BitCount()
		byteCount := (bitCount + 7) / 8
		content := make([]byte, 0, byteCount+1)
		content = append(content, byte(byteCount*8-bitCount))
		content = append(content, v.Bytes()[:byteCount]...)
		return ber.ContextValue(dataBitString, content), nil

	case variant.OctetString:
		return ber.ContextValue(dataOctetString, v.Bytes()), nil

	case variant.VisibleString:
		return ber.ContextValue(dataVisibleString, []byte(v.Str())), nil

	case variant.MMSString:
		return ber.ContextValue(dataMMSString, []byte(v.Str())), nil

	case variant.BinaryTime:
		t := v.Time().UTC()
		days := int(t.Sub(binaryTimeEpoch) / (24 * time.Hour))
		midnight := binaryTimeEpoch.Add(time.Duration(days) * 24 * time.Hour)
		msec := uint32(t.Sub(midnight) / time.Millisecond)
		content := make([]byte, 6)
		binary.BigEndian.PutUint32(content[:4], msec)
		binary.BigEndian.PutUint16(content[4:], uint16(days))
		return ber.ContextValue(dataBinaryTime, content), nil

	case variant.UTCTime:
		t := v.Time().UTC()
		content := make([]byte, 8)
		binary.BigEndian.PutUint32(content[:4], uint32(t.Unix()))
		fraction := uint32(uint64(t.Nanosecond()) << 24 / 1_000_000_000)
		content[4] = byte(fraction >> 16)
		content[5] = byte(fraction >> 8)
		content[6] = byte(fraction)
		content[7] = byte(v.Quality())
		return ber.ContextValue(dataUTCTime, content), nil

	case variant.Structure, variant.Array:
		tag := uint32(dataStructure)
		if v.Kind() == variant.Array {
			tag = dataArray
		}
		children := make([]ber.Value, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			child, err := EncodeData(v.Index(i))
			if err != nil {
				return ber.Value{}, err
			}
			children = append(children, child)
		}
		return ber.ContextSequence(tag, children...), nil

	default:
		return ber.Value{}, fmt.Errorf("%w: cannot encode %s", ErrMalformedPDU, v.Kind())
	}
}

// DecodeData decodes one MMS Data CHOICE into a typed value.
func DecodeData(v ber.Value) (*variant.Value, error) {
	if v.Class != ber.ClassContextSpecific {
		return nil, fmt.Errorf("%w: data value has class %v", ErrMalformedPDU, v.Class)
	}

	switch v.TagNumber {
	case dataBoolean:
		if len(v.Bytes) != 1 {
			return nil, fmt.Errorf("%w: boolean of %d bytes", ErrMalformedPDU, len(v.Bytes))
		}
		return variant.NewBool(v.Bytes[0] != 0), nil

	case dataInteger:
		if len(v.Bytes) == 0 || len(v.Bytes) > 8 {
			return nil, fmt.Errorf("%w: integer of %d bytes", ErrMalformedPDU, len(v.Bytes))
		}
		return variant.NewInt(ber.DecodeInt64(v.Bytes, len(v.Bytes), 0)), nil

	case dataUnsigned:
		if len(v.Bytes) == 0 || len(v.Bytes) > 9 {
			return nil, fmt.Errorf("%w: unsigned of %d bytes", ErrMalformedPDU, len(v.Bytes))
		}
		return variant.NewUint(ber.DecodeUint64(v.Bytes, len(v.Bytes), 0)), nil

	case dataFloatingPoint:
		switch len(v.Bytes) {
		case 5:
			return variant.NewFloat32(ber.DecodeFloat(v.Bytes, 0)), nil
		case 9:
			return variant.NewFloat64(ber.DecodeDouble(v.Bytes, 0)), nil
		default:
			return nil, fmt.Errorf("%w: floating-point of %d bytes", ErrMalformedPDU, len(v.Bytes))
		}

	case dataBitString:
		if len(v.Bytes) == 0 {
			return nil, fmt.Errorf("%w: empty bit string", ErrMalformedPDU)
		}
		padding := int(v.Bytes[0])
		bits := v.Bytes[1:]
		if padding > 7 || (len(bits) == 0 && padding != 0) {
			return nil, fmt.Errorf("%w: bit string padding %d", ErrMalformedPDU, padding)
		}
		return variant.NewBitString(bits, len(bits)*8-padding), nil

	case dataOctetString:
		return variant.NewOctetString(v.Bytes), nil

	case dataVisibleString:
		return variant.NewVisibleString(string(v.Bytes)), nil

	case dataMMSString:
		return variant.NewMMSString(string(v.Bytes)), nil

	case dataBinaryTime:
		switch len(v.Bytes) {
		case 4, 6:
		default:
			return nil, fmt.Errorf("%w: binary-time of %d bytes", ErrMalformedPDU, len(v.Bytes))
		}
		msec := binary.BigEndian.Uint32(v.Bytes[:4])
		days := 0
		if len(v.Bytes) == 6 {
			days = int(binary.BigEndian.Uint16(v.Bytes[4:]))
		}
		t := binaryTimeEpoch.Add(time.Duration(days)*24*time.Hour +
			time.Duration(msec)*time.Millisecond)
		return variant.NewBinaryTime(t), nil

	case dataUTCTime:
		if len(v.Bytes) != 8 {
			return nil, fmt.Errorf("%w: utc-time of %d bytes", ErrMalformedPDU, len(v.Bytes))
		}
		seconds := binary.BigEndian.Uint32(v.Bytes[:4])
		fraction := uint32(v.Bytes[4])<<16 | uint32(v.Bytes[5])<<8 | uint32(v.Bytes[6])
		nanos := uint64(fraction) * 1_000_000_000 >> 24
		t := time.Unix(int64(seconds), int64(nanos)).UTC()
		return variant.NewUTCTime(t, variant.TimeQuality(v.Bytes[7])), nil

	case dataStructure, dataArray:
		members := make([]*variant.Value, 0, len(v.Children))
		for _, c := range v.Children {
			m, err := DecodeData(c)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		if v.TagNumber == dataArray {
			return variant.NewArray(members...), nil
		}
		return variant.NewStructure(members...), nil

	default:
		return nil, fmt.Errorf("%w: unknown data tag [%d]", ErrMalformedPDU, v.TagNumber)
	}
}
