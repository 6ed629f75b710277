// Package variant holds the typed value union for MMS Data. Every
// value decoded from or encoded into an MMS PDU is a Value with an
// explicit kind; structures and arrays nest recursively and keep
// declaration order, since IEC 61850 consumers address members both
// positionally and by name.
package variant

import (
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the Value union.
type Kind int

const (
	// Unknown is the zero Kind; no valid Value carries it.
	Unknown Kind = iota
	Bool
	Int
	Uint
	Float32
	Float64
	BitString
	OctetString
	VisibleString
	MMSString
	BinaryTime
	UTCTime
	Structure
	Array
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case BitString:
		return "bit-string"
	case OctetString:
		return "octet-string"
	case VisibleString:
		return "visible-string"
	case MMSString:
		return "mms-string"
	case BinaryTime:
		return "binary-time"
	case UTCTime:
		return "utc-time"
	case Structure:
		return "structure"
	case Array:
		return "array"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// TimeQuality is the quality octet of an MMS UtcTime: leap-second
// known, clock failure, not synchronized, and the count of valid
// fraction bits.
type TimeQuality byte

// Value is one typed MMS data value.
type Value struct {
	kind Kind

	boolVal   bool
	intVal    int64
	uintVal   uint64
	floatVal  float64
	bytesVal  []byte // bit-string, octet-string
	strVal    string
	timeVal   time.Time
	quality   TimeQuality
	bitCount  int // bit-string
	children  []Value
}

// Kind returns the discriminator.
func (v *Value) Kind() Kind {
	if v == nil {
		return Unknown
	}
	return v.kind
}

// NewBool builds a boolean value.
func NewBool(b bool) *Value { return &Value{kind: Bool, boolVal: b} }

// NewInt builds a signed integer value.
func NewInt(i int64) *Value { return &Value{kind: Int, intVal: i} }

// NewUint builds an unsigned integer value.
func NewUint(u uint64) *Value { return &Value{kind: Uint, uintVal: u} }

// NewFloat32 builds an IEEE 754 single precision value.
func NewFloat32(f float32) *Value { return &Value{kind: Float32, floatVal: float64(f)} }

// NewFloat64 builds an IEEE 754 double precision value.
func NewFloat64(f float64) *Value { return &Value{kind: Float64, floatVal: f} }

// NewBitString builds a bit string of bitCount bits.
func NewBitString(bits []byte, bitCount int) *Value {
	return &Value{kind: BitString, bytesVal: bits, bitCount: bitCount}
}

// NewOctetString builds an octet string value.
func NewOctetString(b []byte) *Value { return &Value{kind: OctetString, bytesVal: b} }

// NewVisibleString builds a visible string value.
func NewVisibleString(s string) *Value { return &Value{kind: VisibleString, strVal: s} }

// NewMMSString builds a UTF-8 MMS string value.
func NewMMSString(s string) *Value { return &Value{kind: MMSString, strVal: s} }

// NewBinaryTime builds a binary-time value.
func NewBinaryTime(t time.Time) *Value { return &Value{kind: BinaryTime, timeVal: t} }

// NewUTCTime builds a UTC time value with its quality octet.
func NewUTCTime(t time.Time, q TimeQuality) *Value {
	return &Value{kind: UTCTime, timeVal: t, quality: q}
}

// NewStructure builds a structure preserving member order.
func NewStructure(members ...*Value) *Value {
	v := &Value{kind: Structure}
	for _, m := range members {
		v.children = append(v.children, *m)
	}
	return v
}

// NewArray builds an array of uniform element type.
func NewArray(elements ...*Value) *Value {
	v := &Value{kind: Array}
	for _, e := range elements {
		v.children = append(v.children, *e)
	}
	return v
}

// Bool returns the boolean value, false on kind mismatch.
func (v *Value) Bool() bool {
	if v == nil || v.kind != Bool {
		return false
	}
	return v.boolVal
}

// Int returns the signed value; unsigned values convert when they fit.
func (v *Value) Int() int64 {
	if v == nil {
		return 0
	}
	switch v.kind {
	case Int:
		return v.intVal
	case Uint:
		return int64(v.uintVal)
	default:
		return 0
	}
}

// Uint returns the unsigned value; non-negative signed values convert.
func (v *Value) Uint() uint64 {
	if v == nil {
		return 0
	}
	switch v.kind {
	case Uint:
		return v.uintVal
	case Int:
		if v.intVal >= 0 {
			return uint64(v.intVal)
		}
	}
	return 0
}

// Float returns the floating-point value; integers convert.
func (v *Value) Float() float64 {
	if v == nil {
		return 0
	}
	switch v.kind {
	case Float32, Float64:
		return v.floatVal
	case Int:
		return float64(v.intVal)
	case Uint:
		return float64(v.uintVal)
	default:
		return 0
	}
}

// Bytes returns bit-string or octet-string content.
func (v *Value) Bytes() []byte {
	if v == nil {
		return nil
	}
	switch v.kind {
	case BitString, OctetString:
		return v.bytesVal
	default:
		return nil
	}
}

// BitCount returns the number of valid bits of a bit string.
func (v *Value) BitCount() int {
	if v == nil || v.kind != BitString {
		return 0
	}
	return v.bitCount
}

// Bit returns bit n of a bit string, most significant bit first.
func (v *Value) Bit(n int) bool {
	if v == nil || v.kind != BitString || n < 0 || n >= v.bitCount {
		return false
	}
	return v.bytesVal[n/8]&(0x80>>(n%8)) != 0
}

// Str returns string content, empty on kind mismatch.
func (v *Value) Str() string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case VisibleString, MMSString:
		return v.strVal
	default:
		return ""
	}
}

// Time returns the time of a utc-time or binary-time value.
func (v *Value) Time() time.Time {
	if v == nil {
		return time.Time{}
	}
	switch v.kind {
	case UTCTime, BinaryTime:
		return v.timeVal
	default:
		return time.Time{}
	}
}

// Quality returns the UtcTime quality octet.
func (v *Value) Quality() TimeQuality {
	if v == nil || v.kind != UTCTime {
		return 0
	}
	return v.quality
}

// Len returns the member count of a structure or array.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case Structure, Array:
		return len(v.children)
	default:
		return 0
	}
}

// Index returns member i of a structure or array, nil out of range.
func (v *Value) Index(i int) *Value {
	if v == nil || i < 0 || i >= v.Len() {
		return nil
	}
	return &v.children[i]
}

// Equal reports deep equality including kind.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Bool:
		return v.boolVal == other.boolVal
	case Int:
		return v.intVal == other.intVal
	case Uint:
		return v.uintVal == other.uintVal
	case Float32, Float64:
		return v.floatVal == other.floatVal
	case BitString:
		if v.bitCount != other.bitCount {
			return false
		}
		return bytesEqual(v.bytesVal, other.bytesVal)
	case OctetString:
		return bytesEqual(v.bytesVal, other.bytesVal)
	case VisibleString, MMSString:
		return v.strVal == other.strVal
	case BinaryTime:
		return v.timeVal.Equal(other.timeVal)
	case UTCTime:
		return v.timeVal.Equal(other.timeVal) && v.quality == other.quality
	case Structure, Array:
		if len(v.children) != len(other.children) {
			return false
		}
		for i := range v.children {
			if !v.children[i].Equal(&other.children[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the value as "kind(content)" for logs and tests.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	var b strings.Builder
	v.writeTo(&b)
	return b.String()
}

func (v *Value) writeTo(b *strings.Builder) {
	b.WriteString(v.kind.String())
	b.WriteByte('(')
	switch v.kind {
	case Bool:
		b.WriteString(strconv.FormatBool(v.boolVal))
	case Int:
		b.WriteString(strconv.FormatInt(v.intVal, 10))
	case Uint:
		b.WriteString(strconv.FormatUint(v.uintVal, 10))
	case Float32:
		b.WriteString(strconv.FormatFloat(v.floatVal, 'g', -1, 32))
	case Float64:
		b.WriteString(strconv.FormatFloat(v.floatVal, 'g', -1, 64))
	case BitString:
		for i := 0; i < v.bitCount; i++ {
			if v.Bit(i) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	case OctetString:
		for i, octet := range v.bytesVal {
			if i > 0 {
				b.WriteByte(' ')
			}
			const hexdigit = "0123456789abcdef"
			b.WriteByte(hexdigit[octet>>4])
			b.WriteByte(hexdigit[octet&0x0F])
		}
	case VisibleString, MMSString:
		b.WriteString(v.strVal)
	case BinaryTime, UTCTime:
		b.WriteString(v.timeVal.Format(time.RFC3339Nano))
	case Structure, Array:
		for i := range v.children {
			if i > 0 {
				b.WriteString(", ")
			}
			v.children[i].writeTo(b)
		}
	}
	b.WriteByte(')')
}
