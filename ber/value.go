package ber

import "fmt"

// Value is one decoded TLV node. Constructed values own their children
// exclusively; primitive values carry the raw content octets.
type Value struct {
	Class       TagClass
	TagNumber   uint32
	Constructed bool
	Bytes       []byte  // primitive content, nil for constructed
	Children    []Value // constructed content, nil for primitive
}

// Primitive builds a primitive node.
func Primitive(class TagClass, tagNumber uint32, content []byte) Value {
	return Value{Class: class, TagNumber: tagNumber, Bytes: content}
}

// Constructed builds a constructed node from its children.
func Constructed(class TagClass, tagNumber uint32, children ...Value) Value {
	return Value{Class: class, TagNumber: tagNumber, Constructed: true, Children: children}
}

// ContextValue builds a context-specific primitive node [n].
func ContextValue(tagNumber uint32, content []byte) Value {
	return Primitive(ClassContextSpecific, tagNumber, content)
}

// ContextSequence builds a context-specific constructed node [n].
func ContextSequence(tagNumber uint32, children ...Value) Value {
	return Constructed(ClassContextSpecific, tagNumber, children...)
}

// contentLength returns the encoded content size without tag and
// length octets.
func (v Value) contentLength() int {
	if !v.Constructed {
		return len(v.Bytes)
	}
	total := 0
	for _, c := range v.Children {
		total += c.encodedLength()
	}
	return total
}

// encodedLength returns the full encoded size including identifier and
// length octets.
func (v Value) encodedLength() int {
	content := v.contentLength()
	return tagSize(v.TagNumber) + LengthSize(content) + content
}

func tagSize(tagNumber uint32) int {
	if tagNumber < 0x1F {
		return 1
	}
	size := 2
	for tagNumber >= 0x80 {
		tagNumber >>= 7
		size++
	}
	return size
}

func appendTag(dst []byte, class TagClass, constructed bool, tagNumber uint32) []byte {
	lead := byte(class)
	if constructed {
		lead |= byte(FormConstructed)
	}
	if tagNumber < 0x1F {
		return append(dst, lead|byte(tagNumber))
	}
	dst = append(dst, lead|0x1F)
	// Base-128 big-endian, continuation bit on all but the last octet.
	shift := 0
	for tagNumber>>(shift+7) != 0 {
		shift += 7
	}
	for ; shift > 0; shift -= 7 {
		dst = append(dst, 0x80|byte(tagNumber>>shift&0x7F))
	}
	return append(dst, byte(tagNumber&0x7F))
}

// Append encodes the value onto dst using definite-form lengths.
func (v Value) Append(dst []byte) []byte {
	dst = appendTag(dst, v.Class, v.Constructed, v.TagNumber)
	dst = AppendLength(dst, v.contentLength())
	if !v.Constructed {
		return append(dst, v.Bytes...)
	}
	for _, c := range v.Children {
		dst = c.Append(dst)
	}
	return dst
}

// Encode returns the full encoding of the value.
func (v Value) Encode() []byte {
	return v.Append(make([]byte, 0, v.encodedLength()))
}

// Decode decodes one TLV from the start of buffer and returns the
// value and the number of bytes consumed. Indefinite-length
// constructed values are accepted and terminated by an end-of-contents
// marker; re-encoding normalizes them to definite form.
func Decode(buffer []byte) (Value, int, error) {
	return decodeValue(buffer, 0)
}

// DecodeAll decodes a sequence of sibling TLVs filling the buffer.
func DecodeAll(buffer []byte) ([]Value, error) {
	var values []Value
	pos := 0
	for pos < len(buffer) {
		v, n, err := decodeValue(buffer[pos:], 0)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		pos += n
	}
	return values, nil
}

func decodeValue(buffer []byte, depth int) (Value, int, error) {
	if depth > maxDepth {
		return Value{}, 0, ErrMaxDepthExceeded
	}
	if len(buffer) == 0 {
		return Value{}, 0, ErrBufferOverflow
	}

	var v Value
	lead := buffer[0]
	v.Class = TagClass(lead & 0xC0)
	v.Constructed = lead&byte(FormConstructed) != 0
	pos := 1

	if lead&0x1F != 0x1F {
		v.TagNumber = uint32(lead & 0x1F)
	} else {
		// High tag number: base-128 with continuation bits.
		var n uint32
		for {
			if pos >= len(buffer) {
				return Value{}, 0, ErrBufferOverflow
			}
			if n > 1<<24 {
				return Value{}, 0, fmt.Errorf("%w: tag number too large", ErrMalformedEncoding)
			}
			octet := buffer[pos]
			pos++
			n = n<<7 | uint32(octet&0x7F)
			if octet&0x80 == 0 {
				break
			}
		}
		v.TagNumber = n
	}

	if pos >= len(buffer) {
		return Value{}, 0, ErrBufferOverflow
	}

	if buffer[pos] == 0x80 {
		// Indefinite length, constructed only.
		if !v.Constructed {
			return Value{}, 0, ErrInvalidLength
		}
		pos++
		for {
			if pos+1 >= len(buffer) {
				return Value{}, 0, ErrInvalidIndefinite
			}
			if buffer[pos] == 0x00 && buffer[pos+1] == 0x00 {
				pos += 2
				return v, pos, nil
			}
			child, n, err := decodeValue(buffer[pos:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			v.Children = append(v.Children, child)
			pos += n
		}
	}

	newPos, length, err := DecodeLength(buffer, pos, len(buffer))
	if err != nil {
		return Value{}, 0, err
	}
	pos = newPos
	end := pos + length

	if !v.Constructed {
		v.Bytes = buffer[pos:end:end]
		return v, end, nil
	}

	for pos < end {
		child, n, err := decodeValue(buffer[pos:end], depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		v.Children = append(v.Children, child)
		pos += n
	}
	if pos != end {
		return Value{}, 0, ErrInvalidLength
	}
	return v, end, nil
}

// Equal reports deep equality of two values.
func (v Value) Equal(other Value) bool {
	if v.Class != other.Class || v.TagNumber != other.TagNumber || v.Constructed != other.Constructed {
		return false
	}
	if !v.Constructed {
		if len(v.Bytes) != len(other.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != other.Bytes[i] {
				return false
			}
		}
		return true
	}
	if len(v.Children) != len(other.Children) {
		return false
	}
	for i := range v.Children {
		if !v.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Context reports whether the value is context-specific with the given
// tag number.
func (v Value) Context(tagNumber uint32) bool {
	return v.Class == ClassContextSpecific && v.TagNumber == tagNumber
}

// Child returns the first context-specific child [n], or false.
func (v Value) Child(tagNumber uint32) (Value, bool) {
	for _, c := range v.Children {
		if c.Context(tagNumber) {
			return c, true
		}
	}
	return Value{}, false
}
