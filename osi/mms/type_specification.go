package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/osi/mms/variant"
)

// TypeSpecification CHOICE tags per ISO 9506-2.
const (
	typeArray         = 1
	typeStructure     = 2
	typeBoolean       = 3
	typeBitString     = 4
	typeInteger       = 5
	typeUnsigned      = 6
	typeFloatingPoint = 7
	typeOctetString   = 9
	typeVisibleString = 10
	typeBinaryTime    = 12
	typeMMSString     = 16
	typeUTCTime       = 17
)

// TypeSpec describes the type of a variable as reported by the server.
// Size carries the kind-dependent width: bits for integers and bit
// strings, octets for octet and character strings. A negative on-wire
// width means fixed rather than maximum; it is normalized here into
// Size plus the Fixed flag.
type TypeSpec struct {
	Kind  variant.Kind
	Size  int
	Fixed bool

	// Floating-point widths in bits.
	FormatWidth   int
	ExponentWidth int

	// Array shape.
	Packed   bool
	Elements int
	Element  *TypeSpec

	// Structure members in declaration order.
	Components []Component
}

// Component is one named structure member.
type Component struct {
	Name string
	Type TypeSpec
}

// Component returns the member with the given name, or false.
func (t *TypeSpec) Component(name string) (*TypeSpec, bool) {
	for i := range t.Components {
		if t.Components[i].Name == name {
			return &t.Components[i].Type, true
		}
	}
	return nil, false
}

// String renders the type shape for logs and error messages.
func (t *TypeSpec) String() string {
	switch t.Kind {
	case variant.Structure:
		return fmt.Sprintf("structure[%d]", len(t.Components))
	case variant.Array:
		return fmt.Sprintf("array[%d]%s", t.Elements, t.Element.String())
	case variant.Int, variant.Uint, variant.BitString:
		return fmt.Sprintf("%s%d", t.Kind, t.Size)
	default:
		return t.Kind.String()
	}
}

// ParseTypeSpecification decodes the TypeSpecification CHOICE from a
// GetVariableAccessAttributes response.
func ParseTypeSpecification(v ber.Value) (TypeSpec, error) {
	if v.Class != ber.ClassContextSpecific {
		return TypeSpec{}, fmt.Errorf("%w: type specification has class %v", ErrMalformedPDU, v.Class)
	}

	switch v.TagNumber {
	case typeBoolean:
		return TypeSpec{Kind: variant.Bool}, nil

	case typeBitString:
		size, fixed := normalizeWidth(v.Bytes)
		return TypeSpec{Kind: variant.BitString, Size: size, Fixed: fixed}, nil

	case typeInteger:
		return TypeSpec{Kind: variant.Int, Size: int(ber.DecodeInt32(v.Bytes, len(v.Bytes), 0))}, nil

	case typeUnsigned:
		return TypeSpec{Kind: variant.Uint, Size: int(ber.DecodeInt32(v.Bytes, len(v.Bytes), 0))}, nil

	case typeFloatingPoint:
		return parseFloatSpec(v)

	case typeOctetString:
		size, fixed := normalizeWidth(v.Bytes)
		return TypeSpec{Kind: variant.OctetString, Size: size, Fixed: fixed}, nil

	case typeVisibleString:
		size, fixed := normalizeWidth(v.Bytes)
		return TypeSpec{Kind: variant.VisibleString, Size: size, Fixed: fixed}, nil

	case typeMMSString:
		size, fixed := normalizeWidth(v.Bytes)
		return TypeSpec{Kind: variant.MMSString, Size: size, Fixed: fixed}, nil

	case typeBinaryTime:
		return TypeSpec{Kind: variant.BinaryTime}, nil

	case typeUTCTime:
		return TypeSpec{Kind: variant.UTCTime}, nil

	case typeArray:
		return parseArraySpec(v)

	case typeStructure:
		return parseStructureSpec(v)

	default:
		return TypeSpec{}, fmt.Errorf("%w: unknown type specification tag [%d]", ErrMalformedPDU, v.TagNumber)
	}
}

// normalizeWidth maps the signed on-wire width onto size and the fixed
// flag. Servers report fixed widths as negative values, e.g. a 13 bit
// quality attribute arrives as -13.
func normalizeWidth(content []byte) (size int, fixed bool) {
	w := int(ber.DecodeInt32(content, len(content), 0))
	if w < 0 {
		return -w, true
	}
	return w, false
}

func parseFloatSpec(v ber.Value) (TypeSpec, error) {
	if len(v.Children) != 2 {
		return TypeSpec{}, fmt.Errorf("%w: floating-point spec needs format and exponent width", ErrMalformedPDU)
	}
	format := int(ber.DecodeUint32(v.Children[0].Bytes, len(v.Children[0].Bytes), 0))
	exponent := int(ber.DecodeUint32(v.Children[1].Bytes, len(v.Children[1].Bytes), 0))

	spec := TypeSpec{FormatWidth: format, ExponentWidth: exponent}
	switch format {
	case 32:
		spec.Kind = variant.Float32
	case 64:
		spec.Kind = variant.Float64
	default:
		return TypeSpec{}, fmt.Errorf("%w: floating-point format width %d", ErrMalformedPDU, format)
	}
	return spec, nil
}

func parseArraySpec(v ber.Value) (TypeSpec, error) {
	spec := TypeSpec{Kind: variant.Array}
	for _, c := range v.Children {
		switch {
		case c.Context(0): // packed
			spec.Packed = len(c.Bytes) == 1 && c.Bytes[0] != 0
		case c.Context(1): // numberOfElements
			spec.Elements = int(ber.DecodeUint32(c.Bytes, len(c.Bytes), 0))
		case c.Context(2): // elementType, explicit
			if len(c.Children) != 1 {
				return TypeSpec{}, fmt.Errorf("%w: array element type missing", ErrMalformedPDU)
			}
			element, err := ParseTypeSpecification(c.Children[0])
			if err != nil {
				return TypeSpec{}, err
			}
			spec.Element = &element
		}
	}
	if spec.Element == nil {
		return TypeSpec{}, fmt.Errorf("%w: array without element type", ErrMalformedPDU)
	}
	return spec, nil
}

func parseStructureSpec(v ber.Value) (TypeSpec, error) {
	components, ok := v.Child(1)
	if !ok {
		return TypeSpec{}, fmt.Errorf("%w: structure without components", ErrMalformedPDU)
	}

	spec := TypeSpec{Kind: variant.Structure}
	for _, member := range components.Children {
		if member.Class != ber.ClassUniversal || member.TagNumber != uint32(ber.Sequence) {
			return TypeSpec{}, fmt.Errorf("%w: structure component is not a sequence", ErrMalformedPDU)
		}
		var comp Component
		seen := false
		for _, f := range member.Children {
			switch {
			case f.Context(0): // componentName
				comp.Name = string(f.Bytes)
			case f.Context(1): // componentType, explicit
				if len(f.Children) != 1 {
					return TypeSpec{}, fmt.Errorf("%w: component type missing", ErrMalformedPDU)
				}
				t, err := ParseTypeSpecification(f.Children[0])
				if err != nil {
					return TypeSpec{}, err
				}
				comp.Type = t
				seen = true
			}
		}
		if !seen {
			return TypeSpec{}, fmt.Errorf("%w: component %q without type", ErrMalformedPDU, comp.Name)
		}
		spec.Components = append(spec.Components, comp)
	}
	return spec, nil
}
