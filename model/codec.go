package model

import (
	"errors"
	"fmt"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/mms/variant"
)

// ErrTypeMismatch reports a value that does not fit its descriptor.
var ErrTypeMismatch = errors.New("model: type mismatch")

// CheckValue verifies that a value matches the type descriptor:
// matching kind, structure arity, declared array length and fixed bit
// string width.
func CheckValue(spec *mms.TypeSpec, v *variant.Value) error {
	if spec == nil {
		return nil
	}
	if v.Kind() != spec.Kind {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.Kind(), spec)
	}

	switch spec.Kind {
	case variant.BitString:
		if spec.Fixed && v.BitCount() != spec.Size {
			return fmt.Errorf("%w: %d bits, want exactly %d", ErrTypeMismatch, v.BitCount(), spec.Size)
		}

	case variant.Structure:
		if v.Len() != len(spec.Components) {
			return fmt.Errorf("%w: structure of %d members, want %d", ErrTypeMismatch, v.Len(), len(spec.Components))
		}
		for i := range spec.Components {
			if err := CheckValue(&spec.Components[i].Type, v.Index(i)); err != nil {
				return fmt.Errorf("%s: %w", spec.Components[i].Name, err)
			}
		}

	case variant.Array:
		if spec.Elements > 0 && v.Len() != spec.Elements {
			return fmt.Errorf("%w: array of %d elements, want %d", ErrTypeMismatch, v.Len(), spec.Elements)
		}
		for i := 0; i < v.Len(); i++ {
			if err := CheckValue(spec.Element, v.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// DecodeValue decodes an MMS Data value and verifies it against the
// descriptor. A nil descriptor skips the check.
func DecodeValue(spec *mms.TypeSpec, data ber.Value) (*variant.Value, error) {
	v, err := mms.DecodeData(data)
	if err != nil {
		return nil, err
	}
	if err := CheckValue(spec, v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeValue verifies the value against the descriptor and encodes it
// as MMS Data.
func EncodeValue(spec *mms.TypeSpec, v *variant.Value) (ber.Value, error) {
	if err := CheckValue(spec, v); err != nil {
		return ber.Value{}, err
	}
	return mms.EncodeData(v)
}
