package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// VariableAttributes is the getVariableAccessAttributes response.
type VariableAttributes struct {
	Deletable bool
	Type      TypeSpec
}

// BuildGetVariableAccessAttributesRequest builds a confirmed request
// for the type description of one named variable.
func BuildGetVariableAccessAttributesRequest(invokeID uint32, name ObjectName) ber.Value {
	service := ber.ContextSequence(ServiceGetVariableAccessAttributes,
		name.value(0), // name
	)
	return confirmedRequest(invokeID, service)
}

// ParseGetVariableAccessAttributesResponse decodes the deletable flag
// and the type specification.
func ParseGetVariableAccessAttributesResponse(service ber.Value) (VariableAttributes, error) {
	var attrs VariableAttributes
	if deletable, ok := service.Child(0); ok {
		attrs.Deletable = len(deletable.Bytes) == 1 && deletable.Bytes[0] != 0
	}
	spec, ok := service.Child(2)
	if !ok || len(spec.Children) != 1 {
		return VariableAttributes{}, fmt.Errorf("%w: variable attributes without type specification", ErrMalformedPDU)
	}
	t, err := ParseTypeSpecification(spec.Children[0])
	if err != nil {
		return VariableAttributes{}, err
	}
	attrs.Type = t
	return attrs, nil
}
