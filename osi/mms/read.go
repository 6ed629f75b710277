package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/osi/mms/variant"
)

// AccessResult is the per-variable outcome of a read: either a decoded
// value or the server's data access error.
type AccessResult struct {
	Value *variant.Value
	Err   error
}

// listOfVariable wraps the variable specifications into the
// VariableAccessSpecification CHOICE.
func listOfVariable(names []ObjectName) ber.Value {
	specs := make([]ber.Value, 0, len(names))
	for _, n := range names {
		specs = append(specs, variableSpecification(n))
	}
	return ber.ContextSequence(1, // variableAccessSpecification, explicit
		ber.ContextSequence(0, specs...), // listOfVariable
	)
}

// BuildReadRequest builds a confirmed read for one or more named
// variables. Results arrive in request order.
func BuildReadRequest(invokeID uint32, names ...ObjectName) ber.Value {
	service := ber.ContextSequence(ServiceRead, listOfVariable(names))
	return confirmedRequest(invokeID, service)
}

// BuildReadNamedVariableListRequest builds a confirmed read of a whole
// named variable list; the server returns one AccessResult per member.
func BuildReadNamedVariableListRequest(invokeID uint32, list ObjectName) ber.Value {
	service := ber.ContextSequence(ServiceRead,
		ber.ContextSequence(1, // variableAccessSpecification, explicit
			list.value(1), // variableListName
		),
	)
	return confirmedRequest(invokeID, service)
}

// ParseReadResponse decodes the listOfAccessResult of a read response.
func ParseReadResponse(service ber.Value) ([]AccessResult, error) {
	list, ok := service.Child(1)
	if !ok {
		return nil, fmt.Errorf("%w: read response without listOfAccessResult", ErrMalformedPDU)
	}
	results := make([]AccessResult, 0, len(list.Children))
	for _, c := range list.Children {
		if c.Context(0) { // failure
			code := DataAccessErrorCode(ber.DecodeUint32(c.Bytes, len(c.Bytes), 0))
			results = append(results, AccessResult{Err: &DataAccessError{Code: code}})
			continue
		}
		value, err := DecodeData(c)
		if err != nil {
			return nil, err
		}
		results = append(results, AccessResult{Value: value})
	}
	return results, nil
}
