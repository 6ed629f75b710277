package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/osi/mms/variant"
)

// BuildWriteRequest builds a confirmed write pairing each name with
// the value at the same index.
func BuildWriteRequest(invokeID uint32, names []ObjectName, values []*variant.Value) (ber.Value, error) {
	if len(names) != len(values) {
		return ber.Value{}, fmt.Errorf("%w: %d names for %d values", ErrMalformedPDU, len(names), len(values))
	}
	data := make([]ber.Value, 0, len(values))
	for _, v := range values {
		d, err := EncodeData(v)
		if err != nil {
			return ber.Value{}, err
		}
		data = append(data, d)
	}
	return BuildWriteDataRequest(invokeID, names, data), nil
}

// BuildWriteDataRequest builds a confirmed write from already encoded
// Data values, letting callers encode and fail before an invoke-ID is
// spent.
func BuildWriteDataRequest(invokeID uint32, names []ObjectName, data []ber.Value) ber.Value {
	specs := make([]ber.Value, 0, len(names))
	for _, n := range names {
		specs = append(specs, variableSpecification(n))
	}
	// The variable access specification CHOICE and listOfData are both
	// implicit [0]; order disambiguates them.
	service := ber.ContextSequence(ServiceWrite,
		ber.ContextSequence(0, specs...),
		ber.ContextSequence(0, data...),
	)
	return confirmedRequest(invokeID, service)
}

// ParseWriteResponse decodes the per-variable write outcomes, nil for
// success and a DataAccessError for failure, in request order.
func ParseWriteResponse(service ber.Value) ([]error, error) {
	results := make([]error, 0, len(service.Children))
	for _, c := range service.Children {
		switch {
		case c.Context(0): // failure
			code := DataAccessErrorCode(ber.DecodeUint32(c.Bytes, len(c.Bytes), 0))
			results = append(results, &DataAccessError{Code: code})
		case c.Context(1): // success
			results = append(results, nil)
		default:
			return nil, fmt.Errorf("%w: unexpected write result tag [%d]", ErrMalformedPDU, c.TagNumber)
		}
	}
	return results, nil
}
