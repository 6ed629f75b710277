package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// NamedVariableListAttributes is the getNamedVariableListAttributes
// response: the members of a server-side data set in definition order.
type NamedVariableListAttributes struct {
	Deletable bool
	Members   []ObjectName
}

// BuildGetNamedVariableListAttributesRequest builds a confirmed
// request for the member list of a named variable list.
func BuildGetNamedVariableListAttributesRequest(invokeID uint32, list ObjectName) ber.Value {
	// The request is the bare ObjectName CHOICE, so the service tag is
	// explicit around it.
	return confirmedRequest(invokeID, list.value(ServiceGetNamedVariableListAttributes))
}

// ParseGetNamedVariableListAttributesResponse decodes the deletable
// flag and the member names.
func ParseGetNamedVariableListAttributesResponse(service ber.Value) (NamedVariableListAttributes, error) {
	var attrs NamedVariableListAttributes
	if deletable, ok := service.Child(0); ok {
		attrs.Deletable = len(deletable.Bytes) == 1 && deletable.Bytes[0] != 0
	}
	list, ok := service.Child(1)
	if !ok {
		return NamedVariableListAttributes{}, fmt.Errorf("%w: named variable list without listOfVariable", ErrMalformedPDU)
	}
	for _, entry := range list.Children {
		if len(entry.Children) == 0 {
			return NamedVariableListAttributes{}, fmt.Errorf("%w: empty variable specification", ErrMalformedPDU)
		}
		spec := entry.Children[0]
		if !spec.Context(0) {
			return NamedVariableListAttributes{}, fmt.Errorf("%w: unsupported variable specification [%d]", ErrMalformedPDU, spec.TagNumber)
		}
		name, err := parseObjectName(spec)
		if err != nil {
			return NamedVariableListAttributes{}, err
		}
		attrs.Members = append(attrs.Members, name)
	}
	return attrs, nil
}

// BuildDefineNamedVariableListRequest builds a confirmed request
// creating a named variable list with the given members.
func BuildDefineNamedVariableListRequest(invokeID uint32, list ObjectName, members []ObjectName) ber.Value {
	specs := make([]ber.Value, 0, len(members))
	for _, m := range members {
		specs = append(specs, variableSpecification(m))
	}
	// The list name is a bare CHOICE followed by listOfVariable [0];
	// order disambiguates a vmd-specific name from the member list.
	service := ber.ContextSequence(ServiceDefineNamedVariableList,
		list.choice(),
		ber.ContextSequence(0, specs...),
	)
	return confirmedRequest(invokeID, service)
}

// DeleteResult is the deleteNamedVariableList response.
type DeleteResult struct {
	Matched uint32
	Deleted uint32
}

// BuildDeleteNamedVariableListRequest builds a confirmed request
// deleting the named lists.
func BuildDeleteNamedVariableListRequest(invokeID uint32, lists ...ObjectName) ber.Value {
	names := make([]ber.Value, 0, len(lists))
	for _, l := range lists {
		names = append(names, l.choice())
	}
	service := ber.ContextSequence(ServiceDeleteNamedVariableList,
		ber.ContextValue(0, []byte{0x01}), // scopeOfDelete: specific
		ber.ContextSequence(1, names...),  // listOfVariableListName
	)
	return confirmedRequest(invokeID, service)
}

// ParseDeleteNamedVariableListResponse decodes the matched and deleted
// counters. A partial delete is the caller's condition to detect.
func ParseDeleteNamedVariableListResponse(service ber.Value) (DeleteResult, error) {
	matched, okM := service.Child(0)
	deleted, okD := service.Child(1)
	if !okM || !okD {
		return DeleteResult{}, fmt.Errorf("%w: delete response needs matched and deleted counts", ErrMalformedPDU)
	}
	return DeleteResult{
		Matched: ber.DecodeUint32(matched.Bytes, len(matched.Bytes), 0),
		Deleted: ber.DecodeUint32(deleted.Bytes, len(deleted.Bytes), 0),
	}, nil
}
