package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// ObjectClass selects what a getNameList enumerates.
type ObjectClass int

const (
	ClassNamedVariable     ObjectClass = 0
	ClassNamedVariableList ObjectClass = 2
	ClassDomain            ObjectClass = 9
)

// NameListPage is one getNameList response. MoreFollows signals that a
// follow-up request with ContinueAfter set to the last identifier is
// needed to complete the listing.
type NameListPage struct {
	Identifiers []string
	MoreFollows bool
}

// BuildGetNameListRequest builds a confirmed getNameList. An empty
// domain scopes the listing to the whole VMD; continueAfter resumes a
// paged listing after the given identifier.
func BuildGetNameListRequest(invokeID uint32, class ObjectClass, domain, continueAfter string) ber.Value {
	classContent := ber.AppendUint(nil, ber.Integer, uint64(class))
	objectClass := ber.ContextSequence(0,
		ber.ContextValue(0, classContent[2:]), // basicObjectClass
	)

	var scope ber.Value
	if domain == "" {
		scope = ber.ContextSequence(1, ber.ContextValue(0, nil)) // vmdSpecific
	} else {
		scope = ber.ContextSequence(1, ber.ContextValue(1, []byte(domain)))
	}

	children := []ber.Value{objectClass, scope}
	if continueAfter != "" {
		children = append(children, ber.ContextValue(2, []byte(continueAfter)))
	}
	service := ber.ContextSequence(ServiceGetNameList, children...)
	return confirmedRequest(invokeID, service)
}

// ParseGetNameListResponse decodes one listing page.
func ParseGetNameListResponse(service ber.Value) (NameListPage, error) {
	list, ok := service.Child(0)
	if !ok {
		return NameListPage{}, fmt.Errorf("%w: getNameList response without listOfIdentifier", ErrMalformedPDU)
	}
	page := NameListPage{Identifiers: make([]string, 0, len(list.Children))}
	for _, c := range list.Children {
		page.Identifiers = append(page.Identifiers, string(c.Bytes))
	}
	if more, ok := service.Child(1); ok {
		page.MoreFollows = len(more.Bytes) == 1 && more.Bytes[0] != 0
	}
	return page, nil
}
