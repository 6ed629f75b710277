// Package mms builds and parses the MMS (ISO 9506) protocol data
// units of the IEC 61850-8-1 client mapping. Requests are produced as
// ber.Value trees ready for the presentation layer; inbound PDUs are
// classified by DecodePDU and handed to the per-service parsers.
package mms

import (
	"errors"
	"fmt"

	"github.com/grid61850/mms/ber"
)

// Outer PDU choice tags.
const (
	tagConfirmedRequest  = 0
	tagConfirmedResponse = 1
	tagConfirmedError    = 2
	tagUnconfirmed       = 3
	tagReject            = 4
	tagInitiateRequest   = 8
	tagInitiateResponse  = 9
	tagInitiateError     = 10
	tagConcludeRequest   = 11
	tagConcludeResponse  = 12
)

// Confirmed service choice tags.
const (
	ServiceStatus                         = 0
	ServiceGetNameList                    = 1
	ServiceIdentify                       = 2
	ServiceRead                           = 4
	ServiceWrite                          = 5
	ServiceGetVariableAccessAttributes    = 6
	ServiceDefineNamedVariableList        = 11
	ServiceGetNamedVariableListAttributes = 12
	ServiceDeleteNamedVariableList        = 13
)

var (
	// ErrUnsupportedService reports a response whose service choice
	// this client does not implement.
	ErrUnsupportedService = errors.New("mms: unsupported service")
	// ErrMalformedPDU reports a structurally invalid MMS PDU.
	ErrMalformedPDU = errors.New("mms: malformed PDU")
)

// PDUKind discriminates decoded PDUs.
type PDUKind int

const (
	KindConfirmedRequest PDUKind = iota
	KindConfirmedResponse
	KindConfirmedError
	KindUnconfirmed
	KindReject
	KindInitiateResponse
	KindInitiateError
	KindConcludeResponse
)

// PDU is one decoded MMS PDU, classified but with the service payload
// left as a raw tree for the per-service parsers.
type PDU struct {
	Kind       PDUKind
	InvokeID   uint32
	ServiceTag uint32    // confirmed request/response: service choice tag
	Service    ber.Value // service payload (or whole PDU body for initiate)
	Error      *ServiceError
	Reject     *RejectError
}

// ServiceName returns the name of a confirmed service choice tag.
func ServiceName(tag uint32) string {
	switch tag {
	case ServiceStatus:
		return "status"
	case ServiceGetNameList:
		return "getNameList"
	case ServiceIdentify:
		return "identify"
	case ServiceRead:
		return "read"
	case ServiceWrite:
		return "write"
	case ServiceGetVariableAccessAttributes:
		return "getVariableAccessAttributes"
	case ServiceDefineNamedVariableList:
		return "defineNamedVariableList"
	case ServiceGetNamedVariableListAttributes:
		return "getNamedVariableListAttributes"
	case ServiceDeleteNamedVariableList:
		return "deleteNamedVariableList"
	default:
		return fmt.Sprintf("service-%d", tag)
	}
}

func invokeIDValue(invokeID uint32) ber.Value {
	content := ber.AppendUint(nil, ber.Integer, uint64(invokeID))
	return ber.Primitive(ber.ClassUniversal, uint32(ber.Integer), content[2:])
}

// confirmedRequest assembles a confirmed-RequestPDU around one service
// choice; the service value carries its own context tag.
func confirmedRequest(invokeID uint32, service ber.Value) ber.Value {
	return ber.ContextSequence(tagConfirmedRequest, invokeIDValue(invokeID), service)
}

// DecodePDU classifies one inbound MMS PDU.
func DecodePDU(v ber.Value) (*PDU, error) {
	if v.Class != ber.ClassContextSpecific {
		return nil, fmt.Errorf("%w: unexpected class %v", ErrMalformedPDU, v.Class)
	}

	switch v.TagNumber {
	case tagConfirmedRequest, tagConfirmedResponse:
		return decodeConfirmed(v)
	case tagConfirmedError:
		return decodeConfirmedError(v)
	case tagUnconfirmed:
		return &PDU{Kind: KindUnconfirmed, Service: v}, nil
	case tagReject:
		return decodeReject(v)
	case tagInitiateResponse:
		return &PDU{Kind: KindInitiateResponse, Service: v}, nil
	case tagInitiateError:
		return &PDU{Kind: KindInitiateError, Service: v}, nil
	case tagConcludeResponse:
		return &PDU{Kind: KindConcludeResponse}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PDU tag %d", ErrMalformedPDU, v.TagNumber)
	}
}

func decodeConfirmed(v ber.Value) (*PDU, error) {
	kind := KindConfirmedRequest
	if v.TagNumber == tagConfirmedResponse {
		kind = KindConfirmedResponse
	}
	if len(v.Children) < 2 {
		return nil, fmt.Errorf("%w: confirmed PDU needs invokeID and service", ErrMalformedPDU)
	}
	id := v.Children[0]
	if id.Class != ber.ClassUniversal || id.TagNumber != uint32(ber.Integer) {
		return nil, fmt.Errorf("%w: invokeID missing", ErrMalformedPDU)
	}
	service := v.Children[1]
	if service.Class != ber.ClassContextSpecific {
		return nil, fmt.Errorf("%w: service choice missing", ErrMalformedPDU)
	}
	return &PDU{
		Kind:       kind,
		InvokeID:   ber.DecodeUint32(id.Bytes, len(id.Bytes), 0),
		ServiceTag: service.TagNumber,
		Service:    service,
	}, nil
}

func decodeConfirmedError(v ber.Value) (*PDU, error) {
	pdu := &PDU{Kind: KindConfirmedError}
	for _, c := range v.Children {
		switch {
		case c.Context(0):
			pdu.InvokeID = ber.DecodeUint32(c.Bytes, len(c.Bytes), 0)
		case c.Context(2):
			pdu.Error = parseServiceError(c)
		}
	}
	if pdu.Error == nil {
		return nil, fmt.Errorf("%w: confirmed-error without serviceError", ErrMalformedPDU)
	}
	return pdu, nil
}

func decodeReject(v ber.Value) (*PDU, error) {
	pdu := &PDU{Kind: KindReject, Reject: &RejectError{}}
	for _, c := range v.Children {
		if c.Class != ber.ClassContextSpecific || c.Constructed {
			continue
		}
		if c.TagNumber == 0 {
			pdu.InvokeID = ber.DecodeUint32(c.Bytes, len(c.Bytes), 0)
			pdu.Reject.HasInvokeID = true
			continue
		}
		pdu.Reject.PDUType = int(c.TagNumber)
		if len(c.Bytes) > 0 {
			pdu.Reject.Code = int(c.Bytes[0])
		}
	}
	return pdu, nil
}

// ObjectName is the MMS object naming CHOICE; this client uses the
// vmd-specific and domain-specific forms.
type ObjectName struct {
	Domain string // empty for vmd-specific names
	Item   string
}

func (n ObjectName) String() string {
	if n.Domain == "" {
		return n.Item
	}
	return n.Domain + "/" + n.Item
}

// choice encodes the bare ObjectName CHOICE: vmd-specific [0] or
// domain-specific [1].
func (n ObjectName) choice() ber.Value {
	if n.Domain == "" {
		return ber.ContextValue(0, []byte(n.Item))
	}
	return ber.ContextSequence(1,
		ber.Primitive(ber.ClassUniversal, uint32(ber.VisibleString), []byte(n.Domain)),
		ber.Primitive(ber.ClassUniversal, uint32(ber.VisibleString), []byte(n.Item)),
	)
}

// value wraps the ObjectName CHOICE under an explicit context tag.
func (n ObjectName) value(tag uint32) ber.Value {
	return ber.ContextSequence(tag, n.choice())
}

func parseObjectName(v ber.Value) (ObjectName, error) {
	if len(v.Children) != 1 {
		return ObjectName{}, fmt.Errorf("%w: empty object name", ErrMalformedPDU)
	}
	choice := v.Children[0]
	switch {
	case choice.Context(0): // vmd-specific
		return ObjectName{Item: string(choice.Bytes)}, nil
	case choice.Context(1): // domain-specific
		if len(choice.Children) != 2 {
			return ObjectName{}, fmt.Errorf("%w: domain-specific name needs domain and item", ErrMalformedPDU)
		}
		return ObjectName{
			Domain: string(choice.Children[0].Bytes),
			Item:   string(choice.Children[1].Bytes),
		}, nil
	default:
		return ObjectName{}, fmt.Errorf("%w: unsupported object name form [%d]", ErrMalformedPDU, choice.TagNumber)
	}
}

// variableSpecification builds the listOfVariable entry for one name.
func variableSpecification(name ObjectName) ber.Value {
	return ber.Constructed(ber.ClassUniversal, uint32(ber.Sequence),
		name.value(0), // variableSpecification: name [0]
	)
}
