// Package presentation implements the ISO 8823 connection-oriented
// presentation protocol subset used by MMS: the CP/CPA connect
// exchange defining the ACSE and MMS abstract-syntax contexts, and
// fully-encoded-data user PDUs for the data phase.
package presentation

import (
	"errors"
	"fmt"

	"github.com/grid61850/mms/ber"
)

// Presentation context identifiers assigned in the CP PPDU.
const (
	ContextACSE = 1 // id-as-acse, 2.2.1.0.1
	ContextMMS  = 3 // mms-abstract-syntax-version1, 1.0.9506.2.1
)

var (
	// ErrProtocol reports a malformed or unexpected PPDU.
	ErrProtocol = errors.New("presentation: protocol error")
	// ErrRejected reports a CPR (connect reject) from the peer.
	ErrRejected = errors.New("presentation: connection rejected")
)

var (
	oidACSE          = []byte{0x52, 0x01, 0x00, 0x01}       // 2.2.1.0.1
	oidMMS           = []byte{0x28, 0xCA, 0x22, 0x02, 0x01} // 1.0.9506.2.1
	oidBER           = []byte{0x51, 0x01}                   // 2.1.1 basic-encoding
	defaultPSelector = []byte{0x00, 0x00, 0x00, 0x01}
)

// PPDU is one parsed presentation PDU: the context the payload was
// sent in and the single ASN.1 value it carries.
type PPDU struct {
	ContextID int
	PDU       ber.Value
}

func contextDefinition(id int, abstractSyntax []byte) ber.Value {
	return ber.Constructed(ber.ClassUniversal, uint32(ber.Sequence),
		ber.Primitive(ber.ClassUniversal, uint32(ber.Integer), []byte{byte(id)}),
		ber.Primitive(ber.ClassUniversal, uint32(ber.ObjectIdentifier), abstractSyntax),
		ber.Constructed(ber.ClassUniversal, uint32(ber.Sequence),
			ber.Primitive(ber.ClassUniversal, uint32(ber.ObjectIdentifier), oidBER),
		),
	)
}

func fullyEncodedData(contextID int, pdu ber.Value) ber.Value {
	return ber.Constructed(ber.ClassApplication, 1,
		ber.Constructed(ber.ClassUniversal, uint32(ber.Sequence),
			ber.Primitive(ber.ClassUniversal, uint32(ber.Integer), []byte{byte(contextID)}),
			ber.ContextSequence(0, pdu), // single-ASN1-type
		),
	)
}

// BuildConnect builds the CP PPDU carrying the ACSE association
// request, proposing the ACSE and MMS presentation contexts with BER
// transfer syntax.
func BuildConnect(acsePDU ber.Value) []byte {
	cp := ber.Constructed(ber.ClassUniversal, uint32(ber.Set),
		ber.ContextSequence(0, // mode-selector
			ber.ContextValue(0, []byte{0x01}), // normal-mode
		),
		ber.ContextSequence(2, // normal-mode-parameters
			ber.ContextValue(1, defaultPSelector), // calling-presentation-selector
			ber.ContextValue(2, defaultPSelector), // called-presentation-selector
			ber.ContextSequence(4, // presentation-context-definition-list
				contextDefinition(ContextACSE, oidACSE),
				contextDefinition(ContextMMS, oidMMS),
			),
			fullyEncodedData(ContextACSE, acsePDU),
		),
	)
	return cp.Encode()
}

// BuildData wraps one MMS PDU in a fully-encoded-data PPDU for the
// data phase.
func BuildData(contextID int, pdu ber.Value) []byte {
	return fullyEncodedData(contextID, pdu).Encode()
}

// Parse decodes an inbound PPDU. During the data phase this is the
// user-data PPDU directly; during connect it is the CPA (or CPR) whose
// embedded user data holds the ACSE response.
func Parse(buffer []byte) (*PPDU, error) {
	v, _, err := ber.Decode(buffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	switch {
	case v.Class == ber.ClassApplication && v.TagNumber == 1:
		return parseFullyEncoded(v)
	case v.Class == ber.ClassUniversal && v.TagNumber == uint32(ber.Set):
		// CPA-type: find user data inside normal-mode-parameters.
		params, ok := v.Child(2)
		if !ok {
			return nil, fmt.Errorf("%w: CPA without normal-mode-parameters", ErrProtocol)
		}
		for _, c := range params.Children {
			if c.Class == ber.ClassApplication && c.TagNumber == 1 {
				return parseFullyEncoded(c)
			}
		}
		return nil, fmt.Errorf("%w: CPA without user data", ErrProtocol)
	case v.Class == ber.ClassContextSpecific:
		// CPR-type is context-tagged at the top level.
		return nil, ErrRejected
	default:
		return nil, fmt.Errorf("%w: unexpected PPDU class %v tag %d", ErrProtocol, v.Class, v.TagNumber)
	}
}

func parseFullyEncoded(v ber.Value) (*PPDU, error) {
	if len(v.Children) == 0 {
		return nil, fmt.Errorf("%w: empty fully-encoded-data", ErrProtocol)
	}
	pdv := v.Children[0]
	if pdv.Class != ber.ClassUniversal || pdv.TagNumber != uint32(ber.Sequence) || len(pdv.Children) < 2 {
		return nil, fmt.Errorf("%w: malformed PDV-list", ErrProtocol)
	}

	id := pdv.Children[0]
	if id.Class != ber.ClassUniversal || id.TagNumber != uint32(ber.Integer) {
		return nil, fmt.Errorf("%w: PDV-list without context identifier", ErrProtocol)
	}
	contextID := int(ber.DecodeUint32(id.Bytes, len(id.Bytes), 0))

	values := pdv.Children[1]
	if !values.Context(0) || len(values.Children) != 1 {
		return nil, fmt.Errorf("%w: expected single-ASN1-type presentation values", ErrProtocol)
	}
	return &PPDU{ContextID: contextID, PDU: values.Children[0]}, nil
}
