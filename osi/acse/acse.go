// Package acse implements the ISO 8650 association control service
// elements used by MMS: AARQ/AARE for association, RLRQ/RLRE for
// orderly release and ABRT for abort. PDUs are built and parsed as
// ber.Value trees; the MMS payload travels in the user-information
// EXTERNAL.
package acse

import (
	"errors"
	"fmt"

	"github.com/grid61850/mms/ber"
)

// Application tags of the ACSE PDUs.
const (
	tagAARQ = 0
	tagAARE = 1
	tagRLRQ = 2
	tagRLRE = 3
	tagABRT = 4
)

var (
	// ErrProtocol reports a malformed ACSE PDU.
	ErrProtocol = errors.New("acse: protocol error")
	// ErrAssociationRejected reports an AARE with a non-accept result.
	ErrAssociationRejected = errors.New("acse: association rejected")
	// ErrAborted reports an ABRT PDU.
	ErrAborted = errors.New("acse: aborted by peer")
	// ErrReleased reports an RLRQ/RLRE PDU.
	ErrReleased = errors.New("acse: released")
)

// 1.0.9506.2.3 mms-application-context-version1.
var appContextMMS = []byte{0x28, 0xCA, 0x22, 0x02, 0x03}

// Parameters carries the optional AP title / AE qualifier pairs for
// both sides of the association.
type Parameters struct {
	CalledAPTitle      []byte // encoded OID content, nil to omit
	CalledAEQualifier  *int32
	CallingAPTitle     []byte
	CallingAEQualifier *int32
}

// DefaultParameters matches the titles libiec61850-based servers
// expect by default.
func DefaultParameters() Parameters {
	called := int32(12)
	calling := int32(12)
	return Parameters{
		CalledAPTitle:      []byte{0x29, 0x01, 0x87, 0x67, 0x01}, // 1.1.999.1
		CalledAEQualifier:  &called,
		CallingAPTitle:     []byte{0x29, 0x01, 0x87, 0x67}, // 1.1.999
		CallingAEQualifier: &calling,
	}
}

func userInformation(payload ber.Value) ber.Value {
	return ber.ContextSequence(30,
		ber.Constructed(ber.ClassUniversal, uint32(ber.External),
			// indirect-reference: the MMS presentation context.
			ber.Primitive(ber.ClassUniversal, uint32(ber.Integer), []byte{0x03}),
			ber.ContextSequence(0, payload), // single-ASN1-type
		),
	)
}

func oidField(tag uint32, oid []byte) ber.Value {
	return ber.ContextSequence(tag,
		ber.Primitive(ber.ClassUniversal, uint32(ber.ObjectIdentifier), oid),
	)
}

func intField(tag uint32, value int32) ber.Value {
	content := ber.AppendInt(nil, ber.Integer, int64(value))
	return ber.ContextSequence(tag,
		ber.Primitive(ber.ClassUniversal, uint32(ber.Integer), content[2:]),
	)
}

// BuildAARQ builds the association request carrying the MMS initiate
// request in its user information.
func BuildAARQ(params Parameters, payload ber.Value) ber.Value {
	children := []ber.Value{
		oidField(1, appContextMMS), // application-context-name
	}
	if len(params.CalledAPTitle) > 0 {
		children = append(children, oidField(2, params.CalledAPTitle))
	}
	if params.CalledAEQualifier != nil {
		children = append(children, intField(3, *params.CalledAEQualifier))
	}
	if len(params.CallingAPTitle) > 0 {
		children = append(children, oidField(6, params.CallingAPTitle))
	}
	if params.CallingAEQualifier != nil {
		children = append(children, intField(7, *params.CallingAEQualifier))
	}
	children = append(children, userInformation(payload))
	return ber.Constructed(ber.ClassApplication, tagAARQ, children...)
}

// BuildRLRQ builds an orderly release request (reason: normal).
func BuildRLRQ() ber.Value {
	return ber.Constructed(ber.ClassApplication, tagRLRQ,
		ber.ContextValue(0, []byte{0x00}),
	)
}

// ParseAARE parses an association response and returns the embedded
// MMS initiate response. A non-accept result returns
// ErrAssociationRejected with the diagnostic preserved in the message.
func ParseAARE(v ber.Value) (ber.Value, error) {
	if v.Class != ber.ClassApplication {
		return ber.Value{}, fmt.Errorf("%w: not an ACSE PDU", ErrProtocol)
	}
	switch v.TagNumber {
	case tagAARE:
	case tagABRT:
		return ber.Value{}, ErrAborted
	default:
		return ber.Value{}, fmt.Errorf("%w: expected AARE, got application %d", ErrProtocol, v.TagNumber)
	}

	if result, ok := v.Child(2); ok && len(result.Children) == 1 {
		code := ber.DecodeUint32(result.Children[0].Bytes, len(result.Children[0].Bytes), 0)
		if code != 0 {
			return ber.Value{}, fmt.Errorf("%w: result %d", ErrAssociationRejected, code)
		}
	}

	return extractUserInformation(v)
}

// ParseRLRE validates a release response.
func ParseRLRE(v ber.Value) error {
	if v.Class != ber.ClassApplication || v.TagNumber != tagRLRE {
		return fmt.Errorf("%w: expected RLRE", ErrProtocol)
	}
	return nil
}

// ParseIncoming classifies a data-phase ACSE PDU: release request or
// response from the peer, or abort.
func ParseIncoming(v ber.Value) error {
	if v.Class != ber.ClassApplication {
		return fmt.Errorf("%w: not an ACSE PDU", ErrProtocol)
	}
	switch v.TagNumber {
	case tagRLRQ, tagRLRE:
		return ErrReleased
	case tagABRT:
		return ErrAborted
	default:
		return fmt.Errorf("%w: unexpected application tag %d", ErrProtocol, v.TagNumber)
	}
}

func extractUserInformation(v ber.Value) (ber.Value, error) {
	info, ok := v.Child(30)
	if !ok {
		return ber.Value{}, fmt.Errorf("%w: user information missing", ErrProtocol)
	}
	if len(info.Children) == 0 {
		return ber.Value{}, fmt.Errorf("%w: empty user information", ErrProtocol)
	}
	external := info.Children[0]
	if external.Class != ber.ClassUniversal || external.TagNumber != uint32(ber.External) {
		return ber.Value{}, fmt.Errorf("%w: expected EXTERNAL in user information", ErrProtocol)
	}
	for _, c := range external.Children {
		if c.Context(0) && len(c.Children) == 1 {
			return c.Children[0], nil
		}
	}
	return ber.Value{}, fmt.Errorf("%w: single-ASN1-type encoding missing", ErrProtocol)
}
