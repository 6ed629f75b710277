package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// InitiateParameters are the values proposed in the initiate request.
type InitiateParameters struct {
	LocalDetail               uint32 // max MMS PDU size in octets
	MaxServicesOutstanding    uint8  // calling direction
	MaxServicesOutstandingRsp uint8  // called direction
	NestingLevel              uint8
}

// DefaultInitiateParameters returns the proposal most IEC 61850
// servers accept without negotiation.
func DefaultInitiateParameters() InitiateParameters {
	return InitiateParameters{
		LocalDetail:               65000,
		MaxServicesOutstanding:    5,
		MaxServicesOutstandingRsp: 5,
		NestingLevel:              10,
	}
}

// proposedParameterCBB: str1, str2, vnam, valt, vlis bits set.
var parameterCBB = []byte{0x05, 0xF1, 0x00}

// servicesSupportedCalling advertises the confirmed services this
// client can issue, in the ISO 9506-2 bit order.
var servicesSupportedCalling = []byte{
	0x03,
	0xEE, 0x1C, 0x00, 0x00, 0x04, 0x08, 0x00, 0x00, 0x79, 0xEF, 0x18,
}

// InitiateResult carries the values the server settled on.
type InitiateResult struct {
	LocalDetail               uint32
	MaxServicesOutstanding    uint8
	MaxServicesOutstandingRsp uint8
	NestingLevel              uint8
	Version                   int
	ServicesSupported         []byte // bit string content after the padding octet
}

// Supports reports bit n of servicesSupportedCalled, most significant
// bit first. Bit positions follow the confirmed service numbering.
func (r *InitiateResult) Supports(n int) bool {
	if n < 0 || n/8 >= len(r.ServicesSupported) {
		return false
	}
	return r.ServicesSupported[n/8]&(0x80>>(n%8)) != 0
}

func uintContent(value uint64) []byte {
	encoded := ber.AppendUint(nil, ber.Integer, value)
	return encoded[2:]
}

// BuildInitiateRequest builds the initiate-RequestPDU carried in the
// AARQ user information.
func BuildInitiateRequest(p InitiateParameters) ber.Value {
	detail := ber.ContextSequence(4,
		ber.ContextValue(0, []byte{0x01}), // proposedVersionNumber
		ber.ContextValue(1, parameterCBB),
		ber.ContextValue(2, servicesSupportedCalling),
	)
	return ber.ContextSequence(tagInitiateRequest,
		ber.ContextValue(0, uintContent(uint64(p.LocalDetail))),
		ber.ContextValue(1, uintContent(uint64(p.MaxServicesOutstanding))),
		ber.ContextValue(2, uintContent(uint64(p.MaxServicesOutstandingRsp))),
		ber.ContextValue(3, uintContent(uint64(p.NestingLevel))),
		detail,
	)
}

// ParseInitiateResponse decodes an initiate-ResponsePDU. An
// initiate-ErrorPDU is returned as a ServiceError.
func ParseInitiateResponse(v ber.Value) (*InitiateResult, error) {
	if v.Class != ber.ClassContextSpecific {
		return nil, fmt.Errorf("%w: not an MMS PDU", ErrMalformedPDU)
	}
	switch v.TagNumber {
	case tagInitiateResponse:
	case tagInitiateError:
		return nil, parseServiceError(v)
	default:
		return nil, fmt.Errorf("%w: expected initiate response, got tag %d", ErrMalformedPDU, v.TagNumber)
	}

	result := &InitiateResult{}
	for _, c := range v.Children {
		switch {
		case c.Context(0):
			result.LocalDetail = ber.DecodeUint32(c.Bytes, len(c.Bytes), 0)
		case c.Context(1):
			result.MaxServicesOutstanding = uint8(ber.DecodeUint32(c.Bytes, len(c.Bytes), 0))
		case c.Context(2):
			result.MaxServicesOutstandingRsp = uint8(ber.DecodeUint32(c.Bytes, len(c.Bytes), 0))
		case c.Context(3):
			result.NestingLevel = uint8(ber.DecodeUint32(c.Bytes, len(c.Bytes), 0))
		case c.Context(4):
			for _, d := range c.Children {
				switch {
				case d.Context(0):
					result.Version = int(ber.DecodeUint32(d.Bytes, len(d.Bytes), 0))
				case d.Context(2):
					if len(d.Bytes) > 1 {
						result.ServicesSupported = d.Bytes[1:]
					}
				}
			}
		}
	}
	return result, nil
}
