// Package session implements the ISO 8327 session protocol subset the
// MMS mapping uses: CONNECT/ACCEPT for association, the combined
// GIVE-TOKENS + DATA-TRANSFER SPDU for data, and FINISH/DISCONNECT for
// orderly release.
package session

import (
	"errors"
	"fmt"
)

// SPDU type codes.
const (
	TypeGiveTokens   = 0x01
	TypeDataTransfer = 0x01 // shares the GT code, second SPDU in the TSDU
	TypeFinish       = 0x09
	TypeDisconnect   = 0x0A
	TypeRefuse       = 0x0C
	TypeConnect      = 0x0D
	TypeAccept       = 0x0E
	TypeAbort        = 0x19
)

// Session parameter identifiers.
const (
	piConnectAcceptItem  = 0x05
	piSessionRequirement = 0x14
	piCallingSessionSel  = 0x33
	piCalledSessionSel   = 0x34
	piUserData           = 0xC1
)

var (
	// ErrProtocol reports a malformed SPDU.
	ErrProtocol = errors.New("session: protocol error")
	// ErrRefused reports an RF SPDU from the peer.
	ErrRefused = errors.New("session: connection refused")
	// ErrReleased reports a FINISH or DISCONNECT SPDU.
	ErrReleased = errors.New("session: released by peer")
	// ErrAborted reports an ABORT SPDU.
	ErrAborted = errors.New("session: aborted by peer")
)

// Selector is a two-byte session selector.
type Selector [2]byte

// DefaultSelector is the session selector most servers expect.
var DefaultSelector = Selector{0x00, 0x01}

// SPDU is one parsed session PDU.
type SPDU struct {
	Type byte
	Data []byte // session user data (presentation PDU)
}

func appendParamLength(dst []byte, length int) []byte {
	// Session lengths use one octet up to 254, then 0xFF + two octets,
	// unlike BER.
	if length <= 0xFE {
		return append(dst, byte(length))
	}
	return append(dst, 0xFF, byte(length>>8), byte(length))
}

// BuildConnect builds a CN SPDU proposing duplex operation and
// carrying the presentation CP PDU as session user data.
func BuildConnect(calling, called Selector, userData []byte) []byte {
	spdu := []byte{TypeConnect}

	// Connect Accept Item: protocol options 0, version 2.
	body := []byte{piConnectAcceptItem, 0x06, 0x13, 0x01, 0x00, 0x16, 0x01, 0x02}
	// Session requirement: duplex functional unit.
	body = append(body, piSessionRequirement, 0x02, 0x00, 0x02)
	body = append(body, piCallingSessionSel, 0x02, calling[0], calling[1])
	body = append(body, piCalledSessionSel, 0x02, called[0], called[1])
	body = append(body, piUserData)
	body = appendParamLength(body, len(userData))
	body = append(body, userData...)

	spdu = appendParamLength(spdu, len(body))
	return append(spdu, body...)
}

// BuildData wraps a presentation PDU in the GIVE-TOKENS + DATA-TRANSFER
// pair used for every in-association exchange.
func BuildData(userData []byte) []byte {
	spdu := make([]byte, 0, 4+len(userData))
	spdu = append(spdu, TypeGiveTokens, 0x00, TypeDataTransfer, 0x00)
	return append(spdu, userData...)
}

// BuildFinish builds an FN SPDU for orderly release; the transport
// disconnect flag is set so the peer drops the connection too.
func BuildFinish(userData []byte) []byte {
	body := []byte{0x11, 0x01, 0x02} // transport disconnect: release
	if len(userData) > 0 {
		body = append(body, piUserData)
		body = appendParamLength(body, len(userData))
		body = append(body, userData...)
	}
	spdu := []byte{TypeFinish}
	spdu = appendParamLength(spdu, len(body))
	return append(spdu, body...)
}

func decodeLength(buffer []byte, pos int) (newPos, length int, err error) {
	if pos >= len(buffer) {
		return 0, 0, fmt.Errorf("%w: truncated length", ErrProtocol)
	}
	if buffer[pos] != 0xFF {
		return pos + 1, int(buffer[pos]), nil
	}
	if pos+3 > len(buffer) {
		return 0, 0, fmt.Errorf("%w: truncated extended length", ErrProtocol)
	}
	return pos + 3, int(buffer[pos+1])<<8 | int(buffer[pos+2]), nil
}

// Parse decodes one inbound session TSDU. Data-transfer TSDUs return
// the presentation payload; connect-phase SPDUs return their user-data
// parameter; release and abort map to sentinel errors.
func Parse(buffer []byte) (*SPDU, error) {
	if len(buffer) < 2 {
		return nil, fmt.Errorf("%w: TSDU too short", ErrProtocol)
	}

	spduType := buffer[0]

	// GIVE-TOKENS + DATA-TRANSFER: everything after the two headers is
	// presentation data.
	if spduType == TypeGiveTokens && len(buffer) >= 4 && buffer[1] == 0x00 &&
		buffer[2] == TypeDataTransfer && buffer[3] == 0x00 {
		return &SPDU{Type: TypeDataTransfer, Data: buffer[4:]}, nil
	}

	pos, length, err := decodeLength(buffer, 1)
	if err != nil {
		return nil, err
	}
	if pos+length > len(buffer) {
		return nil, fmt.Errorf("%w: SPDU length %d overruns TSDU", ErrProtocol, length)
	}
	body := buffer[pos : pos+length]

	switch spduType {
	case TypeConnect, TypeAccept:
		userData, err := parseUserData(body)
		if err != nil {
			return nil, err
		}
		return &SPDU{Type: spduType, Data: userData}, nil
	case TypeRefuse:
		return nil, ErrRefused
	case TypeFinish, TypeDisconnect:
		return nil, ErrReleased
	case TypeAbort:
		return nil, ErrAborted
	default:
		return nil, fmt.Errorf("%w: unexpected SPDU type 0x%02x", ErrProtocol, spduType)
	}
}

func parseUserData(body []byte) ([]byte, error) {
	pos := 0
	for pos < len(body) {
		if pos+1 >= len(body) {
			return nil, fmt.Errorf("%w: truncated parameter", ErrProtocol)
		}
		pi := body[pos]
		newPos, length, err := decodeLength(body, pos+1)
		if err != nil {
			return nil, err
		}
		pos = newPos
		if pos+length > len(body) {
			return nil, fmt.Errorf("%w: parameter 0x%02x overruns SPDU", ErrProtocol, pi)
		}
		if pi == piUserData {
			return body[pos : pos+length], nil
		}
		pos += length
	}
	return nil, fmt.Errorf("%w: user data parameter missing", ErrProtocol)
}
