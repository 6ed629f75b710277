package presentation

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/grid61850/mms/ber"
)

func parseHexString(s string) []byte {
	data, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return data
}

// CPA from a wireshark capture of a libiec61850 server accepting an
// association; the embedded user data is the AARE.
const cpaCapture = "31 72 a0 03 80 01 01 a2 6b 83 04 00 00 00 01 " +
	"a5 12 30 07 80 01 00 81 02 51 01 30 07 80 01 00 81 02 51 01 " +
	"61 4f 30 4d 02 01 01 a0 48 " +
	"61 46 a1 07 06 05 28 ca 22 02 03 a2 03 02 01 00 a3 05 a1 03 02 01 00 " +
	"be 2f 28 2d 02 01 03 a0 28 " +
	"a9 26 80 03 00 fd e8 81 01 05 82 01 05 83 01 0a " +
	"a4 16 80 01 01 81 03 05 f1 00 82 0c 03 ee 1c 00 00 00 02 00 00 40 ed 18"

func TestParseCPACapture(t *testing.T) {
	ppdu, err := Parse(parseHexString(cpaCapture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ppdu.ContextID != ContextACSE {
		t.Errorf("ContextID = %d, want %d", ppdu.ContextID, ContextACSE)
	}
	// The carried value is the AARE, application tag 1.
	if ppdu.PDU.Class != ber.ClassApplication || ppdu.PDU.TagNumber != 1 {
		t.Errorf("PDU = class %v tag %d, want application 1", ppdu.PDU.Class, ppdu.PDU.TagNumber)
	}
}

func TestDataRoundTrip(t *testing.T) {
	pdu := ber.ContextSequence(0,
		ber.Primitive(ber.ClassUniversal, uint32(ber.Integer), []byte{0x01}),
	)

	ppdu, err := Parse(BuildData(ContextMMS, pdu))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ppdu.ContextID != ContextMMS {
		t.Errorf("ContextID = %d, want %d", ppdu.ContextID, ContextMMS)
	}
	if !ppdu.PDU.Equal(pdu) {
		t.Errorf("PDU = %v, want %v", ppdu.PDU, pdu)
	}
}

func TestBuildConnectCarriesUserData(t *testing.T) {
	acsePDU := ber.Constructed(ber.ClassApplication, 0,
		ber.ContextValue(1, []byte{0x00}),
	)
	raw := BuildConnect(acsePDU)

	// The CP parses through the same CPA branch: SET with the user
	// data inside normal-mode-parameters.
	ppdu, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ppdu.ContextID != ContextACSE {
		t.Errorf("ContextID = %d, want %d", ppdu.ContextID, ContextACSE)
	}
	if !ppdu.PDU.Equal(acsePDU) {
		t.Errorf("PDU = %v, want %v", ppdu.PDU, acsePDU)
	}
}

func TestParseRejected(t *testing.T) {
	// CPR is context-tagged at the top level.
	if _, err := Parse(parseHexString("a0 03 80 01 01")); !errors.Is(err, ErrRejected) {
		t.Errorf("Parse() error = %v, want ErrRejected", err)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		hexStr string
	}{
		{"not a PPDU", "02 01 05"},
		{"empty fully-encoded-data", "61 00"},
		{"PDV without context id", "61 06 30 04 a0 02 05 00"},
		{"set without parameters", "31 07 a0 05 80 03 01 02 03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(parseHexString(tt.hexStr)); !errors.Is(err, ErrProtocol) {
				t.Errorf("Parse() error = %v, want ErrProtocol", err)
			}
		})
	}
}
