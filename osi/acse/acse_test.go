package acse

import (
	"bytes"
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

// AARE from a wireshark capture of a libiec61850 server accepting an
// association; the user information carries the initiate response.
const aareCapture = "61 46 a1 07 06 05 28 ca 22 02 03 a2 03 02 01 00 a3 05 a1 03 02 01 00 " +
	"be 2f 28 2d 02 01 03 a0 28 " +
	"a9 26 80 03 00 fd e8 81 01 05 82 01 05 83 01 0a " +
	"a4 16 80 01 01 81 03 05 f1 00 82 0c 03 ee 1c 00 00 00 02 00 00 40 ed 18"

func decodeValue(t *testing.T, hexStr string) ber.Value {
	t.Helper()
	v, _, err := ber.Decode(parseHexString(hexStr))
	if err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return v
}

func TestParseAARECapture(t *testing.T) {
	payload, err := ParseAARE(decodeValue(t, aareCapture))
	if err != nil {
		t.Fatalf("ParseAARE() error = %v", err)
	}
	// The embedded value is the initiate-ResponsePDU, context tag 9.
	if payload.Class != ber.ClassContextSpecific || payload.TagNumber != 9 {
		t.Errorf("payload = class %v tag %d, want context 9", payload.Class, payload.TagNumber)
	}
	if len(payload.Children) != 5 {
		t.Errorf("initiate response has %d fields, want 5", len(payload.Children))
	}
}

func TestParseAARERejected(t *testing.T) {
	rejected := parseHexString(aareCapture)
	idx := bytes.Index(rejected, parseHexString("a2 03 02 01 00"))
	if idx < 0 {
		t.Fatal("result field not found in fixture")
	}
	rejected[idx+4] = 0x01 // rejected-permanent

	v, _, err := ber.Decode(rejected)
	if err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	if _, err := ParseAARE(v); !errors.Is(err, ErrAssociationRejected) {
		t.Errorf("ParseAARE() error = %v, want ErrAssociationRejected", err)
	}
}

func TestAARQRoundTrip(t *testing.T) {
	payload := ber.ContextSequence(8,
		ber.ContextValue(0, []byte{0x01}),
	)
	aarq := BuildAARQ(DefaultParameters(), payload)

	if aarq.Class != ber.ClassApplication || aarq.TagNumber != 0 {
		t.Fatalf("AARQ = class %v tag %d, want application 0", aarq.Class, aarq.TagNumber)
	}
	// Context name must be mms-application-context-version1.
	contextName, ok := aarq.Child(1)
	if !ok || len(contextName.Children) != 1 {
		t.Fatal("AARQ without application-context-name")
	}
	if !bytes.Equal(contextName.Children[0].Bytes, appContextMMS) {
		t.Errorf("application context = % x, want % x", contextName.Children[0].Bytes, appContextMMS)
	}

	// The payload must survive the user-information EXTERNAL wrapping.
	embedded, err := extractUserInformation(aarq)
	if err != nil {
		t.Fatalf("extractUserInformation() error = %v", err)
	}
	if !embedded.Equal(payload) {
		t.Errorf("embedded payload = %v, want %v", embedded, payload)
	}

	// An AARQ is not a valid association response.
	if _, err := ParseAARE(aarq); !errors.Is(err, ErrProtocol) {
		t.Errorf("ParseAARE(AARQ) error = %v, want ErrProtocol", err)
	}
}

func TestBuildRLRQ(t *testing.T) {
	raw := BuildRLRQ().Encode()
	if want := parseHexString("62 03 80 01 00"); !bytes.Equal(raw, want) {
		t.Errorf("BuildRLRQ() = % x, want % x", raw, want)
	}
}

func TestParseIncoming(t *testing.T) {
	tests := []struct {
		name    string
		hexStr  string
		wantErr error
	}{
		{"release request", "62 03 80 01 00", ErrReleased},
		{"release response", "63 03 80 01 00", ErrReleased},
		{"abort", "64 03 80 01 00", ErrAborted},
		{"AARE in data phase", "61 02 05 00", ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ParseIncoming(decodeValue(t, tt.hexStr)); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseIncoming() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRLRE(t *testing.T) {
	if err := ParseRLRE(decodeValue(t, "63 03 80 01 00")); err != nil {
		t.Errorf("ParseRLRE() error = %v", err)
	}
	if err := ParseRLRE(decodeValue(t, "62 03 80 01 00")); !errors.Is(err, ErrProtocol) {
		t.Errorf("ParseRLRE(RLRQ) error = %v, want ErrProtocol", err)
	}
}
