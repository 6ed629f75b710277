package session

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func parseHexString(s string) []byte {
	data, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return data
}

// AC SPDU from a wireshark capture of a libiec61850 server accepting
// an association; the user data parameter carries the CPA.
const acceptCapture = "0e 86 05 06 13 01 00 16 01 02 14 02 00 02 34 02 00 01 c1 74 " +
	"31 72 a0 03 80 01 01 a2 6b 83 04 00 00 00 01 " +
	"a5 12 30 07 80 01 00 81 02 51 01 30 07 80 01 00 81 02 51 01 " +
	"61 4f 30 4d 02 01 01 a0 48 " +
	"61 46 a1 07 06 05 28 ca 22 02 03 a2 03 02 01 00 a3 05 a1 03 02 01 00 " +
	"be 2f 28 2d 02 01 03 a0 28 " +
	"a9 26 80 03 00 fd e8 81 01 05 82 01 05 83 01 0a " +
	"a4 16 80 01 01 81 03 05 f1 00 82 0c 03 ee 1c 00 00 00 02 00 00 40 ed 18"

func TestParseAcceptCapture(t *testing.T) {
	spdu, err := Parse(parseHexString(acceptCapture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if spdu.Type != TypeAccept {
		t.Errorf("Type = 0x%02x, want ACCEPT", spdu.Type)
	}
	if len(spdu.Data) != 116 {
		t.Errorf("user data length = %d, want 116", len(spdu.Data))
	}
	if spdu.Data[0] != 0x31 {
		t.Errorf("user data starts with 0x%02x, want CPA 0x31", spdu.Data[0])
	}
}

func TestConnectRoundTrip(t *testing.T) {
	userData := parseHexString("31 05 a0 03 80 01 01")
	raw := BuildConnect(DefaultSelector, Selector{0x00, 0x02}, userData)

	spdu, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if spdu.Type != TypeConnect {
		t.Errorf("Type = 0x%02x, want CONNECT", spdu.Type)
	}
	if !bytes.Equal(spdu.Data, userData) {
		t.Errorf("user data = % x, want % x", spdu.Data, userData)
	}
	if !bytes.Contains(raw, []byte{piCalledSessionSel, 0x02, 0x00, 0x02}) {
		t.Errorf("CN % x misses the called session selector", raw)
	}
}

func TestConnectExtendedLength(t *testing.T) {
	// Above 254 bytes the session length encoding switches to the
	// three-octet form.
	userData := bytes.Repeat([]byte{0xAB}, 400)
	raw := BuildConnect(DefaultSelector, DefaultSelector, userData)

	spdu, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !bytes.Equal(spdu.Data, userData) {
		t.Errorf("user data length = %d, want %d", len(spdu.Data), len(userData))
	}
}

func TestDataRoundTrip(t *testing.T) {
	payload := parseHexString("61 0b 30 09 02 01 03 a0 04 8b 02 aa bb")
	raw := BuildData(payload)

	if want := []byte{TypeGiveTokens, 0x00, TypeDataTransfer, 0x00}; !bytes.Equal(raw[:4], want) {
		t.Fatalf("header = % x, want % x", raw[:4], want)
	}

	spdu, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if spdu.Type != TypeDataTransfer {
		t.Errorf("Type = 0x%02x, want DATA-TRANSFER", spdu.Type)
	}
	if !bytes.Equal(spdu.Data, payload) {
		t.Errorf("payload = % x, want % x", spdu.Data, payload)
	}
}

func TestBuildFinish(t *testing.T) {
	raw := BuildFinish(nil)
	if want := parseHexString("09 03 11 01 02"); !bytes.Equal(raw, want) {
		t.Errorf("BuildFinish(nil) = % x, want % x", raw, want)
	}
	if _, err := Parse(raw); !errors.Is(err, ErrReleased) {
		t.Errorf("Parse(FN) error = %v, want ErrReleased", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		hexStr  string
		wantErr error
	}{
		{"refuse", "0c 00", ErrRefused},
		{"finish", "09 00", ErrReleased},
		{"disconnect", "0a 00", ErrReleased},
		{"abort", "19 00", ErrAborted},
		{"too short", "0e", ErrProtocol},
		{"unknown type", "42 00", ErrProtocol},
		{"length overrun", "0e 10 05 06", ErrProtocol},
		{"connect without user data", "0d 04 14 02 00 02", ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(parseHexString(tt.hexStr))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
