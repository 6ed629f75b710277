package mms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInitiateRequest(t *testing.T) {
	request := BuildInitiateRequest(DefaultInitiateParameters())
	want := parseHexString(
		"a8 26 80 03 00 fd e8 81 01 05 82 01 05 83 01 0a" +
			"a4 16 80 01 01 81 03 05 f1 00" +
			"82 0c 03 ee 1c 00 00 04 08 00 00 79 ef 18")
	assert.Equal(t, want, request.Encode())
}

func TestParseInitiateResponse(t *testing.T) {
	// From a wireshark capture of a libiec61850 server accepting the
	// association.
	fixture := "a9 26 80 03 00 fd e8 81 01 05 82 01 05 83 01 0a" +
		"a4 16 80 01 01 81 03 05 f1 00" +
		"82 0c 03 ee 1c 00 00 00 02 00 00 40 ed 18"
	result, err := ParseInitiateResponse(decodeHex(t, fixture))
	require.NoError(t, err)
	assert.Equal(t, uint32(65000), result.LocalDetail)
	assert.Equal(t, uint8(5), result.MaxServicesOutstanding)
	assert.Equal(t, uint8(5), result.MaxServicesOutstandingRsp)
	assert.Equal(t, uint8(10), result.NestingLevel)
	assert.Equal(t, 1, result.Version)
	require.Len(t, result.ServicesSupported, 11)

	// Bits 0 and 1: status and getNameList.
	assert.True(t, result.Supports(0))
	assert.True(t, result.Supports(1))
}

func TestParseInitiateError(t *testing.T) {
	// initiate-ErrorPDU: errorClass [0] { initiate [8] = 3 }
	_, err := ParseInitiateResponse(decodeHex(t, "aa05a003880103"))
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ClassInitiate, se.Class)
	assert.Equal(t, 3, se.Code)
}
