package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/mms/variant"
)

// controlServer answers ctlModel reads and control writes, recording
// the accessed attributes in order.
type controlServer struct {
	mu       sync.Mutex
	ctlModel int64
	sboValue string // SBO read result, empty denies the selection
	accessed []string
}

func (s *controlServer) handle(t *testing.T, pdu *mms.PDU) []ber.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := requestedItem(t, pdu)
	s.accessed = append(s.accessed, item)

	switch pdu.ServiceTag {
	case mms.ServiceRead:
		var value *variant.Value
		switch item {
		case "SPCSO1$CF$Pos$ctlModel":
			value = variant.NewInt(s.ctlModel)
		case "SPCSO1$CO$Pos$SBO":
			value = variant.NewVisibleString(s.sboValue)
		default:
			t.Errorf("unexpected read of %s", item)
			return nil
		}
		return []ber.Value{confirmedResponse(pdu.InvokeID, mms.ServiceRead,
			ber.ContextSequence(1, mustData(value)))}
	case mms.ServiceWrite:
		return []ber.Value{confirmedResponse(pdu.InvokeID, mms.ServiceWrite,
			ber.ContextValue(1, nil))}
	default:
		t.Errorf("unexpected service %d", pdu.ServiceTag)
		return nil
	}
}

func (s *controlServer) sequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.accessed...)
}

// writtenValue decodes the first value of a write request.
func writtenValue(t *testing.T, pdu *mms.PDU) *variant.Value {
	t.Helper()
	data := pdu.Service.Children[1] // listOfData, second CHOICE by order
	value, err := mms.DecodeData(data.Children[0])
	if err != nil {
		t.Errorf("decoding written value: %v", err)
		return nil
	}
	return value
}

func TestControlOperateDirect(t *testing.T) {
	srv := &controlServer{ctlModel: int64(CtlDirectNormal)}
	var operValue *variant.Value
	c, _ := newTestClient(t, nil, func(pdu *mms.PDU) []ber.Value {
		if pdu.ServiceTag == mms.ServiceWrite {
			operValue = writtenValue(t, pdu)
		}
		return srv.handle(t, pdu)
	})

	err := c.ControlOperate(context.Background(), "LD/SPCSO1.Pos", variant.NewBool(true), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SPCSO1$CF$Pos$ctlModel",
		"SPCSO1$CO$Pos$Oper",
	}, srv.sequence())

	// Oper: ctlVal, origin, ctlNum, T, Test, Check.
	require.NotNil(t, operValue)
	require.Equal(t, 6, operValue.Len())
	assert.True(t, operValue.Index(0).Bool())
	origin := operValue.Index(1)
	assert.Equal(t, int64(OriginRemoteControl), origin.Index(0).Int())
	assert.Equal(t, variant.UTCTime, operValue.Index(3).Kind())
	assert.False(t, operValue.Index(4).Bool())
	assert.Equal(t, 2, operValue.Index(5).BitCount())
}

func TestControlOperateSBONormal(t *testing.T) {
	srv := &controlServer{ctlModel: int64(CtlSBONormal), sboValue: "LD/SPCSO1$CO$Pos$SBO"}
	c, _ := newTestClient(t, nil, func(pdu *mms.PDU) []ber.Value {
		return srv.handle(t, pdu)
	})

	err := c.ControlOperate(context.Background(), "LD/SPCSO1.Pos", variant.NewBool(true), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SPCSO1$CF$Pos$ctlModel",
		"SPCSO1$CO$Pos$SBO",
		"SPCSO1$CO$Pos$Oper",
	}, srv.sequence())
}

func TestControlOperateSBODenied(t *testing.T) {
	srv := &controlServer{ctlModel: int64(CtlSBONormal), sboValue: ""}
	c, _ := newTestClient(t, nil, func(pdu *mms.PDU) []ber.Value {
		return srv.handle(t, pdu)
	})

	err := c.ControlOperate(context.Background(), "LD/SPCSO1.Pos", variant.NewBool(true), nil)
	require.ErrorIs(t, err, ErrSelectionRequired)

	// Oper must not be written after a failed selection.
	assert.NotContains(t, srv.sequence(), "SPCSO1$CO$Pos$Oper")
}

func TestControlOperateSBOEnhanced(t *testing.T) {
	srv := &controlServer{ctlModel: int64(CtlSBOEnhanced)}
	c, _ := newTestClient(t, nil, func(pdu *mms.PDU) []ber.Value {
		return srv.handle(t, pdu)
	})

	opts := &ControlOptions{
		OriginCategory: OriginStationControl,
		Test:           true,
		InterlockCheck: true,
		SynchroCheck:   true,
	}
	err := c.ControlOperate(context.Background(), "LD/SPCSO1.Pos", variant.NewBool(false), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SPCSO1$CF$Pos$ctlModel",
		"SPCSO1$CO$Pos$SBOw",
		"SPCSO1$CO$Pos$Oper",
	}, srv.sequence())
}

func TestControlOperateStatusOnly(t *testing.T) {
	srv := &controlServer{ctlModel: int64(CtlStatusOnly)}
	c, _ := newTestClient(t, nil, func(pdu *mms.PDU) []ber.Value {
		return srv.handle(t, pdu)
	})

	err := c.ControlOperate(context.Background(), "LD/SPCSO1.Pos", variant.NewBool(true), nil)
	require.ErrorIs(t, err, ErrControlUnsupported)
	assert.Equal(t, []string{"SPCSO1$CF$Pos$ctlModel"}, srv.sequence())
}

func TestControlCancel(t *testing.T) {
	srv := &controlServer{}
	var cancelValue *variant.Value
	c, _ := newTestClient(t, nil, func(pdu *mms.PDU) []ber.Value {
		if pdu.ServiceTag == mms.ServiceWrite {
			cancelValue = writtenValue(t, pdu)
		}
		return srv.handle(t, pdu)
	})

	err := c.ControlCancel(context.Background(), "LD/SPCSO1.Pos", variant.NewBool(true), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPCSO1$CO$Pos$Cancel"}, srv.sequence())

	// Cancel: ctlVal, origin, ctlNum, T, Test.
	require.NotNil(t, cancelValue)
	assert.Equal(t, 5, cancelValue.Len())
}

func TestCtlModelString(t *testing.T) {
	assert.Equal(t, "status-only", CtlStatusOnly.String())
	assert.Equal(t, "sbo-with-enhanced-security", CtlSBOEnhanced.String())
	assert.Equal(t, "direct-with-normal-security", CtlDirectNormal.String())
}
