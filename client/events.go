package client

import "github.com/grid61850/mms/logger"

// Events is the observability sink for association lifecycle and
// request anomalies. Implementations must not block; callbacks run on
// the client's reader goroutine.
type Events interface {
	AssociationUp()
	AssociationDown(err error)
	// UnexpectedResponse is an inbound response whose invoke-ID matches
	// no pending request, a timed-out request answering late included.
	// The response is discarded.
	UnexpectedResponse(invokeID uint32)
	RequestTimeout(invokeID uint32)
	Rejected(invokeID uint32, code int)
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) AssociationUp()            {}
func (NopEvents) AssociationDown(error)     {}
func (NopEvents) UnexpectedResponse(uint32) {}
func (NopEvents) RequestTimeout(uint32)     {}
func (NopEvents) Rejected(uint32, int)      {}

// LogEvents writes every event to a debug logger.
type LogEvents struct {
	Log logger.Logger
}

func (e LogEvents) AssociationUp() {
	e.Log.Debug("association up")
}

func (e LogEvents) AssociationDown(err error) {
	e.Log.Debug("association down: %v", err)
}

func (e LogEvents) UnexpectedResponse(invokeID uint32) {
	e.Log.Debug("discarding response with unknown invokeID %d", invokeID)
}

func (e LogEvents) RequestTimeout(invokeID uint32) {
	e.Log.Debug("request %d timed out", invokeID)
}

func (e LogEvents) Rejected(invokeID uint32, code int) {
	e.Log.Debug("request %d rejected with code %d", invokeID, code)
}
