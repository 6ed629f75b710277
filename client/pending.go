package client

import "github.com/grid61850/mms/osi/mms"

// outcome is the single fulfillment of a pending request.
type outcome struct {
	pdu *mms.PDU
	err error
}

// pendingRequest waits for its response on a buffered channel so the
// reader goroutine never blocks on fulfillment.
type pendingRequest struct {
	invokeID uint32
	done     chan outcome
}

func newPending(invokeID uint32) *pendingRequest {
	return &pendingRequest{invokeID: invokeID, done: make(chan outcome, 1)}
}

// pendingTable tracks in-flight confirmed requests by invoke-ID. All
// methods require the client mutex to be held.
type pendingTable struct {
	requests map[uint32]*pendingRequest
	next     uint32
	limit    int
}

func newPendingTable(limit int) *pendingTable {
	return &pendingTable{
		requests: make(map[uint32]*pendingRequest),
		limit:    limit,
	}
}

// allocate picks the next free invoke-ID. IDs increase monotonically
// and wrap; an ID still pending is never reissued.
func (t *pendingTable) allocate() (*pendingRequest, error) {
	if len(t.requests) >= t.limit {
		return nil, ErrTooManyPending
	}
	for {
		id := t.next
		t.next++
		if _, busy := t.requests[id]; busy {
			continue
		}
		p := newPending(id)
		t.requests[id] = p
		return p, nil
	}
}

// take removes and returns the request with the given invoke-ID.
func (t *pendingTable) take(invokeID uint32) (*pendingRequest, bool) {
	p, ok := t.requests[invokeID]
	if ok {
		delete(t.requests, invokeID)
	}
	return p, ok
}

// remove drops an entry without fulfilling it.
func (t *pendingTable) remove(invokeID uint32) {
	delete(t.requests, invokeID)
}

// failAll fulfills every pending request with err and empties the
// table.
func (t *pendingTable) failAll(err error) {
	for id, p := range t.requests {
		delete(t.requests, id)
		p.done <- outcome{err: err}
	}
}
