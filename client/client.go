// Package client implements the IEC 61850 MMS client: association
// setup through the full OSI upper-layer handshake, an invoke-ID
// multiplexed request pipeline over one reader goroutine, and the
// typed facade (read, write, browse, data sets, control).
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/logger"
	"github.com/grid61850/mms/osi/acse"
	"github.com/grid61850/mms/osi/cotp"
	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/presentation"
	"github.com/grid61850/mms/osi/session"
)

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAssociated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAssociated:
		return "associated"
	default:
		return "disconnected"
	}
}

// Client is an MMS client association. All exported methods are safe
// for concurrent use; requests multiplex over one connection by
// invoke-ID.
type Client struct {
	cfg    Config
	log    logger.Logger
	events Events

	mu         sync.Mutex
	state      State
	transport  net.Conn
	conn       *cotp.Connection
	pending    *pendingTable
	negotiated *mms.InitiateResult
	closing    bool
	concludeCh chan struct{}
	releaseCh  chan struct{}

	// sendMu serializes outbound PDUs so fragments never interleave.
	sendMu sync.Mutex

	// ctlNum numbers control sequences across the client lifetime.
	ctlNum atomic.Uint32
}

// New validates the configuration and returns a disconnected client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, log: cfg.Logger, events: cfg.Events}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Negotiated returns the initiate parameters the server settled on,
// nil while disconnected.
func (c *Client) Negotiated() *mms.InitiateResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negotiated
}

// Connect dials the server and runs the full association handshake:
// COTP connect, session CONNECT, presentation CP with the ACSE AARQ
// carrying the MMS initiate request. Any failure tears the transport
// down and returns a ConnectError.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("client: connect in state %s", c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	result, err := c.associate(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.negotiated = result
	c.pending = newPendingTable(c.cfg.MaxPendingRequests)
	c.closing = false
	c.concludeCh = nil
	c.releaseCh = nil
	c.state = StateAssociated
	conn := c.conn
	c.mu.Unlock()

	c.events.AssociationUp()
	go c.readLoop(conn)
	return nil
}

func (c *Client) associate(ctx context.Context) (*mms.InitiateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AssociationTimeout)
	defer cancel()

	transport, err := c.cfg.Dial(ctx, c.cfg.Address)
	if err != nil {
		return nil, c.connectError(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		transport.SetDeadline(deadline)
	}

	opts := []cotp.Option{cotp.WithLogger(c.log)}
	if c.cfg.TPDUSize > 0 {
		opts = append(opts, cotp.WithTpduSize(1<<c.cfg.TPDUSize))
	}
	if c.cfg.LocalTSelector != nil {
		opts = append(opts, cotp.WithLocalTSelector(cotp.TSelector{Value: c.cfg.LocalTSelector}))
	}
	if c.cfg.RemoteTSelector != nil {
		opts = append(opts, cotp.WithRemoteTSelector(cotp.TSelector{Value: c.cfg.RemoteTSelector}))
	}
	conn := cotp.NewConnection(transport, opts...)

	fail := func(err error) (*mms.InitiateResult, error) {
		transport.Close()
		return nil, c.connectError(err)
	}

	if err := conn.Connect(); err != nil {
		return fail(err)
	}

	initiate := mms.BuildInitiateRequest(c.cfg.Initiate)
	aarq := acse.BuildAARQ(c.cfg.ACSE, initiate)
	selector := session.DefaultSelector
	if c.cfg.SessionSelector != nil {
		selector = *c.cfg.SessionSelector
	}
	if err := conn.Send(session.BuildConnect(selector, selector, presentation.BuildConnect(aarq))); err != nil {
		return fail(err)
	}

	payload, err := conn.Receive()
	if err != nil {
		return fail(err)
	}
	spdu, err := session.Parse(payload)
	if err != nil {
		return fail(err)
	}
	if spdu.Type != session.TypeAccept {
		return fail(fmt.Errorf("%w: expected session accept, got 0x%02x", session.ErrProtocol, spdu.Type))
	}
	ppdu, err := presentation.Parse(spdu.Data)
	if err != nil {
		return fail(err)
	}
	initiateResponse, err := acse.ParseAARE(ppdu.PDU)
	if err != nil {
		return fail(err)
	}
	result, err := mms.ParseInitiateResponse(initiateResponse)
	if err != nil {
		return fail(err)
	}

	transport.SetDeadline(time.Time{})
	c.mu.Lock()
	c.transport = transport
	c.conn = conn
	c.mu.Unlock()
	return result, nil
}

// connectError classifies an association failure by phase outcome.
func (c *Client) connectError(err error) error {
	reason := ConnectFailed
	var netErr net.Error
	var serviceErr *mms.ServiceError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		reason = ConnectTimeout
	case errors.Is(err, cotp.ErrConnectionRefused),
		errors.Is(err, session.ErrRefused):
		reason = ConnectRefused
	case errors.Is(err, acse.ErrAssociationRejected),
		errors.Is(err, presentation.ErrRejected),
		errors.As(err, &serviceErr):
		reason = ConnectAssociationRejected
	}
	return &ConnectError{Reason: reason, Err: err}
}

// request sends one confirmed request and waits for its response. The
// build callback receives the allocated invoke-ID. A deadline on ctx
// tighter than the configured request timeout takes precedence; either
// expiry fails only this request with ErrRequestTimeout, while a
// caller-initiated cancel fails it with ErrCancelled.
func (c *Client) request(ctx context.Context, build func(invokeID uint32) ber.Value) (*mms.PDU, error) {
	c.mu.Lock()
	if c.state != StateAssociated {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	p, err := c.pending.allocate()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := c.send(presentation.BuildData(presentation.ContextMMS, build(p.invokeID))); err != nil {
		c.mu.Lock()
		c.pending.remove(p.invokeID)
		c.mu.Unlock()
		c.connectionLost(err)
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case out := <-p.done:
		if out.err != nil {
			return nil, out.err
		}
		return out.pdu, nil
	case <-ctx.Done():
		c.abandon(p.invokeID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.events.RequestTimeout(p.invokeID)
			return nil, fmt.Errorf("%w: %v", ErrRequestTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timer.C:
		c.abandon(p.invokeID)
		c.events.RequestTimeout(p.invokeID)
		return nil, ErrRequestTimeout
	}
}

// abandon drops a pending entry without fulfilling it. A response
// racing in before removal is discarded through the buffered channel.
func (c *Client) abandon(invokeID uint32) {
	c.mu.Lock()
	c.pending.remove(invokeID)
	c.mu.Unlock()
}

func (c *Client) send(userData []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.Send(session.BuildData(userData))
}

// readLoop decodes inbound traffic for the association lifetime and
// correlates confirmed responses by invoke-ID.
func (c *Client) readLoop(conn *cotp.Connection) {
	for {
		payload, err := conn.Receive()
		if err != nil {
			c.peerClosed(err)
			return
		}
		spdu, err := session.Parse(payload)
		if err != nil {
			c.peerClosed(err)
			return
		}
		if spdu.Type != session.TypeDataTransfer {
			c.log.Debug("ignoring SPDU type 0x%02x in data phase", spdu.Type)
			continue
		}
		ppdu, err := presentation.Parse(spdu.Data)
		if err != nil {
			c.connectionLost(err)
			return
		}
		if ppdu.ContextID == presentation.ContextACSE {
			c.peerClosed(acse.ParseIncoming(ppdu.PDU))
			return
		}
		pdu, err := mms.DecodePDU(ppdu.PDU)
		if err != nil {
			c.connectionLost(err)
			return
		}
		c.dispatch(pdu)
	}
}

func (c *Client) dispatch(pdu *mms.PDU) {
	switch pdu.Kind {
	case mms.KindConfirmedResponse:
		c.fulfill(pdu.InvokeID, outcome{pdu: pdu})
	case mms.KindConfirmedError:
		c.fulfill(pdu.InvokeID, outcome{err: pdu.Error})
	case mms.KindReject:
		c.events.Rejected(pdu.InvokeID, pdu.Reject.Code)
		if pdu.Reject.HasInvokeID {
			c.fulfill(pdu.InvokeID, outcome{err: pdu.Reject})
		}
	case mms.KindConcludeResponse:
		c.mu.Lock()
		ch := c.concludeCh
		c.concludeCh = nil
		c.mu.Unlock()
		if ch != nil {
			close(ch)
		}
	case mms.KindUnconfirmed:
		// Unsolicited information reports are not subscribed to.
		c.log.Debug("discarding unconfirmed PDU")
	default:
		c.log.Debug("discarding PDU kind %d in data phase", pdu.Kind)
	}
}

func (c *Client) fulfill(invokeID uint32, out outcome) {
	c.mu.Lock()
	p, ok := c.pending.take(invokeID)
	c.mu.Unlock()
	if !ok {
		c.events.UnexpectedResponse(invokeID)
		return
	}
	p.done <- out
}

// peerClosed handles release and abort indications: during a local
// Release they complete the handshake, otherwise the association is
// lost.
func (c *Client) peerClosed(err error) {
	released := errors.Is(err, session.ErrReleased) || errors.Is(err, acse.ErrReleased)

	c.mu.Lock()
	ch := c.releaseCh
	closing := c.closing
	c.releaseCh = nil
	c.mu.Unlock()

	if closing && released && ch != nil {
		close(ch)
		return
	}
	c.connectionLost(err)
}

// connectionLost fails every pending request with ErrConnectionLost,
// closes the transport and moves to Disconnected. It runs its effects
// exactly once per association.
func (c *Client) connectionLost(cause error) {
	c.mu.Lock()
	if c.state != StateAssociated {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	deliberate := c.closing
	transport := c.transport
	c.transport = nil
	c.negotiated = nil
	if c.pending != nil {
		c.pending.failAll(fmt.Errorf("%w: %v", ErrConnectionLost, cause))
	}
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	if deliberate {
		cause = nil
	}
	c.events.AssociationDown(cause)
}

// Release performs an orderly shutdown: MMS conclude, then the ACSE
// release request inside a session FINISH, then transport teardown.
func (c *Client) Release(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateAssociated {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.closing = true
	concludeCh := make(chan struct{})
	releaseCh := make(chan struct{})
	c.concludeCh = concludeCh
	c.releaseCh = releaseCh
	c.mu.Unlock()

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	if err := c.send(presentation.BuildData(presentation.ContextMMS, mms.BuildConcludeRequest())); err != nil {
		c.connectionLost(err)
		return fmt.Errorf("client: conclude: %w", err)
	}
	select {
	case <-concludeCh:
	case <-ctx.Done():
		c.connectionLost(ctx.Err())
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timer.C:
		c.connectionLost(ErrRequestTimeout)
		return fmt.Errorf("client: conclude: %w", ErrRequestTimeout)
	}

	rlrq := presentation.BuildData(presentation.ContextACSE, acse.BuildRLRQ())
	c.sendMu.Lock()
	err := c.conn.Send(session.BuildFinish(rlrq))
	c.sendMu.Unlock()
	if err != nil {
		c.connectionLost(err)
		return fmt.Errorf("client: release: %w", err)
	}

	if !timer.Stop() {
		<-timer.C
	}
	timer.Reset(c.cfg.RequestTimeout)
	select {
	case <-releaseCh:
	case <-ctx.Done():
	case <-timer.C:
		// The conclude succeeded; a peer that never answers the release
		// still gets the transport closed underneath it.
	}
	c.connectionLost(nil)
	return nil
}

// Abort drops the association immediately without the release
// handshake. Pending requests fail with ErrConnectionLost.
func (c *Client) Abort() {
	c.mu.Lock()
	if c.state != StateAssociated {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.mu.Unlock()
	c.connectionLost(nil)
}
