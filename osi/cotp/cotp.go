// Package cotp implements the ISO 8073 class-0 connection-oriented
// transport protocol inside RFC 1006 TPKT framing, as used by the
// MMS-over-TCP profile on port 102.
package cotp

import (
	"errors"
	"fmt"
	"io"

	"github.com/grid61850/mms/logger"
)

const (
	tpktHeaderSize     = 4
	dataHeaderSize     = 3
	minTpduSize        = 128
	maxTpduSize        = 8192
	maxTpktSize        = 65535
	defaultPayloadSize = 65536
)

// TPDU type codes.
const (
	tpduConnectRequest    = 0xE0
	tpduConnectConfirm    = 0xD0
	tpduData              = 0xF0
	tpduDisconnectRequest = 0x80
	tpduDisconnectConfirm = 0xC0
)

var (
	// ErrDisconnected reports a DR/DC TPDU or a closed byte stream.
	ErrDisconnected = errors.New("cotp: transport disconnected")
	// ErrProtocol reports a malformed or unexpected TPDU.
	ErrProtocol = errors.New("cotp: protocol error")
	// ErrConnectionRefused reports a rejected connect request.
	ErrConnectionRefused = errors.New("cotp: connection refused")
)

// TSelector identifies a transport endpoint within a host.
type TSelector struct {
	Value []byte
}

type options struct {
	tpduSize    int
	localTSel   TSelector
	remoteTSel  TSelector
	payloadSize int
	logger      logger.Logger
}

func defaultOptions() options {
	return options{
		tpduSize:    maxTpduSize,
		localTSel:   TSelector{Value: []byte{0x00, 0x01}},
		remoteTSel:  TSelector{Value: []byte{0x00, 0x01}},
		payloadSize: defaultPayloadSize,
		logger:      logger.Nop(),
	}
}

// Option configures a Connection.
type Option func(*options)

// WithTpduSize sets the proposed maximum TPDU size in bytes; it is
// rounded down to the nearest power of two the protocol can express
// and never below the class-0 minimum of 128.
func WithTpduSize(size int) Option {
	return func(o *options) { o.tpduSize = size }
}

// WithLocalTSelector sets the calling transport selector.
func WithLocalTSelector(sel TSelector) Option {
	return func(o *options) { o.localTSel = sel }
}

// WithRemoteTSelector sets the called transport selector.
func WithRemoteTSelector(sel TSelector) Option {
	return func(o *options) { o.remoteTSel = sel }
}

// WithMaxPayloadSize bounds the size of a reassembled inbound payload.
func WithMaxPayloadSize(size int) Option {
	return func(o *options) { o.payloadSize = size }
}

// WithLogger sets the debug logger for TX/RX frame dumps.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Connection is a COTP class-0 connection over a duplex byte stream.
// It is not safe for concurrent use; the owning session serializes
// access.
type Connection struct {
	conn      io.ReadWriteCloser
	opts      options
	tpduCode  uint8 // negotiated TPDU size as a power of two
	localRef  uint16
	remoteRef uint16
	connected bool
}

// NewConnection wraps an established duplex byte stream. The caller
// keeps ownership of dialing and TLS; this layer only frames.
func NewConnection(conn io.ReadWriteCloser, opts ...Option) *Connection {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Connection{
		conn:     conn,
		opts:     o,
		localRef: 1,
	}
	c.setTpduSize(o.tpduSize)
	return c
}

// setTpduSize keeps the size inside the class-0 profile. Below 128 the
// 3-byte DT header would leave no room for payload.
func (c *Connection) setTpduSize(size int) {
	if size > maxTpduSize {
		size = maxTpduSize
	}
	if size < minTpduSize {
		size = minTpduSize
	}
	code := uint8(1)
	for 1<<(code+1) <= size {
		code++
	}
	c.tpduCode = code
}

// TpduSize returns the negotiated maximum TPDU size in bytes.
func (c *Connection) TpduSize() int {
	return 1 << c.tpduCode
}

func (c *Connection) writeTpkt(tpdu []byte) error {
	length := len(tpdu) + tpktHeaderSize
	if length > maxTpktSize {
		return fmt.Errorf("%w: TPKT too large: %d", ErrProtocol, length)
	}
	frame := make([]byte, 0, length)
	frame = append(frame, 0x03, 0x00, byte(length>>8), byte(length))
	frame = append(frame, tpdu...)
	c.opts.logger.Debug("TX: % x", frame)
	_, err := c.conn.Write(frame)
	return err
}

func (c *Connection) readTpkt() ([]byte, error) {
	header := make([]byte, tpktHeaderSize)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrDisconnected
		}
		return nil, err
	}
	if header[0] != 0x03 || header[1] != 0x00 {
		return nil, fmt.Errorf("%w: invalid TPKT header % x", ErrProtocol, header)
	}
	length := int(header[2])<<8 | int(header[3])
	if length < tpktHeaderSize {
		return nil, fmt.Errorf("%w: invalid TPKT length %d", ErrProtocol, length)
	}
	tpdu := make([]byte, length-tpktHeaderSize)
	if _, err := io.ReadFull(c.conn, tpdu); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrDisconnected
		}
		return nil, err
	}
	c.opts.logger.Debug("RX: % x", append(header, tpdu...))
	return tpdu, nil
}

func (c *Connection) appendOptions(dst []byte) []byte {
	dst = append(dst, 0xC0, 0x01, c.tpduCode)
	if len(c.opts.remoteTSel.Value) > 0 {
		dst = append(dst, 0xC2, byte(len(c.opts.remoteTSel.Value)))
		dst = append(dst, c.opts.remoteTSel.Value...)
	}
	if len(c.opts.localTSel.Value) > 0 {
		dst = append(dst, 0xC1, byte(len(c.opts.localTSel.Value)))
		dst = append(dst, c.opts.localTSel.Value...)
	}
	return dst
}

// Connect performs the CR/CC handshake. On any failure the underlying
// stream is left for the caller to close.
func (c *Connection) Connect() error {
	var tpdu []byte
	// Header: LI, CR, DST-REF, SRC-REF, class 0.
	tpdu = append(tpdu, 0x00, tpduConnectRequest, 0x00, 0x00,
		byte(c.localRef>>8), byte(c.localRef), 0x00)
	tpdu = c.appendOptions(tpdu)
	tpdu[0] = byte(len(tpdu) - 1) // length indicator excludes itself

	if err := c.writeTpkt(tpdu); err != nil {
		return err
	}

	reply, err := c.readTpkt()
	if err != nil {
		return err
	}
	if len(reply) < 7 {
		return fmt.Errorf("%w: connect confirm too short", ErrProtocol)
	}
	switch reply[1] {
	case tpduConnectConfirm:
	case tpduDisconnectRequest:
		return ErrConnectionRefused
	default:
		return fmt.Errorf("%w: expected CC, got TPDU 0x%02x", ErrProtocol, reply[1])
	}

	c.remoteRef = uint16(reply[4])<<8 | uint16(reply[5])
	if err := c.parseOptions(reply[7:]); err != nil {
		return err
	}
	c.connected = true
	return nil
}

func (c *Connection) parseOptions(buffer []byte) error {
	pos := 0
	for pos < len(buffer) {
		if pos+2 > len(buffer) {
			return fmt.Errorf("%w: truncated option", ErrProtocol)
		}
		optType := buffer[pos]
		optLen := int(buffer[pos+1])
		pos += 2
		if pos+optLen > len(buffer) {
			return fmt.Errorf("%w: option 0x%02x overruns TPDU", ErrProtocol, optType)
		}
		switch optType {
		case 0xC0: // TPDU size
			if optLen != 1 {
				return fmt.Errorf("%w: bad TPDU size option", ErrProtocol)
			}
			c.setTpduSize(1 << buffer[pos])
		case 0xC1: // calling T-selector
			c.opts.localTSel.Value = append([]byte(nil), buffer[pos:pos+optLen]...)
		case 0xC2: // called T-selector
			c.opts.remoteTSel.Value = append([]byte(nil), buffer[pos:pos+optLen]...)
		default:
			// Unknown options are skipped.
		}
		pos += optLen
	}
	return nil
}

// Send writes one session payload, fragmenting it into DT TPDUs that
// fit the negotiated TPDU size.
func (c *Connection) Send(payload []byte) error {
	fragmentSize := c.TpduSize() - dataHeaderSize
	for {
		last := len(payload) <= fragmentSize
		limit := len(payload)
		if !last {
			limit = fragmentSize
		}

		tpdu := make([]byte, 0, dataHeaderSize+limit)
		eot := byte(0x00)
		if last {
			eot = 0x80
		}
		tpdu = append(tpdu, 0x02, tpduData, eot)
		tpdu = append(tpdu, payload[:limit]...)
		if err := c.writeTpkt(tpdu); err != nil {
			return err
		}
		if last {
			return nil
		}
		payload = payload[limit:]
	}
}

// Receive reads DT TPDUs until an end-of-TSDU flag and returns the
// reassembled session payload. A disconnect request from the peer
// returns ErrDisconnected.
func (c *Connection) Receive() ([]byte, error) {
	var payload []byte
	for {
		tpdu, err := c.readTpkt()
		if err != nil {
			return nil, err
		}
		if len(tpdu) < 2 {
			return nil, fmt.Errorf("%w: TPDU too short", ErrProtocol)
		}
		switch tpdu[1] {
		case tpduData:
			if len(tpdu) < dataHeaderSize {
				return nil, fmt.Errorf("%w: DT TPDU too short", ErrProtocol)
			}
			if len(payload)+len(tpdu)-dataHeaderSize > c.opts.payloadSize {
				return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrProtocol, c.opts.payloadSize)
			}
			payload = append(payload, tpdu[dataHeaderSize:]...)
			if tpdu[2]&0x80 != 0 {
				return payload, nil
			}
		case tpduDisconnectRequest, tpduDisconnectConfirm:
			return nil, ErrDisconnected
		default:
			return nil, fmt.Errorf("%w: unexpected TPDU 0x%02x", ErrProtocol, tpdu[1])
		}
	}
}

// Close closes the underlying byte stream.
func (c *Connection) Close() error {
	c.connected = false
	return c.conn.Close()
}
