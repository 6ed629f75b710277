package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"gopkg.in/validator.v2"

	"github.com/grid61850/mms/logger"
	"github.com/grid61850/mms/osi/acse"
	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/session"
)

// Dialer opens the raw duplex channel to the server.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Config carries the association parameters. The zero value of every
// optional field is replaced by its default in applyDefaults.
type Config struct {
	// Address is the server endpoint, host:port.
	Address string `validate:"nonzero"`

	// AssociationTimeout bounds the whole Connect handshake.
	AssociationTimeout time.Duration `validate:"min=0"`
	// RequestTimeout is the default per-request deadline.
	RequestTimeout time.Duration `validate:"min=0"`
	// MaxPendingRequests caps the invoke-ID table.
	MaxPendingRequests int `validate:"min=1,max=65535"`

	// TPDUSize is the COTP TPDU size code (7..13, 2^n octets); zero
	// keeps the transport default.
	TPDUSize byte `validate:"max=13"`
	// LocalTSelector and RemoteTSelector are the COTP transport
	// selectors; nil keeps the defaults.
	LocalTSelector  []byte
	RemoteTSelector []byte
	// SessionSelector overrides the calling/called session selector.
	SessionSelector *session.Selector

	// Initiate is the proposed MMS initiate parameter set.
	Initiate mms.InitiateParameters
	// ACSE carries the AP title / AE qualifier pairs.
	ACSE acse.Parameters

	// Dial opens the transport; defaults to a net.Dialer.
	Dial Dialer `validate:"-"`
	// Logger receives wire-level debug output; defaults to Nop.
	Logger logger.Logger `validate:"-"`
	// Events receives structured client events; defaults to Nop.
	Events Events `validate:"-"`
}

// DefaultConfig returns a Config with the defaults most IEC 61850
// servers accept.
func DefaultConfig(address string) Config {
	cfg := Config{Address: address}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.AssociationTimeout == 0 {
		c.AssociationTimeout = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.MaxPendingRequests == 0 {
		c.MaxPendingRequests = 16
	}
	if c.Initiate == (mms.InitiateParameters{}) {
		c.Initiate = mms.DefaultInitiateParameters()
	}
	if c.ACSE.CalledAPTitle == nil && c.ACSE.CallingAPTitle == nil {
		c.ACSE = acse.DefaultParameters()
	}
	if c.Dial == nil {
		c.Dial = func(ctx context.Context, address string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", address)
		}
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Events == nil {
		c.Events = NopEvents{}
	}
}

// Validate applies defaults and checks the field constraints.
func (c *Config) Validate() error {
	c.applyDefaults()
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("client: invalid config: %w", err)
	}
	// Codes 1..6 name TPDU sizes below the DT header; the profile only
	// defines 7..13.
	if c.TPDUSize != 0 && c.TPDUSize < 7 {
		return fmt.Errorf("client: invalid config: TPDUSize code %d, want 7..13 or 0", c.TPDUSize)
	}
	return nil
}
