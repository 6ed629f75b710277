package client

import (
	"context"
	"fmt"
	"time"

	"github.com/grid61850/mms/model"
	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/mms/variant"
)

// CtlModel is the control model of a controllable data object, read
// from its ctlModel configuration attribute.
type CtlModel int

const (
	CtlStatusOnly CtlModel = iota
	CtlDirectNormal
	CtlSBONormal
	CtlDirectEnhanced
	CtlSBOEnhanced
)

func (m CtlModel) String() string {
	switch m {
	case CtlStatusOnly:
		return "status-only"
	case CtlDirectNormal:
		return "direct-with-normal-security"
	case CtlSBONormal:
		return "sbo-with-normal-security"
	case CtlDirectEnhanced:
		return "direct-with-enhanced-security"
	case CtlSBOEnhanced:
		return "sbo-with-enhanced-security"
	default:
		return fmt.Sprintf("ctlModel-%d", int(m))
	}
}

// selectBeforeOperate reports whether the model requires selection.
func (m CtlModel) selectBeforeOperate() bool {
	return m == CtlSBONormal || m == CtlSBOEnhanced
}

// OriginCategory is the orCat of a control origin.
type OriginCategory int

const (
	OriginNotSupported OriginCategory = iota
	OriginBayControl
	OriginStationControl
	OriginRemoteControl
	OriginAutomaticBay
	OriginAutomaticStation
	OriginAutomaticRemote
	OriginMaintenance
	OriginProcess
)

// ControlOptions tunes one control sequence. The zero value is a
// remote-control operation without test mode or checks.
type ControlOptions struct {
	OriginCategory   OriginCategory
	OriginIdentifier []byte
	// Test marks the operation as a test; the server must not act on
	// the process.
	Test bool
	// InterlockCheck and SynchroCheck ask the server to run the
	// respective condition checks before operating.
	InterlockCheck bool
	SynchroCheck   bool
}

func (o *ControlOptions) origin() *variant.Value {
	category := OriginRemoteControl
	var identifier []byte
	if o != nil {
		if o.OriginCategory != OriginNotSupported {
			category = o.OriginCategory
		}
		identifier = o.OriginIdentifier
	}
	if identifier == nil {
		identifier = []byte{}
	}
	return variant.NewStructure(
		variant.NewInt(int64(category)),
		variant.NewOctetString(identifier),
	)
}

func (o *ControlOptions) test() bool {
	return o != nil && o.Test
}

func (o *ControlOptions) check() *variant.Value {
	var bits byte
	if o != nil && o.InterlockCheck {
		bits |= 0x80
	}
	if o != nil && o.SynchroCheck {
		bits |= 0x40
	}
	return variant.NewBitString([]byte{bits}, 2)
}

// controlAttribute maps a control object reference onto one of its
// service attributes, e.g. LD/LN.DO + Oper -> LD/LN$CO$DO$Oper.
func controlAttribute(r model.Ref, fc model.FC, attribute string) mms.ObjectName {
	name := r.Name(fc)
	name.Item += "$" + attribute
	return name
}

// operateValue assembles the Oper (and SBOw) structure: ctlVal,
// origin, ctlNum, T, Test, Check.
func operateValue(value *variant.Value, opts *ControlOptions, ctlNum uint8, now time.Time) *variant.Value {
	return variant.NewStructure(
		value,
		opts.origin(),
		variant.NewUint(uint64(ctlNum)),
		variant.NewUTCTime(now, 0x0A), // clock not synchronized, 10 fraction bits
		variant.NewBool(opts.test()),
		opts.check(),
	)
}

// cancelValue assembles the Cancel structure: ctlVal, origin, ctlNum,
// T, Test.
func cancelValue(value *variant.Value, opts *ControlOptions, ctlNum uint8, now time.Time) *variant.Value {
	return variant.NewStructure(
		value,
		opts.origin(),
		variant.NewUint(uint64(ctlNum)),
		variant.NewUTCTime(now, 0x0A),
		variant.NewBool(opts.test()),
	)
}

// ControlModel reads the ctlModel attribute of a controllable data
// object.
func (c *Client) ControlModel(ctx context.Context, ref string) (CtlModel, error) {
	r, err := model.ParseRef(ref)
	if err != nil {
		return CtlStatusOnly, err
	}
	return c.controlModel(ctx, r)
}

func (c *Client) controlModel(ctx context.Context, r model.Ref) (CtlModel, error) {
	results, err := c.ReadVariables(ctx, controlAttribute(r, model.FCConfig, "ctlModel"))
	if err != nil {
		return CtlStatusOnly, err
	}
	if results[0].Err != nil {
		return CtlStatusOnly, fmt.Errorf("client: reading ctlModel of %s: %w", r.String(), results[0].Err)
	}
	return CtlModel(results[0].Value.Int()), nil
}

// ControlOperate runs one control sequence on a data object: it reads
// the control model, performs the selection the model requires and
// writes Oper once. ref names the data object, LD/LN.DO.
func (c *Client) ControlOperate(ctx context.Context, ref string, value *variant.Value, opts *ControlOptions) error {
	r, err := model.ParseRef(ref)
	if err != nil {
		return err
	}
	ctlModel, err := c.controlModel(ctx, r)
	if err != nil {
		return err
	}
	if ctlModel == CtlStatusOnly {
		return fmt.Errorf("%w: %s is %s", ErrControlUnsupported, ref, ctlModel)
	}

	ctlNum := uint8(c.ctlNum.Add(1))
	now := time.Now()

	if ctlModel.selectBeforeOperate() {
		if err := c.controlSelect(ctx, r, ctlModel, value, opts, ctlNum, now); err != nil {
			return err
		}
	}

	oper := operateValue(value, opts, ctlNum, now)
	results, err := c.WriteVariables(ctx,
		[]mms.ObjectName{controlAttribute(r, model.FCControl, "Oper")},
		[]*variant.Value{oper})
	if err != nil {
		return err
	}
	if results[0] != nil {
		return fmt.Errorf("client: operate %s: %w", ref, results[0])
	}
	return nil
}

// controlSelect performs the selection phase: a read of SBO for
// sbo-with-normal-security, a write of SBOw for enhanced security. A
// selection the server does not grant maps to ErrSelectionRequired.
func (c *Client) controlSelect(ctx context.Context, r model.Ref, ctlModel CtlModel, value *variant.Value, opts *ControlOptions, ctlNum uint8, now time.Time) error {
	if ctlModel == CtlSBONormal {
		results, err := c.ReadVariables(ctx, controlAttribute(r, model.FCControl, "SBO"))
		if err != nil {
			return err
		}
		if results[0].Err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSelectionRequired, r.String(), results[0].Err)
		}
		// An empty SBO string means the object is already selected by
		// another client or selection failed.
		if results[0].Value.Str() == "" {
			return fmt.Errorf("%w: %s: selection not granted", ErrSelectionRequired, r.String())
		}
		return nil
	}

	sbow := operateValue(value, opts, ctlNum, now)
	results, err := c.WriteVariables(ctx,
		[]mms.ObjectName{controlAttribute(r, model.FCControl, "SBOw")},
		[]*variant.Value{sbow})
	if err != nil {
		return err
	}
	if results[0] != nil {
		return fmt.Errorf("%w: %s: %v", ErrSelectionRequired, r.String(), results[0])
	}
	return nil
}

// ControlCancel cancels a running or selected control sequence.
func (c *Client) ControlCancel(ctx context.Context, ref string, value *variant.Value, opts *ControlOptions) error {
	r, err := model.ParseRef(ref)
	if err != nil {
		return err
	}
	cancel := cancelValue(value, opts, uint8(c.ctlNum.Load()), time.Now())
	results, err := c.WriteVariables(ctx,
		[]mms.ObjectName{controlAttribute(r, model.FCControl, "Cancel")},
		[]*variant.Value{cancel})
	if err != nil {
		return err
	}
	if results[0] != nil {
		return fmt.Errorf("client: cancel %s: %w", ref, results[0])
	}
	return nil
}
