package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// VMD status enumerations from ISO 9506-2.
type (
	LogicalStatus  int
	PhysicalStatus int
)

const (
	StateChangesAllowed    LogicalStatus = 0
	NoStateChangesAllowed  LogicalStatus = 1
	LimitedServicesAllowed LogicalStatus = 2
	SupportServicesAllowed LogicalStatus = 3
)

const (
	Operational          PhysicalStatus = 0
	PartiallyOperational PhysicalStatus = 1
	Inoperable           PhysicalStatus = 2
	NeedsCommissioning   PhysicalStatus = 3
)

func (s LogicalStatus) String() string {
	switch s {
	case StateChangesAllowed:
		return "state-changes-allowed"
	case NoStateChangesAllowed:
		return "no-state-changes-allowed"
	case LimitedServicesAllowed:
		return "limited-services-allowed"
	case SupportServicesAllowed:
		return "support-services-allowed"
	default:
		return fmt.Sprintf("logical-status-%d", int(s))
	}
}

func (s PhysicalStatus) String() string {
	switch s {
	case Operational:
		return "operational"
	case PartiallyOperational:
		return "partially-operational"
	case Inoperable:
		return "inoperable"
	case NeedsCommissioning:
		return "needs-commissioning"
	default:
		return fmt.Sprintf("physical-status-%d", int(s))
	}
}

// ServerStatus is the status response.
type ServerStatus struct {
	Logical  LogicalStatus
	Physical PhysicalStatus
}

// BuildStatusRequest builds a confirmed status request. The boolean
// asks for extended derivation of the status values.
func BuildStatusRequest(invokeID uint32, extended bool) ber.Value {
	content := []byte{0x00}
	if extended {
		content[0] = 0xFF
	}
	return confirmedRequest(invokeID, ber.ContextValue(ServiceStatus, content))
}

// ParseStatusResponse decodes the status response payload.
func ParseStatusResponse(service ber.Value) (ServerStatus, error) {
	logical, okL := service.Child(0)
	physical, okP := service.Child(1)
	if !okL || !okP {
		return ServerStatus{}, fmt.Errorf("%w: status response needs logical and physical status", ErrMalformedPDU)
	}
	return ServerStatus{
		Logical:  LogicalStatus(ber.DecodeUint32(logical.Bytes, len(logical.Bytes), 0)),
		Physical: PhysicalStatus(ber.DecodeUint32(physical.Bytes, len(physical.Bytes), 0)),
	}, nil
}
