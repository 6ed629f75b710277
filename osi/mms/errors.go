package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// DataAccessErrorCode is the per-element failure code inside Read and
// Write responses, per the ISO 9506-2 DataAccessError enumeration.
type DataAccessErrorCode uint32

const (
	ObjectInvalidated           DataAccessErrorCode = 0
	HardwareFault               DataAccessErrorCode = 1
	TemporarilyUnavailable      DataAccessErrorCode = 2
	ObjectAccessDenied          DataAccessErrorCode = 3
	ObjectUndefined             DataAccessErrorCode = 4
	InvalidAddress              DataAccessErrorCode = 5
	TypeUnsupported             DataAccessErrorCode = 6
	TypeInconsistent            DataAccessErrorCode = 7
	ObjectAttributeInconsistent DataAccessErrorCode = 8
	ObjectAccessUnsupported     DataAccessErrorCode = 9
	ObjectNonExistent           DataAccessErrorCode = 10
	ObjectValueInvalid          DataAccessErrorCode = 11
)

// String returns the hyphenated name from the ASN.1 enumeration.
func (c DataAccessErrorCode) String() string {
	switch c {
	case ObjectInvalidated:
		return "object-invalidated"
	case HardwareFault:
		return "hardware-fault"
	case TemporarilyUnavailable:
		return "temporarily-unavailable"
	case ObjectAccessDenied:
		return "object-access-denied"
	case ObjectUndefined:
		return "object-undefined"
	case InvalidAddress:
		return "invalid-address"
	case TypeUnsupported:
		return "type-unsupported"
	case TypeInconsistent:
		return "type-inconsistent"
	case ObjectAttributeInconsistent:
		return "object-attribute-inconsistent"
	case ObjectAccessUnsupported:
		return "object-access-unsupported"
	case ObjectNonExistent:
		return "object-non-existent"
	case ObjectValueInvalid:
		return "object-value-invalid"
	default:
		return fmt.Sprintf("data-access-error-%d", uint32(c))
	}
}

// DataAccessError is a server-reported failure for one accessed
// element. It is fatal to the single operation only; whether a retry
// is safe is the caller's judgment.
type DataAccessError struct {
	Code DataAccessErrorCode
}

func (e *DataAccessError) Error() string {
	return "mms: data access error: " + e.Code.String()
}

// ServiceError is the payload of a confirmed-ErrorPDU.
type ServiceError struct {
	Class   int
	Code    int
	Message string // additionalDescription when the server sent one
}

// Service error classes from the ISO 9506-2 serviceError CHOICE.
const (
	ClassVMDState             = 0
	ClassApplicationReference = 1
	ClassDefinition           = 2
	ClassResource             = 3
	ClassService              = 4
	ClassServicePreempt       = 5
	ClassTimeResolution       = 6
	ClassAccess               = 7
	ClassInitiate             = 8
	ClassConclude             = 9
	ClassCancel               = 10
	ClassFile                 = 11
	ClassOthers               = 12
)

func serviceErrorClassName(class int) string {
	switch class {
	case ClassVMDState:
		return "vmd-state"
	case ClassApplicationReference:
		return "application-reference"
	case ClassDefinition:
		return "definition"
	case ClassResource:
		return "resource"
	case ClassService:
		return "service"
	case ClassServicePreempt:
		return "service-preempt"
	case ClassTimeResolution:
		return "time-resolution"
	case ClassAccess:
		return "access"
	case ClassInitiate:
		return "initiate"
	case ClassConclude:
		return "conclude"
	case ClassCancel:
		return "cancel"
	case ClassFile:
		return "file"
	case ClassOthers:
		return "others"
	default:
		return fmt.Sprintf("class-%d", class)
	}
}

// Access class error codes.
const (
	accessObjectAccessUnsupported = 1
	accessObjectNonExistent       = 2
	accessObjectAccessDenied      = 3
	accessObjectInvalidated       = 4
)

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("mms: service error: class %s code %d", serviceErrorClassName(e.Class), e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// DataAccessCode maps access-class service errors onto the
// DataAccessError taxonomy so callers inspect one code space; ok is
// false for classes with no direct mapping.
func (e *ServiceError) DataAccessCode() (DataAccessErrorCode, bool) {
	if e.Class != ClassAccess {
		return 0, false
	}
	switch e.Code {
	case accessObjectAccessUnsupported:
		return ObjectAccessUnsupported, true
	case accessObjectNonExistent:
		return ObjectNonExistent, true
	case accessObjectAccessDenied:
		return ObjectAccessDenied, true
	case accessObjectInvalidated:
		return ObjectInvalidated, true
	default:
		return 0, false
	}
}

// RejectError is the payload of a rejectPDU: the peer considered the
// request malformed or the service unsupported.
type RejectError struct {
	HasInvokeID bool
	PDUType     int // rejectReason choice tag: which PDU kind was rejected
	Code        int
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("mms: rejected: pdu-type %d code %d", e.PDUType, e.Code)
}

// parseServiceError decodes the serviceError field of a
// confirmed-ErrorPDU.
func parseServiceError(v ber.Value) *ServiceError {
	se := &ServiceError{Class: -1, Code: -1}
	for _, c := range v.Children {
		switch {
		case c.Context(0) && c.Constructed && len(c.Children) == 1:
			// errorClass CHOICE: the child tag selects the class.
			choice := c.Children[0]
			se.Class = int(choice.TagNumber)
			se.Code = int(ber.DecodeUint32(choice.Bytes, len(choice.Bytes), 0))
		case c.Context(2):
			se.Message = string(c.Bytes)
		}
	}
	return se
}
