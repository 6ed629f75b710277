package mms

import (
	"fmt"

	"github.com/grid61850/mms/ber"
)

// ServerIdentity is the identify response: vendor, model and revision
// strings of the server.
type ServerIdentity struct {
	Vendor   string
	Model    string
	Revision string
}

func (id ServerIdentity) String() string {
	return id.Vendor + " " + id.Model + " " + id.Revision
}

// BuildIdentifyRequest builds a confirmed identify request. The
// service has no parameters.
func BuildIdentifyRequest(invokeID uint32) ber.Value {
	return confirmedRequest(invokeID, ber.ContextValue(ServiceIdentify, nil))
}

// ParseIdentifyResponse decodes the identify response payload.
func ParseIdentifyResponse(service ber.Value) (ServerIdentity, error) {
	if len(service.Children) < 3 {
		return ServerIdentity{}, fmt.Errorf("%w: identify response needs vendor, model and revision", ErrMalformedPDU)
	}
	return ServerIdentity{
		Vendor:   string(service.Children[0].Bytes),
		Model:    string(service.Children[1].Bytes),
		Revision: string(service.Children[2].Bytes),
	}, nil
}
