package mms

import "github.com/grid61850/mms/ber"

// BuildConcludeRequest builds the conclude-RequestPDU. The request has
// no parameters; on the wire it is the bare tag 8b 00.
func BuildConcludeRequest() ber.Value {
	return ber.ContextValue(tagConcludeRequest, nil)
}
