package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/grid61850/mms/ber"
	"github.com/grid61850/mms/model"
	"github.com/grid61850/mms/osi/mms"
	"github.com/grid61850/mms/osi/mms/variant"
)

// serviceResponse checks that a confirmed response answers the service
// that was requested and returns its payload.
func serviceResponse(pdu *mms.PDU, tag uint32) (ber.Value, error) {
	if pdu.Kind != mms.KindConfirmedResponse {
		return ber.Value{}, fmt.Errorf("%w: expected confirmed response", mms.ErrMalformedPDU)
	}
	if pdu.ServiceTag != tag {
		return ber.Value{}, fmt.Errorf("%w: expected %s response, got %s",
			mms.ErrMalformedPDU, mms.ServiceName(tag), mms.ServiceName(pdu.ServiceTag))
	}
	return pdu.Service, nil
}

// Identify returns the server's vendor, model and revision strings.
func (c *Client) Identify(ctx context.Context) (mms.ServerIdentity, error) {
	pdu, err := c.request(ctx, mms.BuildIdentifyRequest)
	if err != nil {
		return mms.ServerIdentity{}, err
	}
	service, err := serviceResponse(pdu, mms.ServiceIdentify)
	if err != nil {
		return mms.ServerIdentity{}, err
	}
	return mms.ParseIdentifyResponse(service)
}

// Status returns the server's logical and physical status. With
// extendedDerivation the server re-evaluates its state before
// answering.
func (c *Client) Status(ctx context.Context, extendedDerivation bool) (mms.ServerStatus, error) {
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildStatusRequest(id, extendedDerivation)
	})
	if err != nil {
		return mms.ServerStatus{}, err
	}
	service, err := serviceResponse(pdu, mms.ServiceStatus)
	if err != nil {
		return mms.ServerStatus{}, err
	}
	return mms.ParseStatusResponse(service)
}

// nameList runs a paged getNameList until moreFollows clears.
func (c *Client) nameList(ctx context.Context, class mms.ObjectClass, domain string) ([]string, error) {
	var names []string
	continueAfter := ""
	for {
		pdu, err := c.request(ctx, func(id uint32) ber.Value {
			return mms.BuildGetNameListRequest(id, class, domain, continueAfter)
		})
		if err != nil {
			return nil, err
		}
		service, err := serviceResponse(pdu, mms.ServiceGetNameList)
		if err != nil {
			return nil, err
		}
		page, err := mms.ParseGetNameListResponse(service)
		if err != nil {
			return nil, err
		}
		names = append(names, page.Identifiers...)
		if !page.MoreFollows || len(page.Identifiers) == 0 {
			return names, nil
		}
		continueAfter = page.Identifiers[len(page.Identifiers)-1]
	}
}

// LogicalDeviceNames lists the server's logical devices (MMS domains).
func (c *Client) LogicalDeviceNames(ctx context.Context) ([]string, error) {
	return c.nameList(ctx, mms.ClassDomain, "")
}

// VariableNames lists every named variable of one logical device, one
// entry per functionally-constrained path level.
func (c *Client) VariableNames(ctx context.Context, logicalDevice string) ([]string, error) {
	return c.nameList(ctx, mms.ClassNamedVariable, logicalDevice)
}

// DataSetNames lists the named variable lists of one logical device.
func (c *Client) DataSetNames(ctx context.Context, logicalDevice string) ([]string, error) {
	return c.nameList(ctx, mms.ClassNamedVariableList, logicalDevice)
}

// VariableType fetches the type description of one named variable.
func (c *Client) VariableType(ctx context.Context, name mms.ObjectName) (mms.TypeSpec, error) {
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildGetVariableAccessAttributesRequest(id, name)
	})
	if err != nil {
		return mms.TypeSpec{}, err
	}
	service, err := serviceResponse(pdu, mms.ServiceGetVariableAccessAttributes)
	if err != nil {
		return mms.TypeSpec{}, err
	}
	attrs, err := mms.ParseGetVariableAccessAttributesResponse(service)
	if err != nil {
		return mms.TypeSpec{}, err
	}
	return attrs.Type, nil
}

// ReadVariables reads named variables in one request; results arrive
// in request order and carry per-variable access errors.
func (c *Client) ReadVariables(ctx context.Context, names ...mms.ObjectName) ([]mms.AccessResult, error) {
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildReadRequest(id, names...)
	})
	if err != nil {
		return nil, err
	}
	service, err := serviceResponse(pdu, mms.ServiceRead)
	if err != nil {
		return nil, err
	}
	results, err := mms.ParseReadResponse(service)
	if err != nil {
		return nil, err
	}
	if len(results) != len(names) {
		return nil, fmt.Errorf("%w: %d access results for %d variables",
			mms.ErrMalformedPDU, len(results), len(names))
	}
	return results, nil
}

// Read reads one data attribute by object reference and functional
// constraint.
func (c *Client) Read(ctx context.Context, ref string, fc model.FC) (*variant.Value, error) {
	r, err := model.ParseRef(ref)
	if err != nil {
		return nil, err
	}
	results, err := c.ReadVariables(ctx, r.Name(fc))
	if err != nil {
		return nil, err
	}
	return results[0].Value, results[0].Err
}

// WriteVariables writes values to named variables in one request and
// returns the per-variable outcome, nil for success.
func (c *Client) WriteVariables(ctx context.Context, names []mms.ObjectName, values []*variant.Value) ([]error, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("client: %d names for %d values", len(names), len(values))
	}
	// Encode up front so a value that cannot be represented fails here
	// instead of framing a garbage PDU.
	data := make([]ber.Value, len(values))
	for i, v := range values {
		d, err := mms.EncodeData(v)
		if err != nil {
			return nil, fmt.Errorf("client: value %d: %w", i, err)
		}
		data[i] = d
	}
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildWriteDataRequest(id, names, data)
	})
	if err != nil {
		return nil, err
	}
	service, err := serviceResponse(pdu, mms.ServiceWrite)
	if err != nil {
		return nil, err
	}
	results, err := mms.ParseWriteResponse(service)
	if err != nil {
		return nil, err
	}
	if len(results) != len(names) {
		return nil, fmt.Errorf("%w: %d write results for %d variables",
			mms.ErrMalformedPDU, len(results), len(names))
	}
	return results, nil
}

// Write writes one data attribute by object reference and functional
// constraint.
func (c *Client) Write(ctx context.Context, ref string, fc model.FC, value *variant.Value) error {
	r, err := model.ParseRef(ref)
	if err != nil {
		return err
	}
	results, err := c.WriteVariables(ctx, []mms.ObjectName{r.Name(fc)}, []*variant.Value{value})
	if err != nil {
		return err
	}
	return results[0]
}

// Discover builds the data model tree of one logical device from the
// server's name list and type descriptions.
func (c *Client) Discover(ctx context.Context, logicalDevice string) (*model.Node, error) {
	return model.Discover(ctx, c, logicalDevice)
}

// Browse resolves a reference and returns the children of the node it
// names. A bare logical device name lists its logical nodes.
func (c *Client) Browse(ctx context.Context, ref string) ([]*model.Node, error) {
	if !strings.Contains(ref, "/") {
		device, err := c.Discover(ctx, ref)
		if err != nil {
			return nil, err
		}
		return device.Children, nil
	}
	r, err := model.ParseRef(ref)
	if err != nil {
		return nil, err
	}
	device, err := c.Discover(ctx, r.LD)
	if err != nil {
		return nil, err
	}
	node, err := device.Resolve(r.Path...)
	if err != nil {
		return nil, err
	}
	return node.Children, nil
}

// datasetName maps an "LD/LN.DataSet" reference onto the MMS named
// variable list name "LD/LN$DataSet".
func datasetName(ref string) (mms.ObjectName, error) {
	r, err := model.ParseRef(ref)
	if err != nil {
		return mms.ObjectName{}, err
	}
	if len(r.Path) != 2 {
		return mms.ObjectName{}, fmt.Errorf("%w: data set reference needs LD/LN.DataSet, got %q", model.ErrInvalidRef, ref)
	}
	return mms.ObjectName{Domain: r.LD, Item: r.Path[0] + "$" + r.Path[1]}, nil
}

// GetDataSetDirectory returns the member names of a data set in
// definition order.
func (c *Client) GetDataSetDirectory(ctx context.Context, ref string) ([]mms.ObjectName, error) {
	list, err := datasetName(ref)
	if err != nil {
		return nil, err
	}
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildGetNamedVariableListAttributesRequest(id, list)
	})
	if err != nil {
		return nil, err
	}
	service, err := serviceResponse(pdu, mms.ServiceGetNamedVariableListAttributes)
	if err != nil {
		return nil, err
	}
	attrs, err := mms.ParseGetNamedVariableListAttributesResponse(service)
	if err != nil {
		return nil, err
	}
	return attrs.Members, nil
}

// GetDataSetValues reads a whole data set in one request, one access
// result per member in definition order.
func (c *Client) GetDataSetValues(ctx context.Context, ref string) ([]mms.AccessResult, error) {
	list, err := datasetName(ref)
	if err != nil {
		return nil, err
	}
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildReadNamedVariableListRequest(id, list)
	})
	if err != nil {
		return nil, err
	}
	service, err := serviceResponse(pdu, mms.ServiceRead)
	if err != nil {
		return nil, err
	}
	return mms.ParseReadResponse(service)
}

// DefineDataSet creates a named variable list with the given members.
func (c *Client) DefineDataSet(ctx context.Context, ref string, members []mms.ObjectName) error {
	list, err := datasetName(ref)
	if err != nil {
		return err
	}
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildDefineNamedVariableListRequest(id, list, members)
	})
	if err != nil {
		return err
	}
	_, err = serviceResponse(pdu, mms.ServiceDefineNamedVariableList)
	return err
}

// DeleteDataSet deletes a named variable list. A list that exists but
// was not deleted reports an error with both counters.
func (c *Client) DeleteDataSet(ctx context.Context, ref string) error {
	list, err := datasetName(ref)
	if err != nil {
		return err
	}
	pdu, err := c.request(ctx, func(id uint32) ber.Value {
		return mms.BuildDeleteNamedVariableListRequest(id, list)
	})
	if err != nil {
		return err
	}
	service, err := serviceResponse(pdu, mms.ServiceDeleteNamedVariableList)
	if err != nil {
		return err
	}
	result, err := mms.ParseDeleteNamedVariableListResponse(service)
	if err != nil {
		return err
	}
	if result.Deleted < result.Matched {
		return fmt.Errorf("client: data set %s: deleted %d of %d matched lists",
			ref, result.Deleted, result.Matched)
	}
	return nil
}
