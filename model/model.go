// Package model represents the IEC 61850 data model of a server: the
// logical device / logical node / data object tree, object reference
// parsing, and the typed value codec that checks values against the
// type descriptors discovered over MMS.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grid61850/mms/osi/mms"
)

var (
	// ErrInvalidRef reports an object reference that does not follow
	// the LD/LN.DO[.DA...] form.
	ErrInvalidRef = errors.New("model: invalid object reference")
	// ErrPathNotFound reports a reference that resolves to no node.
	ErrPathNotFound = errors.New("model: path not found")
)

// FC is the IEC 61850 functional constraint of a data attribute.
type FC string

const (
	FCStatus      FC = "ST"
	FCMeasurement FC = "MX"
	FCSetpoint    FC = "SP"
	FCSetting     FC = "SG"
	FCSubstitute  FC = "SV"
	FCConfig      FC = "CF"
	FCDescription FC = "DC"
	FCControl     FC = "CO"
	FCExtended    FC = "EX"
)

// Ref is a parsed object reference. Path holds the logical node name
// followed by the data object and attribute names.
type Ref struct {
	LD   string
	Path []string
}

// ParseRef parses "LD/LN.DO.DA..." into its parts. The logical device
// and logical node are mandatory, deeper levels optional.
func ParseRef(s string) (Ref, error) {
	ld, rest, ok := strings.Cut(s, "/")
	if !ok || ld == "" || rest == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	path := strings.Split(rest, ".")
	for _, p := range path {
		if p == "" || strings.ContainsAny(p, "/$") {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
		}
	}
	return Ref{LD: ld, Path: path}, nil
}

// String renders the reference back in LD/LN.DO.DA form.
func (r Ref) String() string {
	return r.LD + "/" + strings.Join(r.Path, ".")
}

// LN returns the logical node name.
func (r Ref) LN() string { return r.Path[0] }

// Name returns the MMS object name addressing this reference under the
// given functional constraint: domain LD, item LN$FC$DO$DA.
func (r Ref) Name(fc FC) mms.ObjectName {
	parts := make([]string, 0, len(r.Path)+1)
	parts = append(parts, r.Path[0], string(fc))
	parts = append(parts, r.Path[1:]...)
	return mms.ObjectName{Domain: r.LD, Item: strings.Join(parts, "$")}
}

// Node is one element of the discovered model tree. Leaves carry the
// type descriptor of the data attribute; intermediate nodes carry the
// structure descriptor covering their children.
type Node struct {
	Name     string
	FC       FC
	Type     *mms.TypeSpec
	Children []*Node
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Resolve walks the tree along path and returns the node, or
// ErrPathNotFound naming the first missing element.
func (n *Node) Resolve(path ...string) (*Node, error) {
	node := n
	for i, name := range path {
		next := node.Child(name)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(path[:i+1], "."))
		}
		node = next
	}
	return node, nil
}

// Walk visits every node depth-first, parents before children.
func (n *Node) Walk(visit func(path []string, node *Node)) {
	n.walk(nil, visit)
}

func (n *Node) walk(path []string, visit func([]string, *Node)) {
	path = append(path, n.Name)
	visit(path, n)
	for _, c := range n.Children {
		c.walk(path, visit)
	}
}
