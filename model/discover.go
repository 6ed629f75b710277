package model

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/grid61850/mms/osi/mms"
)

// attributeFetchLimit bounds the parallel getVariableAccessAttributes
// requests during discovery so a small server is not flooded.
const attributeFetchLimit = 2

// Services is the slice of client operations discovery needs.
type Services interface {
	LogicalDeviceNames(ctx context.Context) ([]string, error)
	VariableNames(ctx context.Context, domain string) ([]string, error)
	VariableType(ctx context.Context, name mms.ObjectName) (mms.TypeSpec, error)
}

// Discover builds the model tree of one logical device. It lists the
// domain variables, keeps the LN$FC roots, fetches their type
// descriptors in parallel and expands the structures into nodes.
func Discover(ctx context.Context, svc Services, ld string) (*Node, error) {
	names, err := svc.VariableNames(ctx, ld)
	if err != nil {
		return nil, err
	}

	type fcRoot struct {
		ln, fc string
		spec   mms.TypeSpec
	}
	roots := make([]*fcRoot, 0, len(names))
	for _, name := range names {
		parts := strings.Split(name, "$")
		if len(parts) != 2 {
			continue
		}
		roots = append(roots, &fcRoot{ln: parts[0], fc: parts[1]})
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(attributeFetchLimit)
	for _, root := range roots {
		root := root
		eg.Go(func() error {
			spec, err := svc.VariableType(egCtx, mms.ObjectName{
				Domain: ld,
				Item:   root.ln + "$" + root.fc,
			})
			if err != nil {
				return err
			}
			root.spec = spec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	device := &Node{Name: ld}
	for _, root := range roots {
		ln := device.Child(root.ln)
		if ln == nil {
			ln = &Node{Name: root.ln}
			device.Children = append(device.Children, ln)
		}
		// One LN$FC root covers a set of data objects; the same data
		// object can appear under several roots (Pos under ST, CO and
		// CF), so subtrees merge by name instead of piling up siblings.
		for _, comp := range root.spec.Components {
			mergeChild(ln, expand(comp.Name, FC(root.fc), comp.Type))
		}
	}
	sortNodes(device)
	return device, nil
}

// DiscoverSubtree fetches the type of a single reference under one
// functional constraint without walking the whole device.
func DiscoverSubtree(ctx context.Context, svc Services, ref Ref, fc FC) (*Node, error) {
	spec, err := svc.VariableType(ctx, ref.Name(fc))
	if err != nil {
		return nil, err
	}
	return expand(ref.Path[len(ref.Path)-1], fc, spec), nil
}

// DiscoverDevices lists the logical device names of the server.
func DiscoverDevices(ctx context.Context, svc Services) ([]string, error) {
	return svc.LogicalDeviceNames(ctx)
}

// mergeChild grafts src under parent. On a name collision the subtrees
// merge recursively; a node spanning more than one functional
// constraint carries no FC or type of its own, its leaves keep theirs.
func mergeChild(parent, src *Node) {
	dst := parent.Child(src.Name)
	if dst == nil {
		parent.Children = append(parent.Children, src)
		return
	}
	if dst.FC != src.FC {
		dst.FC = ""
		dst.Type = nil
	}
	for _, c := range src.Children {
		mergeChild(dst, c)
	}
}

func expand(name string, fc FC, spec mms.TypeSpec) *Node {
	node := &Node{Name: name, FC: fc, Type: &spec}
	for _, comp := range spec.Components {
		node.Children = append(node.Children, expand(comp.Name, fc, comp.Type))
	}
	return node
}

func sortNodes(device *Node) {
	sort.SliceStable(device.Children, func(i, j int) bool {
		return device.Children[i].Name < device.Children[j].Name
	})
}
