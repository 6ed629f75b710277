package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grid61850/mms/client"
	"github.com/grid61850/mms/model"
)

func newDiscoverCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "discover [logical-device]",
		Short: "Discover the data model of a server or one logical device",
		Long: `Without arguments, lists the server's logical devices. With a
logical device name, fetches its full data model tree and prints every
node with its functional constraint and type.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				if len(args) == 0 {
					devices, err := c.LogicalDeviceNames(ctx)
					if err != nil {
						return err
					}
					for _, d := range devices {
						fmt.Println(d)
					}
					return nil
				}

				device, err := c.Discover(ctx, args[0])
				if err != nil {
					return err
				}
				printTree(device, 0)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func printTree(node *model.Node, depth int) {
	line := strings.Repeat("  ", depth) + node.Name
	if node.FC != "" {
		line += " [" + string(node.FC) + "]"
	}
	if node.Type != nil && len(node.Children) == 0 {
		line += " " + node.Type.String()
	}
	fmt.Println(line)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

func newBrowseCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "browse <reference>",
		Short: "List the children of a data model node",
		Example: `  mms61850 browse -a 192.168.1.10:102 simpleIOGenericIO
  mms61850 browse -a 192.168.1.10:102 simpleIOGenericIO/GGIO1.AnIn1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				children, err := c.Browse(ctx, args[0])
				if err != nil {
					return err
				}
				for _, child := range children {
					printTree(child, 0)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
