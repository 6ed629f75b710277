package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grid61850/mms/client"
	"github.com/grid61850/mms/osi/mms"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Work with data sets (MMS named variable lists)",
	}
	cmd.AddCommand(newDatasetDirectoryCmd())
	cmd.AddCommand(newDatasetValuesCmd())
	cmd.AddCommand(newDatasetDefineCmd())
	cmd.AddCommand(newDatasetDeleteCmd())
	return cmd
}

func newDatasetDirectoryCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "directory <reference>",
		Short: "List the members of a data set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				members, err := c.GetDataSetDirectory(ctx, args[0])
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Println(m)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDatasetValuesCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "values <reference>",
		Short: "Read every member of a data set in one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				results, err := c.GetDataSetValues(ctx, args[0])
				if err != nil {
					return err
				}
				for i, r := range results {
					if r.Err != nil {
						fmt.Printf("[%d] error: %v\n", i, r.Err)
						continue
					}
					fmt.Printf("[%d] %s\n", i, r.Value)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// parseMember converts "LD/LN$FC$DO$DA" into an MMS object name.
func parseMember(s string) (mms.ObjectName, error) {
	domain, item, found := strings.Cut(s, "/")
	if !found || domain == "" || item == "" {
		return mms.ObjectName{}, fmt.Errorf("member %q: want LD/LN$FC$DO$DA", s)
	}
	return mms.ObjectName{Domain: domain, Item: item}, nil
}

func newDatasetDefineCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "define <reference> <member>...",
		Short: "Create a data set with the given members",
		Example: `  mms61850 dataset define -a 192.168.1.10:102 LD/LLN0.Events \
      LD/GGIO1$ST$SPCSO1$stVal LD/GGIO1$ST$SPCSO1$q`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			members := make([]mms.ObjectName, 0, len(args)-1)
			for _, arg := range args[1:] {
				member, err := parseMember(arg)
				if err != nil {
					return err
				}
				members = append(members, member)
			}
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				return c.DefineDataSet(ctx, args[0], members)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDatasetDeleteCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "delete <reference>",
		Short: "Delete a data set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				return c.DeleteDataSet(ctx, args[0])
			})
		},
	}
	flags.register(cmd)
	return cmd
}
