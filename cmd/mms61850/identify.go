package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grid61850/mms/client"
)

func newIdentifyCmd() *cobra.Command {
	flags := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Print the server's vendor, model and revision",
		Example: `  mms61850 identify -a 192.168.1.10:102
  mms61850 identify --profile substation-a`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				identity, err := c.Identify(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("vendor:   %s\n", identity.Vendor)
				fmt.Printf("model:    %s\n", identity.Model)
				fmt.Printf("revision: %s\n", identity.Revision)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	flags := &connectFlags{}
	var extended bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the server's logical and physical status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				status, err := c.Status(ctx, extended)
				if err != nil {
					return err
				}
				fmt.Printf("logical:  %s\n", status.Logical)
				fmt.Printf("physical: %s\n", status.Physical)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&extended, "extended", false, "Ask for extended status derivation")
	return cmd
}
