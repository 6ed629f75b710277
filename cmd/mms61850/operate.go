package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grid61850/mms/client"
)

type operateFlags struct {
	valueType      string
	test           bool
	interlockCheck bool
	synchroCheck   bool
	cancel         bool
}

func newOperateCmd() *cobra.Command {
	flags := &connectFlags{}
	op := &operateFlags{}
	cmd := &cobra.Command{
		Use:   "operate <reference> <value>",
		Short: "Run a control sequence on a data object",
		Long: `Operates a controllable data object. The control model is read
from the object's ctlModel attribute and the required selection
(select-before-operate) is performed automatically.`,
		Example: `  mms61850 operate -a 192.168.1.10:102 --type bool simpleIOGenericIO/GGIO1.SPCSO1 true
  mms61850 operate -a 192.168.1.10:102 --type bool --synchro-check LD/CSWI1.Pos false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(op.valueType, args[1])
			if err != nil {
				return err
			}
			opts := &client.ControlOptions{
				Test:           op.test,
				InterlockCheck: op.interlockCheck,
				SynchroCheck:   op.synchroCheck,
			}
			return flags.withClient(func(ctx context.Context, c *client.Client) error {
				if op.cancel {
					return c.ControlCancel(ctx, args[0], value, opts)
				}
				if err := c.ControlOperate(ctx, args[0], value, opts); err != nil {
					return err
				}
				fmt.Println("operated")
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&op.valueType, "type", "bool", "Control value type: bool, int, uint, float32, float64, string")
	cmd.Flags().BoolVar(&op.test, "test", false, "Mark the operation as a test")
	cmd.Flags().BoolVar(&op.interlockCheck, "interlock-check", false, "Ask the server to run the interlock check")
	cmd.Flags().BoolVar(&op.synchroCheck, "synchro-check", false, "Ask the server to run the synchrocheck")
	cmd.Flags().BoolVar(&op.cancel, "cancel", false, "Cancel a running or selected control sequence")
	return cmd
}
