package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mms61850",
		Short: "IEC 61850 MMS client",
		Long: `mms61850 talks to IEC 61850 servers over MMS: browse the data
model, read and write data attributes, work with data sets and run
control sequences.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newIdentifyCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newWriteCmd())
	rootCmd.AddCommand(newDatasetCmd())
	rootCmd.AddCommand(newOperateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
