package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wicpbridge",
		Short:        "ICP <-> Sui wICP bridge engine",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newDigestCmd(), newPrincipalCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
