package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/pairgate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pairgate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pairgate version %s\n", strings.TrimSpace(pairgate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
