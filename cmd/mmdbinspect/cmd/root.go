// Package cmd implements the mmdbinspect CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mmdbinspect",
	Short: "Inspect MaxMind DB files",
	Long:  "mmdbinspect reads and validates MaxMind DB (.mmdb) files from the command line.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(dumpCmd)
}
