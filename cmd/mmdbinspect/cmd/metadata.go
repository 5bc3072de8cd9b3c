package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmdbkit/mmdbreader"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <file>",
	Short: "Print a database's metadata section as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, err := mmdbreader.Open(args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		out, err := json.MarshalIndent(db.Metadata, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
