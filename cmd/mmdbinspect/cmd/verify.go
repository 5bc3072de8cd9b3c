package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmdbkit/mmdbreader"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Run structural validation against a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, err := mmdbreader.Open(args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Verify(); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}
