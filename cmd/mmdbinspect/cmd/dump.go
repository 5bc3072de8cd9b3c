package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmdbkit/mmdbreader"
)

var dumpLimit int

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print every network in a database, one JSON object per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, err := mmdbreader.Open(args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		n := 0
		for result := range db.Networks() {
			if err := result.Err(); err != nil {
				return err
			}

			var record any
			if err := result.Decode(&record); err != nil {
				return err
			}

			line := struct {
				Network string `json:"network"`
				Record  any    `json:"record"`
			}{
				Network: result.Network().String(),
				Record:  record,
			}
			out, err := json.Marshal(line)
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			n++
			if dumpLimit > 0 && n >= dumpLimit {
				break
			}
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().IntVar(&dumpLimit, "limit", 0, "stop after printing this many networks (0 = unlimited)")
}
