package cmd

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/mmdbkit/mmdbreader"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <file> <ip>",
	Short: "Look up a single address and print its record as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		ip, err := netip.ParseAddr(args[1])
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", args[1], err)
		}

		db, err := mmdbreader.Open(args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		result := db.Lookup(ip)
		if err := result.Err(); err != nil {
			return err
		}
		if !result.Found() {
			fmt.Println("null")
			return nil
		}

		var record any
		if err := result.Decode(&record); err != nil {
			return err
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n%s\n", ip, result.Network(), out)
		return nil
	},
}
