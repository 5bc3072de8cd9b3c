// Command mmdbinspect is a small CLI around the mmdbreader library: it
// prints database metadata, looks up individual addresses, dumps every
// network in a database, and runs structural verification.
package main

import (
	"fmt"
	"os"

	"github.com/mmdbkit/mmdbreader/cmd/mmdbinspect/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mmdbinspect:", err)
		os.Exit(1)
	}
}
