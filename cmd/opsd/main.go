// Command opsd runs the operations service.
package main

import (
	"fmt"
	"os"

	"github.com/opsmesh/opsmesh/internal/ops/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
