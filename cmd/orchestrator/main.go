// Command orchestrator runs the turn orchestration service.
package main

import (
	"fmt"
	"os"

	"github.com/opsmesh/opsmesh/internal/orchestrator/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
