// Command devrag is the entry point for the devrag code assistant.
// It ingests source repositories into a vector index and answers natural
// language questions about them through a CLI (via Cobra).
package main

import (
	"fmt"
	"os"

	"github.com/devrag/devrag-go/cmd/devrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
