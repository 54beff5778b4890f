// scoreweb ranks text documents by how often they contain a fixed set of keywords.
// Single binary: exact substring counting, log-damped scores, run history.
package main

import (
	"os"

	"github.com/corey/scoreweb/cmd/scoreweb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
