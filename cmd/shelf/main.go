// Command shelf runs the book ingestion service and its CLI.
package main

import (
	"os"

	"github.com/custodia-labs/shelf/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version, bootstrap); err != nil {
		os.Exit(1)
	}
}
