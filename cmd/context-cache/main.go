// Command context-cache is the CLI entrypoint: source management, ingest,
// query, why, export, and the serve/mcp daemon modes.
package main

import (
	"github.com/context-cache/ctxc/internal/cli"
)

func main() {
	cli.Execute()
}
