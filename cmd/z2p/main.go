// cmd/z2p/main.go
//
// z2p newsletter service entry point.  All behavior lives in the cobra
// commands under ./cmd: serve, migrate, and config.
package main

import (
	"os"

	"github.com/Tombleron/z2p/cmd/z2p/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
