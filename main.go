package main

import (
	"os"

	"github.com/nsxbet/db-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
