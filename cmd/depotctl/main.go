// Package main provides depotctl, an operator CLI for the upload store.
//
// Usage:
//
//	depotctl [flags] <command> [args]
//
// Commands:
//
//	init     - create the upload root
//	ls       - list stored files
//	put      - store local files through the upload checks
//	purge    - delete every stored file
//	events   - show recent audit events
package main

import (
	"fmt"
	"os"

	"upload-service/cmd/depotctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
