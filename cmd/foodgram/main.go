// Package main is the entry point for the foodgram binary.
//
// MAIN PACKAGE IN GO:
// main stays minimal. It builds the cobra command tree and hands control to
// it; every subcommand loads config, builds a logger and calls into internal/.
//
// COMMANDS:
//
//	foodgram serve                          run the HTTP API
//	foodgram load-ingredients data.json     bulk-import the ingredient catalog
//	foodgram create-tag --name --color --slug
//
// Every command accepts --config <file.yaml>. Environment variables override
// the file (see internal/config).
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
