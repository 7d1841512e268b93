// Package main is the entry point for the recall CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/runger/recall/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "recall:", err)
		os.Exit(1)
	}
}
