// Package main is the pathwise server binary: it serves the progression
// engine over HTTP and manages the database schema.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
