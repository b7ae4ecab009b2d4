// Command trackerctl is the terminal client for the progress tracker API.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, "Error:", describe(err))
		}
		os.Exit(1)
	}
}
