package main // Entry point package

import (
	"fmt" // error output before a logger exists
	"os"  // exit status
)

func main() {
	if err := newRootCmd().Execute(); err != nil { // Run the selected command
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1) // Exit non-zero so supervisors notice
	}
}
