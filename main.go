// The main package for the tracecollect executable.
package main

import (
	"github.com/ChromeCAB/lighthouse/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
