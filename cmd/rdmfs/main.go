package main

import (
	"fmt"
	"os"

	"github.com/rcosdp/rdmfs/cmd/rdmfs/commands"
)

// exitCoder is implemented by errors that carry a specific exit
// status (spec.md §6: exit 2 on a usage violation, non-zero on any
// other FUSE error).
type exitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		if ec, ok := err.(exitCoder); ok {
			code = ec.ExitCode()
		}
		os.Exit(code)
	}
}
