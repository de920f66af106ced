package main

import (
	"fmt"
	"io"
	"os"

	"github.com/broadinstitute/submodule-bump/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
	exitCodeSuccessConstant   = 0
	exitCodeFailureConstant   = 1
)

// main executes the submodule-bump command-line application.
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(arguments []string, standardOutput io.Writer, standardError io.Writer) int {
	if executionError := cli.NewApplication().ExecuteWithArguments(arguments, standardOutput); executionError != nil {
		fmt.Fprintf(standardError, exitErrorTemplateConstant, executionError)
		return exitCodeFailureConstant
	}
	return exitCodeSuccessConstant
}
