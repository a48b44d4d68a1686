package main

import (
	"fmt"
	"os"

	"github.com/altintasutku/library-management/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", cli.ErrorCode(err), err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
