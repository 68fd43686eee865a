// Command polybench is the CLI entrypoint: parse, lower, validate, and
// run a .bench suite file, or serve the editor-facing language server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jpequegn/polybench/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitCodeError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
