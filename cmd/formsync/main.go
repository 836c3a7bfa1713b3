package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fieldwork/formsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own error output; an ExitError just carries
		// the process exit code. Anything else (flag parse errors, etc.)
		// still needs a line on stderr.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
