// Command cachequery builds cache query descriptors and runs them against a
// local entry store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cachequery/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		// Commands report their own errors; flag and argument errors from
		// cobra itself still need printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
