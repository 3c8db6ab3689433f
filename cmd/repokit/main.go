package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	app "github.com/valter-silva-au/repokit/internal"
	"github.com/valter-silva-au/repokit/internal/cli"
	"github.com/valter-silva-au/repokit/internal/core"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	repoRoot := app.ResolveRepoRoot()

	a, err := app.NewApp(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing repokit: %v\n", err)
		os.Exit(1)
	}

	err = cli.Execute()
	// os.Exit skips deferred calls, so flush the event log here.
	_ = a.Close()
	if err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err to w and returns the process exit code:
// 2 for expected user errors, 1 for anything else.
func reportError(w io.Writer, err error) int {
	var userErr *core.UserError
	if errors.As(err, &userErr) {
		fmt.Fprintf(w, "Error: %s\n", userErr.Msg)
		if userErr.Hint != "" {
			fmt.Fprintf(w, "Hint: %s\n", userErr.Hint)
		}
		return 2
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
