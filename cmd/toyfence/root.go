package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var verbose bool

// newLogger returns a zerolog.Logger writing to stderr, at debug level when
// -v/--verbose is set and disabled (zerolog.Nop) otherwise, so library
// packages stay silent while the CLI can report each phase with its counts
// (threads, nodes and edges, cycles) on request.
func newLogger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toyfence",
		Short:         "Parse, interpret, and find critical memory-fence cycles in toy concurrent programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "emit phase diagnostics to stderr")

	root.AddCommand(newRunCmd())
	root.AddCommand(newFindCyclesCmd())

	return root
}
