package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/toyfence/interp"
	"github.com/katalvlaran/toyfence/parser"
	"github.com/katalvlaran/toyfence/scopecheck"
)

func parseMemoryModel(s string) (interp.MemoryModel, error) {
	switch s {
	case "sc":
		return interp.Sc, nil
	case "tso":
		return interp.Tso, nil
	default:
		return 0, fmt.Errorf("unknown --memory-model %q (want sc or tso)", s)
	}
}

func newRunCmd() *cobra.Command {
	var memoryModel string

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Interpret a program to completion and report its final assertion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			model, err := parseMemoryModel(memoryModel)
			if err != nil {
				return withExitCode(exitInvalidSource, err)
			}

			source, err := os.ReadFile(args[0])
			if err != nil {
				return withExitCode(exitInvalidSource, fmt.Errorf("run: %w", err))
			}

			program, err := parser.Parse(string(source))
			if err != nil {
				return withExitCode(exitInvalidSource, fmt.Errorf("run: %w", err))
			}
			log.Debug().Int("threads", len(program.Threads)).Msg("parsed")

			if err := scopecheck.Check(program); err != nil {
				return withExitCode(exitInvalidSource, fmt.Errorf("run: %w", err))
			}
			log.Debug().Msg("scope-checked")

			ok, err := interp.Run(program, model)
			if err != nil {
				return withExitCode(exitInvalidSource, fmt.Errorf("run: %w", err))
			}
			log.Debug().Str("model", model.String()).Bool("assertion", ok).Msg("interpreted")

			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "assertion failed")

				return withExitCode(exitAssertFailed, fmt.Errorf("run: assertion failed under %s", model))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "assertion holds")

			return nil
		},
	}

	cmd.Flags().StringVar(&memoryModel, "memory-model", "sc", "memory model to interpret under: sc or tso")

	return cmd
}
