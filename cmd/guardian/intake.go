package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/guardian/gitops"
	"github.com/c360studio/guardian/intake"
)

func intakeCmd(setup func() (*app, error)) *cobra.Command {
	var (
		before      string
		after       string
		watch       bool
		outputsPath string
	)

	cmd := &cobra.Command{
		Use:   "intake [signal-file...]",
		Short: "Validate signals and synthesize care-cases",
		Long: `Intake runs signal documents through schema validation, synthesizes a
care-case per signal, and persists the cases to the configured store.

Signals are discovered three ways:
- explicit file arguments (repo-relative)
- files changed between --before and --after, filtered by the signal globs
- --watch: process signal files as they appear in the signals directory

Any schema violation fails the run before anything is written; the error
lists every violation found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			backend := gitops.NewExecBackend(a.cfg.Repo.Path)
			runner := intake.NewRunner(a.cfg.Repo.Path, a.validator, a.cases,
				backend, a.cfg.Signals.Globs, a.logger)

			if watch {
				if len(args) > 0 || before != "" || after != "" {
					return fmt.Errorf("--watch cannot be combined with file arguments or revisions")
				}
				err := runner.Watch(ctx, a.cfg.Signals.Dir)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			signalFiles := args
			if len(signalFiles) == 0 {
				signalFiles, err = runner.DiscoverChanged(ctx, before, after)
				if err != nil {
					return err
				}
			}

			result, err := runner.Run(ctx, signalFiles)
			if err != nil {
				return err
			}

			if outputsPath == "" {
				outputsPath = os.Getenv("GITHUB_OUTPUT")
			}
			if err := intake.WriteOutputs(outputsPath, result); err != nil {
				return err
			}

			if result.HasCases() {
				fmt.Printf("Generated %d care-case(s)\n", len(result.CaseFiles))
				for _, file := range result.CaseFiles {
					fmt.Printf("  %s\n", file)
				}
			} else {
				fmt.Println("No signal changes detected")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "Base revision for changed-file discovery")
	cmd.Flags().StringVar(&after, "after", "", "Head revision for changed-file discovery")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch the signals directory and process files as they appear")
	cmd.Flags().StringVar(&outputsPath, "outputs", "", "Outputs file to append results to (default $GITHUB_OUTPUT)")

	return cmd
}
