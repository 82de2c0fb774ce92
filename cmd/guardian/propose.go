package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/guardian/gitops"
	"github.com/c360studio/guardian/propose"
)

func proposeCmd(setup func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Open patch proposal branches for eligible care-cases",
		Long: `Propose walks the persisted care-cases and, for each case that policy
allows (green gate, propose_patch action, reversible transition), creates a
guardian branch with a proposal artifact and opens a change request.

The run is idempotent: cases whose branch or change request already exists
are skipped. One case failing does not stop the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if !gitops.IsGHAvailable() {
				return fmt.Errorf("gh CLI not found in PATH; proposal requires it")
			}

			backend := gitops.NewExecBackend(a.cfg.Repo.Path)
			controller := propose.NewController(backend, a.cases, propose.Config{
				BotName:    a.cfg.Proposal.BotName,
				BotEmail:   a.cfg.Proposal.BotEmail,
				Labels:     a.cfg.Proposal.Labels,
				BaseBranch: a.cfg.Repo.BaseBranch,
			}, a.logger)

			report, err := controller.Run(ctx)
			if err != nil {
				return err
			}

			for _, res := range report.Results {
				switch res.Outcome {
				case propose.OutcomeCreated:
					fmt.Printf("created %s -> %s\n", res.Branch, res.PRURL)
				case propose.OutcomeCreatedAnnotationFailed:
					fmt.Printf("created %s -> %s (annotation failed: %v)\n", res.Branch, res.PRURL, res.Err)
				case propose.OutcomeFailed:
					fmt.Printf("failed %s: %v\n", res.CaseID, res.Err)
				default:
					fmt.Printf("skipped %s (%s)\n", res.CaseID, res.Outcome)
				}
			}

			if failures := report.Failures(); len(failures) > 0 {
				return fmt.Errorf("%d case(s) failed", len(failures))
			}
			if !report.AnyCreated() {
				fmt.Println("Nothing to propose")
			}
			return nil
		},
	}

	return cmd
}
