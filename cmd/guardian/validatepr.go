package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/guardian/gitops"
	"github.com/c360studio/guardian/prcheck"
)

func validatePRCmd(setup func() (*app, error)) *cobra.Command {
	var (
		baseRev    string
		headRev    string
		headBranch string
	)

	cmd := &cobra.Command{
		Use:   "validate-pr",
		Short: "Structurally validate an incoming guardian change request",
		Long: `Validate-pr checks an incoming change request against the guardian
contract: branch naming, change scope, and proposal artifact structure.

Branches outside the guardian/ namespace are not enforced and always pass.
For guardian branches every violation found is reported; the command exits
non-zero if any violation exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			backend := gitops.NewExecBackend(a.cfg.Repo.Path)
			validator := prcheck.NewValidator(backend)

			result, err := validator.Validate(ctx, prcheck.Input{
				BaseRev:    baseRev,
				HeadRev:    headRev,
				HeadBranch: headBranch,
			})
			if err != nil {
				return err
			}

			if !result.Enforced {
				fmt.Printf("Branch %q is not guardian-authored; no checks enforced\n", headBranch)
				return nil
			}

			if !result.OK() {
				fmt.Printf("Guardian validation failed for %q:\n", headBranch)
				for _, v := range result.Violations {
					fmt.Printf("  - %s\n", v)
				}
				return fmt.Errorf("%d violation(s)", len(result.Violations))
			}

			fmt.Printf("Guardian validation passed: %d patch file(s) in scope\n", len(result.PatchFiles))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRev, "base", "", "Base revision of the change request")
	cmd.Flags().StringVar(&headRev, "head", "", "Head revision of the change request")
	cmd.Flags().StringVar(&headBranch, "branch", "", "Head branch name of the change request")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("head")
	_ = cmd.MarkFlagRequired("branch")

	return cmd
}
