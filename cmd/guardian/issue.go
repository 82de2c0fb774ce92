package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/c360studio/guardian/carecase"
	"github.com/c360studio/guardian/issue"
)

func issueCmd(setup func() (*app, error)) *cobra.Command {
	var (
		printTitle bool
		printBody  bool
	)

	cmd := &cobra.Command{
		Use:   "issue <case-file>",
		Short: "Render issue text for a care-case",
		Long: `Issue renders a persisted care-case as tracker-ready Markdown.
Exactly one of --title or --body selects which part to print.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printTitle == printBody {
				return fmt.Errorf("provide exactly one of --title or --body")
			}

			a, err := setup()
			if err != nil {
				return err
			}

			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(a.cfg.Repo.Path, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read care-case: %w", err)
			}

			var c carecase.CareCase
			if err := json.Unmarshal(data, &c); err != nil {
				return fmt.Errorf("parse care-case: %w", err)
			}

			if printTitle {
				fmt.Println(issue.Title(&c))
				return nil
			}
			body, err := issue.Body(&c)
			if err != nil {
				return err
			}
			fmt.Println(body)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printTitle, "title", false, "Print the issue title")
	cmd.Flags().BoolVar(&printBody, "body", false, "Print the issue body")

	return cmd
}
