// Package issue renders a care-case as human-facing issue text. The output is
// Markdown meant for issue trackers: a short structured summary first, raw
// record last, so a reviewer can act without opening the case file.
package issue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/guardian/carecase"
)

// Title renders the one-line issue title for a care-case.
func Title(c *carecase.CareCase) string {
	gate := string(c.PolicyGate)
	if gate == "" {
		gate = "unknown"
	}
	summary := c.Summary
	if summary == "" {
		summary = "Unnamed care-case"
	}
	return fmt.Sprintf("Care-Case (%s): %s", gate, summary)
}

// Body renders the issue body for a care-case. The hypothesis is explicitly
// labeled as not a fact; the full record is appended as a JSON block.
func Body(c *carecase.CareCase) (string, error) {
	pretty, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal care-case: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**System:** `%s`  \n**Env:** `%s`  \n**Version:** `%s`\n",
		orUnknown(c.System.Name), orUnknown(c.System.Env), orUnknown(c.System.Version))
	b.WriteString("\n")
	fmt.Fprintf(&b, "**Policy gate:** `%s`\n", c.PolicyGate)
	fmt.Fprintf(&b, "**Recommended action:** `%s`\n", c.RecommendedAction)
	fmt.Fprintf(&b, "**Tension:** `%v`\n", c.Tension)
	b.WriteString("\n")

	if len(c.Signals) > 0 {
		b.WriteString("**Signals:**\n")
		for _, ref := range c.Signals {
			fmt.Fprintf(&b, "- `%s`\n", ref.SignalID)
		}
		b.WriteString("\n")
	}

	if len(c.Constraints) > 0 {
		b.WriteString("**Constraints:**\n")
		for _, constraint := range c.Constraints {
			fmt.Fprintf(&b, "- `%s`\n", constraint)
		}
		b.WriteString("\n")
	}

	if c.RootCauseHypothesis != "" {
		b.WriteString("**Root-cause hypothesis (not a fact):**\n")
		b.WriteString(c.RootCauseHypothesis)
		b.WriteString("\n\n")
	}

	if pt := c.ProposedTransition; pt != nil {
		b.WriteString("**Proposed transition (intent):**\n")
		fmt.Fprintf(&b, "- intent: %s\n", pt.Intent)
		fmt.Fprintf(&b, "- scope: %s\n", pt.Scope)
		fmt.Fprintf(&b, "- reversibility: %s\n", pt.Reversibility)
		if len(pt.Verification) > 0 {
			b.WriteString("- verification:\n")
			for _, item := range pt.Verification {
				fmt.Fprintf(&b, "  - %s\n", item)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("```json\n")
	b.Write(pretty)
	b.WriteString("\n```")
	return b.String(), nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
