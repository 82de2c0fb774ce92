package propose

import (
	"fmt"
	"path"
	"strings"

	"github.com/c360studio/guardian/carecase"
)

// Branch and artifact layout shared with the receiving-side validator. The
// literal section headers below are contract strings: prcheck matches them
// byte-for-byte.
const (
	// BranchPrefix is the namespace for guardian-authored branches.
	BranchPrefix = "guardian/"
	// PatchesDir is the only directory a guardian change request may touch.
	PatchesDir = "guardian/patches"
	// PatchExt is the proposal artifact extension.
	PatchExt = ".md"
)

// Required artifact section markers.
const (
	SectionHeader       = "# Guardian Patch Proposal"
	SectionRootCause    = "## Root cause hypothesis"
	SectionPatchSteps   = "## Suggested patch steps"
	SectionVerification = "## Verification checklist"
)

// UncheckedItem is the unchecked checklist marker the validator requires.
const UncheckedItem = "- [ ]"

// BranchForCase returns the deterministic branch name for a case ID.
func BranchForCase(caseID string) string {
	return BranchPrefix + caseID
}

// PatchPathForCase returns the repo-relative artifact path for a case ID.
func PatchPathForCase(caseID string) string {
	return path.Join(PatchesDir, caseID+PatchExt)
}

// genericPatchSteps is the fixed remediation checklist embedded in every
// proposal artifact. Ordered, generic, and deliberately free of any claim to
// be a computed fix.
var genericPatchSteps = []string{
	"Audit critical rendering path (hero images, fonts, blocking scripts).",
	"Defer or async non-critical scripts; ensure bundles are split appropriately.",
	"Optimize images (proper sizing, modern formats, preload hero assets).",
	"Reduce server response time (cache headers, CDN, origin optimization).",
}

func checklist(items []string) string {
	if len(items) == 0 {
		return UncheckedItem + " Add verification steps"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = UncheckedItem + " " + item
	}
	return strings.Join(lines, "\n")
}

func signalList(refs []carecase.SignalRef) string {
	if len(refs) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(refs))
	for i, ref := range refs {
		lines[i] = "- " + ref.SignalID
	}
	return strings.Join(lines, "\n")
}

// RenderArtifact renders the proposal artifact markdown for a care-case.
func RenderArtifact(c *carecase.CareCase) string {
	hypothesis := c.RootCauseHypothesis
	if hypothesis == "" {
		hypothesis = "TBD"
	}

	var verification []string
	if c.ProposedTransition != nil {
		verification = c.ProposedTransition.Verification
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n\n", SectionHeader, c.ID)
	fmt.Fprintf(&b, "%s\n%s\n\n", SectionRootCause, hypothesis)
	fmt.Fprintf(&b, "%s (generic web perf)\n", SectionPatchSteps)
	for i, step := range genericPatchSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\n## Signals\n%s\n\n", signalList(c.Signals))
	fmt.Fprintf(&b, "%s\n%s\n", SectionVerification, checklist(verification))
	return b.String()
}

// PullRequestTitle returns the change-request title for a case.
func PullRequestTitle(c *carecase.CareCase) string {
	return "Guardian proposed patch: " + c.ID
}

// RenderBody renders the change-request body for a care-case.
func RenderBody(c *carecase.CareCase) string {
	transition := c.ProposedTransition
	intent, scope, reversibility := "TBD", "TBD", "TBD"
	var verification []string
	if transition != nil {
		intent = transition.Intent
		scope = transition.Scope
		reversibility = transition.Reversibility
		verification = transition.Verification
	}

	var b strings.Builder
	b.WriteString("## Guardian Proposed Patch (green)\n\n")
	fmt.Fprintf(&b, "**Care-Case:** `%s`\n", c.ID)
	fmt.Fprintf(&b, "**Gate:** `%s`\n", c.PolicyGate)
	fmt.Fprintf(&b, "**Action:** `%s`\n", c.RecommendedAction)
	fmt.Fprintf(&b, "**Tension:** `%v`\n\n", c.Tension)
	fmt.Fprintf(&b, "### Signals\n%s\n\n", signalList(c.Signals))
	b.WriteString("### Proposed transition\n")
	fmt.Fprintf(&b, "- intent: %s\n", intent)
	fmt.Fprintf(&b, "- scope: %s\n", scope)
	fmt.Fprintf(&b, "- reversibility: %s\n\n", reversibility)
	fmt.Fprintf(&b, "### Verification checklist\n%s\n", checklist(verification))
	return b.String()
}

// ReviewerComment is the checklist posted on every created change request.
func ReviewerComment() string {
	return strings.Join([]string{
		"Guardian PR checklist for reviewer:",
		"- Confirm patch file path: " + PatchesDir + "/<case_uuid>" + PatchExt,
		"- Confirm sections exist (Root cause / Steps / Verification)",
		"- Confirm verification has checkboxes (" + UncheckedItem + " ...)",
		"- Confirm proposal stays reversible & scope-limited",
	}, "\n")
}
