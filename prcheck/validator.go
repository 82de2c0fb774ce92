// Package prcheck enforces the structural contract of incoming guardian
// change requests on the receiving side: branch naming, file scope, and
// artifact content. It runs before any human or automated merge decision.
package prcheck

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/c360studio/guardian/propose"
)

var (
	// branchRe is the required shape of a guardian branch: the prefix plus a
	// 36-character UUID.
	branchRe = regexp.MustCompile(`^guardian/[0-9a-fA-F-]{36}$`)
	// patchRe matches a proposal artifact path and captures its case ID.
	patchRe = regexp.MustCompile(`^guardian/patches/([0-9a-fA-F-]{36})\.md$`)
)

// requiredSections are the artifact markers every patch file must contain,
// byte-for-byte. They mirror the strings propose renders.
var requiredSections = []string{
	propose.SectionHeader,
	propose.SectionRootCause,
	propose.SectionPatchSteps,
	propose.SectionVerification,
}

// Repo is what the validator needs from the repository: the changed-file
// list of the incoming request and the head worktree's file contents.
// gitops.ExecBackend satisfies it.
type Repo interface {
	ChangedFiles(ctx context.Context, base, head string) ([]string, error)
	ReadWorktreeFile(relPath string) ([]byte, error)
}

// Input identifies the incoming change request.
type Input struct {
	BaseRev    string
	HeadRev    string
	HeadBranch string
}

// Result is the outcome of validating one change request.
type Result struct {
	// Enforced is false when the head branch is not guardian-authored; the
	// gate then makes no judgement at all.
	Enforced bool
	// PatchFiles are the recognized proposal artifacts, with their case IDs.
	PatchFiles []PatchFile
	// Violations is the complete list of structural violations found.
	Violations []string
}

// PatchFile is one recognized proposal artifact in the change request.
type PatchFile struct {
	Path   string
	CaseID string
}

// OK reports whether the request passed (or was not subject to) enforcement.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Validator validates incoming change requests against the guardian contract.
type Validator struct {
	repo Repo
}

// NewValidator creates a validator over a repository view.
func NewValidator(repo Repo) *Validator {
	return &Validator{repo: repo}
}

// Validate runs the full structural check. The returned error covers only
// failures to inspect the repository; contract violations land in the result.
func (v *Validator) Validate(ctx context.Context, in Input) (*Result, error) {
	if in.BaseRev == "" || in.HeadRev == "" || in.HeadBranch == "" {
		return nil, fmt.Errorf("base revision, head revision and head branch are all required")
	}

	// Only guardian-authored branches are governed by this gate.
	if !strings.HasPrefix(in.HeadBranch, propose.BranchPrefix) {
		return &Result{Enforced: false}, nil
	}

	result := &Result{Enforced: true}

	if !branchRe.MatchString(in.HeadBranch) {
		result.Violations = append(result.Violations, fmt.Sprintf(
			"branch must match %q, got: %s", propose.BranchPrefix+"<case_uuid>", in.HeadBranch))
		return result, nil
	}

	files, err := v.repo.ChangedFiles(ctx, in.BaseRev, in.HeadRev)
	if err != nil {
		return nil, fmt.Errorf("list changed files: %w", err)
	}

	// Scope: every changed file must live under the patches directory.
	// All offenders are named before rejecting.
	var outOfScope []string
	for _, file := range files {
		if !strings.HasPrefix(file, propose.PatchesDir+"/") {
			outOfScope = append(outOfScope, file)
		}
	}
	if len(outOfScope) > 0 {
		result.Violations = append(result.Violations, fmt.Sprintf(
			"only files under %s/ may change; offenders: %s",
			propose.PatchesDir, strings.Join(outOfScope, ", ")))
	}

	for _, file := range files {
		if m := patchRe.FindStringSubmatch(file); m != nil {
			result.PatchFiles = append(result.PatchFiles, PatchFile{Path: file, CaseID: m[1]})
		}
	}
	if len(result.PatchFiles) == 0 {
		result.Violations = append(result.Violations, fmt.Sprintf(
			"change request must include at least one patch file under %s/<case_id>%s",
			propose.PatchesDir, propose.PatchExt))
		return result, nil
	}

	// Content: accumulate every violation across every patch file so the
	// report is complete in one pass.
	for _, pf := range result.PatchFiles {
		violations, err := v.validatePatchContent(pf)
		if err != nil {
			return nil, err
		}
		result.Violations = append(result.Violations, violations...)
	}

	return result, nil
}

func (v *Validator) validatePatchContent(pf PatchFile) ([]string, error) {
	data, err := v.repo.ReadWorktreeFile(pf.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pf.Path, err)
	}
	if len(data) == 0 {
		return []string{pf.Path + ": file missing or empty"}, nil
	}

	content := string(data)
	var violations []string

	for _, section := range requiredSections {
		if !strings.Contains(content, section) {
			violations = append(violations, fmt.Sprintf(
				"%s: missing section marker: %s", pf.Path, section))
		}
	}

	if !strings.Contains(strings.ToLower(content), strings.ToLower(pf.CaseID)) {
		violations = append(violations, fmt.Sprintf(
			"%s: does not mention case id %s", pf.Path, pf.CaseID))
	}

	if !strings.Contains(content, propose.UncheckedItem) {
		violations = append(violations, fmt.Sprintf(
			"%s: verification checklist has no checkboxes (%q)", pf.Path, propose.UncheckedItem+" ..."))
	}

	return violations, nil
}
