// Package propose turns eligible care-cases into change requests, at most one
// per case. All coordination against the mutable branch/PR namespace happens
// through existence checks before any mutation, so an interrupted or repeated
// run never produces a duplicate and never overwrites prior state.
package propose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/guardian/carecase"
	"github.com/c360studio/guardian/gitops"
	"github.com/c360studio/guardian/store"
)

// Backend is the capability surface the controller needs from the
// version-control/review system. gitops.ExecBackend implements it; tests
// inject a fake.
type Backend interface {
	DefaultBranch(ctx context.Context) string
	RepoSlug(ctx context.Context) (string, error)
	ActorLogin(ctx context.Context) (string, error)
	ConfigureIdentity(ctx context.Context, name, email string) error
	RemoteBranchExists(ctx context.Context, branch string) (bool, error)
	PullRequestExistsForHead(ctx context.Context, branch string) (bool, error)
	CheckoutFromBase(ctx context.Context, branch, base string) error
	WriteWorktreeFile(relPath string, data []byte) error
	StageFile(ctx context.Context, path string) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, branch string) error
	CreatePullRequest(ctx context.Context, spec gitops.PullRequestSpec) (string, error)
	AddLabels(ctx context.Context, prURL string, labels []string) error
	Comment(ctx context.Context, prURL, body string) error
}

// CaseLister enumerates persisted care-cases in stable order.
type CaseLister interface {
	List(ctx context.Context) ([]store.Entry, error)
}

// Config carries the controller's explicit process identity and labeling.
type Config struct {
	// BotName and BotEmail are the commit author identity.
	BotName  string
	BotEmail string
	// Labels are applied to every created change request.
	Labels []string
	// BaseBranch overrides the backend's default branch when non-empty.
	BaseBranch string
}

// Outcome classifies what happened to one case during a run.
type Outcome string

const (
	// OutcomeCreated: branch, artifact and change request all created.
	OutcomeCreated Outcome = "created"
	// OutcomeCreatedAnnotationFailed: change request created but labeling or
	// commenting failed. The request stands; the failure is observable here.
	OutcomeCreatedAnnotationFailed Outcome = "created_annotation_failed"
	// OutcomeSkippedIneligible: the case failed the eligibility predicate.
	OutcomeSkippedIneligible Outcome = "skipped_ineligible"
	// OutcomeSkippedExistingPR: a change request for this head already exists.
	OutcomeSkippedExistingPR Outcome = "skipped_existing_pr"
	// OutcomeSkippedExistingBranch: the remote branch already exists.
	OutcomeSkippedExistingBranch Outcome = "skipped_existing_branch"
	// OutcomeSkippedNoChanges: staging produced no diff; nothing committed.
	OutcomeSkippedNoChanges Outcome = "skipped_no_changes"
	// OutcomeFailed: an external call failed before the change request was
	// created. Fatal for this case only.
	OutcomeFailed Outcome = "failed"
)

// CaseResult is the outcome for one care-case.
type CaseResult struct {
	CaseID  string
	Branch  string
	Outcome Outcome
	PRURL   string
	Err     error
}

// Report collects the outcomes of one controller run.
type Report struct {
	Results []CaseResult
}

// AnyCreated reports whether any case resulted in a created change request.
func (r *Report) AnyCreated() bool {
	for _, res := range r.Results {
		if res.Outcome == OutcomeCreated || res.Outcome == OutcomeCreatedAnnotationFailed {
			return true
		}
	}
	return false
}

// Failures returns the results whose external calls failed.
func (r *Report) Failures() []CaseResult {
	var failed []CaseResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Eligible reports whether a care-case qualifies for automated proposal:
// green gate, propose_patch action, and a declared-reversible transition.
// Yellow and red gates are never auto-proposed, whatever else the case says.
func Eligible(c *carecase.CareCase) bool {
	if c.PolicyGate != carecase.GateGreen {
		return false
	}
	if c.RecommendedAction != carecase.ActionProposePatch {
		return false
	}
	return c.ProposedTransition != nil &&
		c.ProposedTransition.Reversibility == carecase.Reversible
}

// Controller is the idempotent proposal lifecycle manager.
type Controller struct {
	backend Backend
	cases   CaseLister
	cfg     Config
	logger  *slog.Logger
}

// NewController creates a controller over a case source and a backend.
func NewController(backend Backend, cases CaseLister, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{backend: backend, cases: cases, cfg: cfg, logger: logger}
}

// Run processes every persisted care-case in store order and returns the full
// report. Per-case external failures are recorded and do not stop the run;
// only being unable to list cases or configure identity aborts everything.
func (c *Controller) Run(ctx context.Context) (*Report, error) {
	entries, err := c.cases.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list care-cases: %w", err)
	}

	report := &Report{}
	if len(entries) == 0 {
		c.logger.Info("no generated care-cases found")
		return report, nil
	}

	if err := c.backend.ConfigureIdentity(ctx, c.cfg.BotName, c.cfg.BotEmail); err != nil {
		return nil, fmt.Errorf("configure git identity: %w", err)
	}
	c.logRepoContext(ctx)

	base := c.cfg.BaseBranch
	if base == "" {
		base = c.backend.DefaultBranch(ctx)
	}

	for _, entry := range entries {
		result := c.processCase(ctx, entry.Case, base)
		report.Results = append(report.Results, result)

		if result.Err != nil {
			c.logger.Error("case processing failed",
				"case_id", result.CaseID, "error", result.Err)
		}
	}

	if !report.AnyCreated() {
		c.logger.Info("no eligible care-cases for patch proposals")
	}
	return report, nil
}

// processCase runs the idempotent sequence for one case, short-circuiting to
// a skip at every existence check.
func (c *Controller) processCase(ctx context.Context, cc *carecase.CareCase, base string) CaseResult {
	result := CaseResult{CaseID: cc.ID, Branch: BranchForCase(cc.ID)}

	if !Eligible(cc) {
		result.Outcome = OutcomeSkippedIneligible
		c.logger.Debug("case not eligible for automated proposal",
			"case_id", cc.ID, "gate", cc.PolicyGate, "action", cc.RecommendedAction)
		return result
	}

	prExists, err := c.backend.PullRequestExistsForHead(ctx, result.Branch)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("query change requests for %s: %w", result.Branch, err)
		return result
	}
	if prExists {
		result.Outcome = OutcomeSkippedExistingPR
		c.logger.Info("change request already exists, skipping", "case_id", cc.ID)
		return result
	}

	branchExists, err := c.backend.RemoteBranchExists(ctx, result.Branch)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("query remote branch %s: %w", result.Branch, err)
		return result
	}
	if branchExists {
		result.Outcome = OutcomeSkippedExistingBranch
		c.logger.Info("remote branch already exists, skipping",
			"case_id", cc.ID, "branch", result.Branch)
		return result
	}

	// Past this point the worktree leaves the base branch; always put it
	// back so the next case starts clean.
	defer c.restoreBase(ctx, base)

	if err := c.backend.CheckoutFromBase(ctx, result.Branch, base); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("create branch %s: %w", result.Branch, err)
		return result
	}

	patchPath := PatchPathForCase(cc.ID)
	if err := c.backend.WriteWorktreeFile(patchPath, []byte(RenderArtifact(cc))); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("write proposal artifact: %w", err)
		return result
	}
	if err := c.backend.StageFile(ctx, patchPath); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("stage proposal artifact: %w", err)
		return result
	}

	staged, err := c.backend.HasStagedChanges(ctx)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("check staged changes: %w", err)
		return result
	}
	if !staged {
		// Identical content already exists upstream; no empty commits.
		result.Outcome = OutcomeSkippedNoChanges
		c.logger.Info("no changes to commit, skipping", "case_id", cc.ID)
		return result
	}

	if err := c.backend.Commit(ctx, "Guardian propose patch for "+cc.ID); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("commit proposal: %w", err)
		return result
	}
	if err := c.backend.Push(ctx, result.Branch); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("push %s: %w", result.Branch, err)
		return result
	}

	url, err := c.backend.CreatePullRequest(ctx, gitops.PullRequestSpec{
		Title: PullRequestTitle(cc),
		Body:  RenderBody(cc),
		Base:  base,
		Head:  result.Branch,
	})
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("create change request: %w", err)
		return result
	}
	result.PRURL = url

	// Annotation is best-effort: the change request already exists, so a
	// labeling or commenting failure degrades rather than rolls back.
	result.Outcome = OutcomeCreated
	if err := c.annotate(ctx, url); err != nil {
		result.Outcome = OutcomeCreatedAnnotationFailed
		c.logger.Warn("change request created but annotation failed",
			"case_id", cc.ID, "url", url, "error", err)
	}

	c.logger.Info("proposal created", "case_id", cc.ID, "branch", result.Branch, "url", url)
	return result
}

func (c *Controller) annotate(ctx context.Context, prURL string) error {
	if prURL == "" {
		return fmt.Errorf("no change request URL to annotate")
	}
	if len(c.cfg.Labels) > 0 {
		if err := c.backend.AddLabels(ctx, prURL, c.cfg.Labels); err != nil {
			return fmt.Errorf("add labels: %w", err)
		}
	}
	if err := c.backend.Comment(ctx, prURL, ReviewerComment()); err != nil {
		return fmt.Errorf("post reviewer checklist: %w", err)
	}
	return nil
}

// restoreBase returns the worktree to the base branch. Best-effort: a failure
// here is logged, and the next case's checkout starts from origin anyway.
func (c *Controller) restoreBase(ctx context.Context, base string) {
	if err := c.backend.CheckoutFromBase(ctx, base, base); err != nil {
		c.logger.Warn("failed to restore base branch", "base", base, "error", err)
	}
}

// logRepoContext logs repository and actor identity. Informational only.
func (c *Controller) logRepoContext(ctx context.Context) {
	if slug, err := c.backend.RepoSlug(ctx); err == nil && slug != "" {
		c.logger.Info("repo context", "repo", slug)
	} else {
		c.logger.Info("repo context unavailable")
	}
	if actor, err := c.backend.ActorLogin(ctx); err == nil && actor != "" {
		c.logger.Info("acting as", "actor", actor)
	}
}
