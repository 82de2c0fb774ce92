// Package gitops shells out to git and the gh CLI to give the pipeline a
// narrow command/query surface over the version-control and review backend.
// Callers depend on small consumer-side interfaces (see propose and prcheck);
// ExecBackend is the one concrete implementation.
package gitops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PullRequestSpec describes a change request to open.
type PullRequestSpec struct {
	Title string
	Body  string
	Base  string
	Head  string
}

// ExecBackend runs git and gh commands in a repository root.
type ExecBackend struct {
	repoRoot string
}

// NewExecBackend creates a backend rooted at the given repository path.
func NewExecBackend(repoRoot string) *ExecBackend {
	return &ExecBackend{repoRoot: repoRoot}
}

// RepoRoot returns the repository root the backend operates in.
func (b *ExecBackend) RepoRoot() string {
	return b.repoRoot
}

// IsGHAvailable checks if the gh CLI is installed and authenticated.
func IsGHAvailable() bool {
	cmd := exec.Command("gh", "auth", "status")
	return cmd.Run() == nil
}

// runGit executes a git command in the repo directory.
func (b *ExecBackend) runGit(ctx context.Context, args ...string) (string, error) {
	return b.run(ctx, "git", args...)
}

// runGH executes a gh command in the repo directory.
func (b *ExecBackend) runGH(ctx context.Context, args ...string) (string, error) {
	return b.run(ctx, "gh", args...)
}

// run executes a command and returns its combined output. Failures embed the
// command line and captured output so reports name what actually failed.
func (b *ExecBackend) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = b.repoRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s %s: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// DefaultBranch returns the repository's default branch name, falling back to
// "main" when the review backend cannot tell us.
func (b *ExecBackend) DefaultBranch(ctx context.Context) string {
	output, err := b.runGH(ctx, "repo", "view",
		"--json", "defaultBranchRef", "--jq", ".defaultBranchRef.name")
	if err != nil {
		return "main"
	}
	name := strings.TrimSpace(output)
	if name == "" {
		return "main"
	}
	return name
}

// RepoSlug returns the owner/name of the current repository. Informational
// only; errors are returned for the caller to log and ignore.
func (b *ExecBackend) RepoSlug(ctx context.Context) (string, error) {
	output, err := b.runGH(ctx, "repo", "view", "--json", "nameWithOwner", "--jq", ".nameWithOwner")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// ActorLogin returns the authenticated gh user. Informational only.
func (b *ExecBackend) ActorLogin(ctx context.Context) (string, error) {
	output, err := b.runGH(ctx, "api", "user", "--jq", ".login")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// ConfigureIdentity sets the commit author identity for this repository.
func (b *ExecBackend) ConfigureIdentity(ctx context.Context, name, email string) error {
	if _, err := b.runGit(ctx, "config", "user.name", name); err != nil {
		return err
	}
	if _, err := b.runGit(ctx, "config", "user.email", email); err != nil {
		return err
	}
	return nil
}

// RemoteBranchExists reports whether origin already has a branch of this name.
func (b *ExecBackend) RemoteBranchExists(ctx context.Context, branch string) (bool, error) {
	output, err := b.runGit(ctx, "ls-remote", "--heads", "origin", branch)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

// PullRequestExistsForHead reports whether any change request, in any state,
// has the given branch as its head.
func (b *ExecBackend) PullRequestExistsForHead(ctx context.Context, branch string) (bool, error) {
	output, err := b.runGH(ctx, "pr", "list",
		"--head", branch, "--state", "all", "--json", "number")
	if err != nil {
		return false, err
	}
	trimmed := strings.TrimSpace(output)
	return trimmed != "" && trimmed != "[]", nil
}

// PullRequestURLForHead returns the URL of the change request whose head is
// the given branch, or "" if none exists. One lookup only.
func (b *ExecBackend) PullRequestURLForHead(ctx context.Context, branch string) (string, error) {
	output, err := b.runGH(ctx, "pr", "list",
		"--head", branch, "--state", "all", "--json", "url")
	if err != nil {
		return "", err
	}

	var prs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &prs); err != nil {
		return "", fmt.Errorf("parse pr list output: %w", err)
	}
	if len(prs) == 0 {
		return "", nil
	}
	return prs[0].URL, nil
}

// CheckoutFromBase fetches the base branch from origin and force-resets the
// local branch onto its tip. Used both to cut proposal branches and to
// restore the working context to the default branch between cases.
func (b *ExecBackend) CheckoutFromBase(ctx context.Context, branch, base string) error {
	if _, err := b.runGit(ctx, "fetch", "origin", base); err != nil {
		return err
	}
	if _, err := b.runGit(ctx, "checkout", "-B", branch, "origin/"+base); err != nil {
		return err
	}
	return nil
}

// StageFile stages a single file.
func (b *ExecBackend) StageFile(ctx context.Context, path string) error {
	_, err := b.runGit(ctx, "add", path)
	return err
}

// HasStagedChanges reports whether anything is staged for commit.
func (b *ExecBackend) HasStagedChanges(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	cmd.Dir = b.repoRoot

	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff --cached --quiet: %w", err)
}

// Commit commits staged changes with the given message.
func (b *ExecBackend) Commit(ctx context.Context, message string) error {
	_, err := b.runGit(ctx, "commit", "-m", message)
	return err
}

// Push pushes a branch to origin, setting the upstream.
func (b *ExecBackend) Push(ctx context.Context, branch string) error {
	_, err := b.runGit(ctx, "push", "-u", "origin", branch)
	return err
}

// CreatePullRequest opens a change request and returns its URL.
func (b *ExecBackend) CreatePullRequest(ctx context.Context, spec PullRequestSpec) (string, error) {
	output, err := b.runGH(ctx, "pr", "create",
		"--title", spec.Title,
		"--body", spec.Body,
		"--base", spec.Base,
		"--head", spec.Head)
	if err != nil {
		return "", err
	}

	// gh prints the PR URL as the last non-empty line.
	lines := strings.Split(strings.TrimSpace(output), "\n")
	url := strings.TrimSpace(lines[len(lines)-1])
	if url == "" {
		return b.PullRequestURLForHead(ctx, spec.Head)
	}
	return url, nil
}

// AddLabels adds labels to an existing change request.
func (b *ExecBackend) AddLabels(ctx context.Context, prURL string, labels []string) error {
	args := []string{"pr", "edit", prURL}
	for _, label := range labels {
		args = append(args, "--add-label", label)
	}
	_, err := b.runGH(ctx, args...)
	return err
}

// Comment posts a comment on an existing change request.
func (b *ExecBackend) Comment(ctx context.Context, prURL, body string) error {
	_, err := b.runGH(ctx, "pr", "comment", prURL, "--body", body)
	return err
}

// ChangedFiles returns the files changed between two revisions.
func (b *ExecBackend) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	output, err := b.runGit(ctx, "diff", "--name-only", base, head)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// WriteWorktreeFile writes a file inside the repository worktree, creating
// parent directories as needed.
func (b *ExecBackend) WriteWorktreeFile(relPath string, data []byte) error {
	path := filepath.Join(b.repoRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", relPath, err)
	}
	return nil
}

// ReadWorktreeFile reads a file from the repository worktree. A missing file
// returns empty content and no error, matching what content validators need.
func (b *ExecBackend) ReadWorktreeFile(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.repoRoot, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	return data, nil
}
