// Package intake is the front half of the pipeline: it discovers signal
// documents, validates them, synthesizes care-cases, and persists them to the
// case store. Discovery supports explicit files, changed-files-between-
// revisions (the CI path), and a filesystem watch mode.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/guardian/carecase"
	"github.com/c360studio/guardian/schema"
	"github.com/c360studio/guardian/store"
)

// zeroSHA is what CI hands us for the "before" revision of a first push.
const zeroSHA = "0000000000000000000000000000000000000000"

// Differ lists the files changed between two revisions.
// gitops.ExecBackend satisfies it.
type Differ interface {
	ChangedFiles(ctx context.Context, base, head string) ([]string, error)
}

// Result reports one intake run to the invoking environment.
type Result struct {
	// CaseFiles are the generated case locations, repo-relative.
	CaseFiles []string
}

// HasCases reports whether the run generated anything.
func (r *Result) HasCases() bool {
	return len(r.CaseFiles) > 0
}

// Runner drives signal discovery, validation, synthesis and persistence.
type Runner struct {
	repoRoot  string
	validator *schema.Validator
	cases     *store.Store
	differ    Differ
	globs     []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates an intake runner. globs are the doublestar patterns that
// identify signal documents among changed files.
func NewRunner(repoRoot string, validator *schema.Validator, cases *store.Store,
	differ Differ, globs []string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		repoRoot:  repoRoot,
		validator: validator,
		cases:     cases,
		differ:    differ,
		globs:     globs,
		logger:    logger,
		now:       time.Now,
	}
}

// DiscoverChanged returns the repo-relative signal files changed between two
// revisions, filtered through the configured globs. An empty or zero before
// revision falls back to comparing the last commit with its parent.
func (r *Runner) DiscoverChanged(ctx context.Context, before, after string) ([]string, error) {
	base, head := before, after
	if base == "" || base == zeroSHA || head == "" {
		base, head = "HEAD~1", "HEAD"
	}

	files, err := r.differ.ChangedFiles(ctx, base, head)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", base, head, err)
	}

	var signals []string
	for _, file := range files {
		if r.matchesGlobs(file) {
			signals = append(signals, file)
		}
	}
	return signals, nil
}

func (r *Runner) matchesGlobs(relPath string) bool {
	for _, glob := range r.globs {
		if ok, err := doublestar.Match(glob, filepath.ToSlash(relPath)); err == nil && ok {
			return true
		}
	}
	return false
}

// Run processes the given repo-relative signal files in order. Any schema
// violation aborts the whole run before mutation; the error carries every
// violation found in the offending document.
func (r *Runner) Run(ctx context.Context, signalFiles []string) (*Result, error) {
	result := &Result{}
	if len(signalFiles) == 0 {
		r.logger.Info("no changed signal files detected")
		return result, nil
	}

	for _, file := range signalFiles {
		location, err := r.processFile(ctx, file)
		if err != nil {
			return nil, err
		}
		result.CaseFiles = append(result.CaseFiles, location)
		r.logger.Info("generated care-case", "signal", file, "case_file", location)
	}

	return result, nil
}

// processFile runs one signal through the pipeline and returns the generated
// case location relative to the repository root.
func (r *Runner) processFile(ctx context.Context, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.repoRoot, relPath))
	if err != nil {
		return "", fmt.Errorf("read signal %s: %w", relPath, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse signal %s: %w", relPath, err)
	}

	// Schema validation gates synthesis: a malformed signal never reaches
	// the synthesizer.
	if err := r.validator.ValidateSignal(fmt.Sprintf("signal (%s)", relPath), doc); err != nil {
		return "", err
	}

	var sig carecase.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return "", fmt.Errorf("decode signal %s: %w", relPath, err)
	}

	c := carecase.Synthesize(&sig, r.now())

	// A generated case failing its own schema is a synthesis defect, not a
	// user input problem. Fail loudly.
	if err := r.validator.ValidateCareCaseStruct("care-case (generated)", c); err != nil {
		return "", fmt.Errorf("internal synthesis defect for signal %s: %w", sig.ID, err)
	}

	location, err := r.cases.Persist(ctx, c)
	if err != nil {
		return "", fmt.Errorf("persist care-case %s: %w", c.ID, err)
	}

	caseFile := filepath.Join(r.cases.Root(), location)
	if rel, err := filepath.Rel(r.repoRoot, caseFile); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel), nil
	}
	return filepath.ToSlash(caseFile), nil
}

// WriteOutputs appends the run's results to a GitHub-Actions-style outputs
// file. Multi-line values use the delimiter syntax the runner expects.
func WriteOutputs(path string, result *Result) error {
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open outputs file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "has_cases=%t\n", result.HasCases())
	b.WriteString("case_files<<GUARDIAN_EOF\n")
	for _, file := range result.CaseFiles {
		b.WriteString(file)
		b.WriteByte('\n')
	}
	b.WriteString("GUARDIAN_EOF\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	return nil
}
