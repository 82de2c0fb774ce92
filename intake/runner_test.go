package intake

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/guardian/carecase"
	"github.com/c360studio/guardian/schema"
	"github.com/c360studio/guardian/store"
)

var defaultGlobs = []string{"signals/**/*.json", "examples/signal.*.json"}

type fakeDiffer struct {
	files []string
	err   error

	base, head string
}

func (f *fakeDiffer) ChangedFiles(_ context.Context, base, head string) ([]string, error) {
	f.base, f.head = base, head
	return f.files, f.err
}

func validSignalJSON(id string, kind string, severity string, tension float64) []byte {
	doc := map[string]any{
		"id": id,
		"system": map[string]any{
			"name":    "checkout-web",
			"env":     "prod",
			"version": "2024.06.1",
		},
		"kind":     kind,
		"severity": severity,
		"tension":  tension,
		"summary":  "LCP regressed on the checkout page",
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

func newTestRunner(t *testing.T, repoRoot string, differ Differ) (*Runner, *store.Store) {
	t.Helper()
	validator, err := schema.NewValidator()
	require.NoError(t, err)
	cases := store.New(filepath.Join(repoRoot, "generated"))
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewRunner(repoRoot, validator, cases, differ, defaultGlobs, logger), cases
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestDiscoverChanged_FiltersThroughGlobs(t *testing.T) {
	differ := &fakeDiffer{files: []string{
		"signals/web/lcp.json",
		"signals/notes.txt",
		"examples/signal.demo.json",
		"examples/other.json",
		"README.md",
	}}
	runner, _ := newTestRunner(t, t.TempDir(), differ)

	found, err := runner.DiscoverChanged(context.Background(), "abc123", "def456")
	require.NoError(t, err)
	assert.Equal(t, []string{"signals/web/lcp.json", "examples/signal.demo.json"}, found)
	assert.Equal(t, "abc123", differ.base)
	assert.Equal(t, "def456", differ.head)
}

func TestDiscoverChanged_ZeroBeforeFallsBackToParent(t *testing.T) {
	differ := &fakeDiffer{}
	runner, _ := newTestRunner(t, t.TempDir(), differ)

	_, err := runner.DiscoverChanged(context.Background(), zeroSHA, "def456")
	require.NoError(t, err)
	assert.Equal(t, "HEAD~1", differ.base)
	assert.Equal(t, "HEAD", differ.head)
}

func TestDiscoverChanged_DiffErrorPropagates(t *testing.T) {
	differ := &fakeDiffer{err: errors.New("bad revision")}
	runner, _ := newTestRunner(t, t.TempDir(), differ)

	_, err := runner.DiscoverChanged(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "bad revision")
}

func TestRun_GeneratesCaseFromValidSignal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "signals/lcp.json", validSignalJSON("s1", "web-perf", "fail", 0.2))
	runner, cases := newTestRunner(t, root, &fakeDiffer{})

	result, err := runner.Run(context.Background(), []string{"signals/lcp.json"})
	require.NoError(t, err)
	require.True(t, result.HasCases())
	require.Len(t, result.CaseFiles, 1)

	wantID := carecase.DeriveCaseID("s1")
	assert.Equal(t, "generated/carecase."+wantID+".json", result.CaseFiles[0])

	entries, err := cases.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, wantID, entries[0].Case.ID)
	assert.Equal(t, carecase.GateGreen, entries[0].Case.PolicyGate)
	require.NotNil(t, entries[0].Case.ProposedTransition)
}

func TestRun_InvalidSignalAbortsBeforePersisting(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "signals/good.json", validSignalJSON("s1", "web-perf", "fail", 0.2))
	// Tension out of range plus a bogus severity.
	bad := []byte(`{"id":"s2","system":{"name":"x","env":"prod","version":"1"},"kind":"k","severity":"catastrophic","tension":1.5,"summary":"s"}`)
	writeFile(t, root, "signals/bad.json", bad)
	runner, cases := newTestRunner(t, root, &fakeDiffer{})

	_, err := runner.Run(context.Background(), []string{"signals/bad.json", "signals/good.json"})
	require.Error(t, err)

	var ve *schema.ViolationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Label, "signals/bad.json")
	assert.GreaterOrEqual(t, len(ve.Violations), 2)

	entries, err := cases.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected run must not leave cases behind")
}

func TestRun_MalformedJSONReported(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "signals/broken.json", []byte("{not json"))
	runner, _ := newTestRunner(t, root, &fakeDiffer{})

	_, err := runner.Run(context.Background(), []string{"signals/broken.json"})
	assert.ErrorContains(t, err, "signals/broken.json")
}

func TestRun_MissingFileReported(t *testing.T) {
	runner, _ := newTestRunner(t, t.TempDir(), &fakeDiffer{})

	_, err := runner.Run(context.Background(), []string{"signals/nope.json"})
	assert.ErrorContains(t, err, "signals/nope.json")
}

func TestRun_EmptyInputIsANoOp(t *testing.T) {
	runner, _ := newTestRunner(t, t.TempDir(), &fakeDiffer{})

	result, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.HasCases())
}

func TestRun_SameSignalTwiceLandsOnOneFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "signals/lcp.json", validSignalJSON("s1", "web-perf", "fail", 0.2))
	runner, cases := newTestRunner(t, root, &fakeDiffer{})

	first, err := runner.Run(context.Background(), []string{"signals/lcp.json"})
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), []string{"signals/lcp.json"})
	require.NoError(t, err)
	assert.Equal(t, first.CaseFiles, second.CaseFiles)

	entries, err := cases.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs")
	result := &Result{CaseFiles: []string{"generated/carecase.a.json", "generated/carecase.b.json"}}

	require.NoError(t, WriteOutputs(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "has_cases=true\n")
	assert.Contains(t, content, "case_files<<GUARDIAN_EOF\ngenerated/carecase.a.json\ngenerated/carecase.b.json\nGUARDIAN_EOF\n")
}

func TestWriteOutputs_EmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs")
	require.NoError(t, WriteOutputs(path, &Result{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "has_cases=false\n"))
}

func TestWriteOutputs_NoPathIsANoOp(t *testing.T) {
	assert.NoError(t, WriteOutputs("", &Result{}))
}

func TestMatchesGlobs(t *testing.T) {
	runner, _ := newTestRunner(t, t.TempDir(), &fakeDiffer{})

	tests := []struct {
		path string
		want bool
	}{
		{"signals/lcp.json", true},
		{"signals/web/deep/lcp.json", true},
		{"examples/signal.demo.json", true},
		{"examples/demo.json", false},
		{"signals/readme.md", false},
		{"other/signals/lcp.json", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runner.matchesGlobs(tt.path), tt.path)
	}
}
