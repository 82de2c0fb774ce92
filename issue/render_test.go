package issue

import (
	"strings"
	"testing"
	"time"

	"github.com/c360studio/guardian/carecase"
)

func sampleCase() *carecase.CareCase {
	sig := &carecase.Signal{
		ID:       "s1",
		System:   carecase.SystemRef{Name: "checkout-web", Env: "prod", Version: "2024.06.1"},
		Kind:     "web-perf",
		Severity: carecase.SeverityFail,
		Tension:  0.3,
		Summary:  "LCP regressed on the checkout page",
	}
	return carecase.Synthesize(sig, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestTitle(t *testing.T) {
	got := Title(sampleCase())
	want := "Care-Case (green): LCP regressed on the checkout page"
	if got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
}

func TestTitle_MissingFields(t *testing.T) {
	got := Title(&carecase.CareCase{})
	want := "Care-Case (unknown): Unnamed care-case"
	if got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
}

func TestBody_ContainsStructuredSections(t *testing.T) {
	body, err := Body(sampleCase())
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}

	for _, want := range []string{
		"**System:** `checkout-web`",
		"**Env:** `prod`",
		"**Policy gate:** `green`",
		"**Recommended action:** `propose_patch`",
		"**Tension:** `0.3`",
		"**Signals:**",
		"- `s1`",
		"**Constraints:**",
		"- `reversibility-first`",
		"**Root-cause hypothesis (not a fact):**",
		"**Proposed transition (intent):**",
		"- reversibility: reversible",
		"- verification:",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	if !strings.HasSuffix(body, "```") || !strings.Contains(body, "```json\n") {
		t.Error("body must end with the raw JSON block")
	}
	if !strings.Contains(body, `"schema_version": "0.1"`) {
		t.Error("JSON block must carry the full record")
	}
}

func TestBody_OmitsEmptySections(t *testing.T) {
	c := &carecase.CareCase{
		PolicyGate:        carecase.GateYellow,
		RecommendedAction: carecase.ActionHumanReview,
		Tension:           0.5,
	}
	body, err := Body(c)
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}

	for _, absent := range []string{
		"**Signals:**",
		"**Constraints:**",
		"**Root-cause hypothesis",
		"**Proposed transition",
	} {
		if strings.Contains(body, absent) {
			t.Errorf("body should omit %q for an empty case", absent)
		}
	}
	if !strings.Contains(body, "**System:** `unknown`") {
		t.Error("missing system name should render as unknown")
	}
}
