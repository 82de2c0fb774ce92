package carecase

import (
	"testing"
	"time"
)

func TestGateFromTension(t *testing.T) {
	tests := []struct {
		tension float64
		want    PolicyGate
	}{
		{0.0, GateGreen},
		{0.2, GateGreen},
		{0.39999, GateGreen},
		{0.40, GateYellow}, // boundary lands in the upper band
		{0.5, GateYellow},
		{0.74999, GateYellow},
		{0.75, GateRed}, // boundary lands in the upper band
		{0.9, GateRed},
		{1.0, GateRed},
	}

	for _, tt := range tests {
		got := GateFromTension(tt.tension)
		if got != tt.want {
			t.Errorf("GateFromTension(%v) = %v, want %v", tt.tension, got, tt.want)
		}
	}
}

func TestRecommendAction(t *testing.T) {
	tests := []struct {
		name     string
		gate     PolicyGate
		kind     string
		severity Severity
		want     Action
	}{
		{"green_always_proposes", GateGreen, "web-perf", SeverityWarn, ActionProposePatch},
		{"green_even_security", GateGreen, "security", SeverityFail, ActionProposePatch},
		{"yellow_reviews", GateYellow, "web-perf", SeverityWarn, ActionHumanReview},
		{"red_webperf_fail_rolls_back", GateRed, "web-perf", SeverityFail, ActionRollback},
		{"red_webperf_warn_reviews", GateRed, "web-perf", SeverityWarn, ActionHumanReview},
		{"red_other_kind_reviews", GateRed, "security", SeverityFail, ActionHumanReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecommendAction(tt.gate, tt.kind, tt.severity)
			if got != tt.want {
				t.Errorf("RecommendAction(%v, %q, %v) = %v, want %v",
					tt.gate, tt.kind, tt.severity, got, tt.want)
			}
		})
	}
}

func TestConstraintsFor(t *testing.T) {
	tests := []struct {
		name string
		sig  Signal
		gate PolicyGate
		want []string
	}{
		{
			name: "green_base_only",
			sig:  Signal{Kind: "web-perf"},
			gate: GateGreen,
			want: []string{"reversibility-first", "minimal-intervention", "explainability", "human-seniority"},
		},
		{
			name: "non_green_adds_canary",
			sig:  Signal{Kind: "web-perf"},
			gate: GateYellow,
			want: []string{"reversibility-first", "minimal-intervention", "explainability", "human-seniority", "canary-required"},
		},
		{
			name: "security_adds_no_secrets_last",
			sig:  Signal{Kind: "security"},
			gate: GateRed,
			want: []string{"reversibility-first", "minimal-intervention", "explainability", "human-seniority", "canary-required", "no-secrets"},
		},
		{
			name: "green_security",
			sig:  Signal{Kind: "security"},
			gate: GateGreen,
			want: []string{"reversibility-first", "minimal-intervention", "explainability", "human-seniority", "no-secrets"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConstraintsFor(&tt.sig, tt.gate)
			if len(got) != len(tt.want) {
				t.Fatalf("ConstraintsFor() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("constraint[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDeriveCaseID_Deterministic(t *testing.T) {
	a := DeriveCaseID("s1")
	b := DeriveCaseID("s1")
	if a != b {
		t.Errorf("DeriveCaseID not stable: %q vs %q", a, b)
	}

	other := DeriveCaseID("s2")
	if a == other {
		t.Errorf("distinct signal IDs produced the same case ID: %q", a)
	}
}

func TestDeriveCaseID_KnownValue(t *testing.T) {
	// UUIDv5 over the nil namespace and "carecase:s1". Pinned so any change
	// to the prefix or namespace shows up as a compatibility break.
	got := DeriveCaseID("s1")
	const want = "1da0e7d7-96f1-5247-9f6d-ae2b63400b17"
	if got != want {
		t.Errorf("DeriveCaseID(\"s1\") = %q, want %q", got, want)
	}
}

func TestSynthesize_GreenWebPerf(t *testing.T) {
	sig := &Signal{
		ID:       "s1",
		System:   SystemRef{Name: "shop", Env: "prod", Version: "1.2.3"},
		Kind:     "web-perf",
		Severity: SeverityWarn,
		Tension:  0.2,
		Summary:  "slow LCP",
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c := Synthesize(sig, now)

	if c.PolicyGate != GateGreen {
		t.Errorf("gate = %v, want green", c.PolicyGate)
	}
	if c.RecommendedAction != ActionProposePatch {
		t.Errorf("action = %v, want propose_patch", c.RecommendedAction)
	}
	if c.ID != DeriveCaseID("s1") {
		t.Errorf("case ID not derived from signal ID: %q", c.ID)
	}
	if c.Status != StatusOpen {
		t.Errorf("status = %v, want open", c.Status)
	}
	if c.ProposedTransition == nil {
		t.Fatal("web-perf green case should carry a proposed transition")
	}
	if c.ProposedTransition.Reversibility != Reversible {
		t.Errorf("reversibility = %q, want %q", c.ProposedTransition.Reversibility, Reversible)
	}
	if c.ProposedTransition.TraceRef != "pending" {
		t.Errorf("absent trace_ref should render as the pending sentinel, got %q", c.ProposedTransition.TraceRef)
	}
	if len(c.ProposedTransition.Verification) != 2 {
		t.Errorf("verification checklist has %d items, want 2", len(c.ProposedTransition.Verification))
	}
	if len(c.Signals) != 1 || c.Signals[0].SignalID != "s1" {
		t.Errorf("signal back-references = %v, want [{s1}]", c.Signals)
	}
	if !c.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", c.CreatedAt, now)
	}
}

func TestSynthesize_TraceRefCopied(t *testing.T) {
	sig := &Signal{
		ID:       "s2",
		Kind:     "web-perf",
		Severity: SeverityWarn,
		Tension:  0.5,
		TraceRef: "trace-abc",
	}

	c := Synthesize(sig, time.Now())
	if c.ProposedTransition == nil {
		t.Fatal("yellow web-perf review case should still carry the stub")
	}
	if c.ProposedTransition.TraceRef != "trace-abc" {
		t.Errorf("trace_ref = %q, want trace-abc", c.ProposedTransition.TraceRef)
	}
}

func TestSynthesize_RedWebPerfFail_NoStub(t *testing.T) {
	sig := &Signal{
		ID:       "s3",
		Kind:     "web-perf",
		Severity: SeverityFail,
		Tension:  0.9,
	}

	c := Synthesize(sig, time.Now())
	if c.PolicyGate != GateRed {
		t.Errorf("gate = %v, want red", c.PolicyGate)
	}
	if c.RecommendedAction != ActionRollback {
		t.Errorf("action = %v, want rollback", c.RecommendedAction)
	}
	// Rollback is not a patch candidate, so no remediation stub.
	if c.ProposedTransition != nil {
		t.Error("rollback case should not carry a proposed transition")
	}
	if c.RootCauseHypothesis != "" {
		t.Error("rollback case should not carry a hypothesis")
	}
}

func TestSynthesize_NonWebPerf_NoStub(t *testing.T) {
	sig := &Signal{ID: "s4", Kind: "security", Severity: SeverityWarn, Tension: 0.1}

	c := Synthesize(sig, time.Now())
	if c.ProposedTransition != nil {
		t.Error("non-web-perf case should not carry a proposed transition")
	}
}
