package carecase

import (
	"time"

	"github.com/google/uuid"
)

// Gate band boundaries. Lower bound inclusive, upper bound exclusive, so
// 0.40 is yellow and 0.75 is red.
const (
	yellowThreshold = 0.40
	redThreshold    = 0.75
)

// KindWebPerf is the signal kind that gets the default remediation stub.
const KindWebPerf = "web-perf"

// KindSecurity is the signal kind that adds the no-secrets constraint.
const KindSecurity = "security"

// caseIDPrefix is the namespace-input prefix for case identity derivation.
// Changing it (or the nil namespace) breaks backward compatibility of every
// existing case ID.
const caseIDPrefix = "carecase:"

// baseConstraints always apply, in this order.
var baseConstraints = []string{
	"reversibility-first",
	"minimal-intervention",
	"explainability",
	"human-seniority",
}

// GateFromTension maps a tension score in [0,1] to a policy gate.
func GateFromTension(t float64) PolicyGate {
	switch {
	case t < yellowThreshold:
		return GateGreen
	case t < redThreshold:
		return GateYellow
	default:
		return GateRed
	}
}

// RecommendAction derives the recommended action from the gate and the
// signal's kind and severity. The red web-perf failure case is checked before
// the generic non-green rule so it resolves to rollback, not human_review.
func RecommendAction(gate PolicyGate, kind string, severity Severity) Action {
	if gate == GateGreen {
		return ActionProposePatch
	}
	if gate == GateRed && kind == KindWebPerf && severity == SeverityFail {
		return ActionRollback
	}
	return ActionHumanReview
}

// ConstraintsFor derives the constraint tags for a signal at a given gate.
// The base order is fixed and conditional tags append in a fixed sequence so
// repeated synthesis is reproducible.
func ConstraintsFor(sig *Signal, gate PolicyGate) []string {
	constraints := make([]string, len(baseConstraints), len(baseConstraints)+2)
	copy(constraints, baseConstraints)
	if gate != GateGreen {
		constraints = append(constraints, "canary-required")
	}
	if sig.Kind == KindSecurity {
		constraints = append(constraints, "no-secrets")
	}
	return constraints
}

// DeriveCaseID returns the deterministic case ID for a signal ID:
// UUIDv5 over the fixed nil namespace and "carecase:<signal_id>".
func DeriveCaseID(signalID string) string {
	return uuid.NewSHA1(uuid.Nil, []byte(caseIDPrefix+signalID)).String()
}

// Synthesize builds a care-case from a validated signal. It is pure given its
// inputs: the only varying output field is CreatedAt, which the caller
// supplies. The result must still pass care-case schema validation before it
// is persisted; a violation there is a synthesis defect, not an input error.
func Synthesize(sig *Signal, now time.Time) *CareCase {
	gate := GateFromTension(sig.Tension)
	action := RecommendAction(gate, sig.Kind, sig.Severity)

	c := &CareCase{
		SchemaVersion:     SchemaVersion,
		ID:                DeriveCaseID(sig.ID),
		CreatedAt:         now.UTC(),
		System:            sig.System,
		PolicyGate:        gate,
		RecommendedAction: action,
		Tension:           sig.Tension,
		Summary:           sig.Summary,
		Constraints:       ConstraintsFor(sig, gate),
		Signals:           []SignalRef{{SignalID: sig.ID}},
		Status:            StatusOpen,
	}

	// Conservative default remediation stub for web-perf signals that are
	// still candidates for patching or review. A guess, never a diagnosis.
	if sig.Kind == KindWebPerf && (action == ActionProposePatch || action == ActionHumanReview) {
		traceRef := sig.TraceRef
		if traceRef == "" {
			traceRef = "pending"
		}
		c.RootCauseHypothesis = "Potentially heavier assets or blocking scripts introduced recently."
		c.ProposedTransition = &ProposedTransition{
			Intent:        "Reduce LCP/TTFB by optimizing critical assets and deferring non-critical scripts",
			Scope:         "critical rendering path (hero assets, script loading)",
			Reversibility: Reversible,
			Verification: []string{
				"Lighthouse LCP within budget",
				"No functional regressions (smoke)",
			},
			TraceRef: traceRef,
		}
	}

	return c
}
