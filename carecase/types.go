// Package carecase defines the signal and care-case data model and the
// deterministic synthesis that turns a validated signal into a triage record.
package carecase

import "time"

// SchemaVersion is the care-case document schema version emitted by synthesis.
const SchemaVersion = "0.1"

// Severity classifies how hard a signal fired.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// IsValid reports whether the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarn, SeverityFail:
		return true
	}
	return false
}

// PolicyGate is the three-level risk classification controlling how much
// automation a care-case is allowed.
type PolicyGate string

const (
	GateGreen  PolicyGate = "green"
	GateYellow PolicyGate = "yellow"
	GateRed    PolicyGate = "red"
)

// IsValid reports whether the gate is a known value.
func (g PolicyGate) IsValid() bool {
	switch g {
	case GateGreen, GateYellow, GateRed:
		return true
	}
	return false
}

// Action is the recommended handling for a care-case.
type Action string

const (
	ActionProposePatch Action = "propose_patch"
	ActionHumanReview  Action = "human_review"
	ActionRollback     Action = "rollback"
)

// IsValid reports whether the action is a known value.
func (a Action) IsValid() bool {
	switch a {
	case ActionProposePatch, ActionHumanReview, ActionRollback:
		return true
	}
	return false
}

// Status is the lifecycle status of a care-case. Synthesis only ever
// produces open cases; later states belong to downstream handling.
type Status string

// StatusOpen is the only status synthesis produces.
const StatusOpen Status = "open"

// Reversibility values used in proposed transitions.
const (
	Reversible = "reversible"
)

// SystemRef identifies the observed system.
type SystemRef struct {
	Name    string `json:"name"`
	Env     string `json:"env"`
	Version string `json:"version"`
}

// Signal is an external observation about a running system. Signals are
// immutable once validated; guardian never produces them, only consumes them.
type Signal struct {
	ID       string    `json:"id"`
	System   SystemRef `json:"system"`
	Kind     string    `json:"kind"`
	Severity Severity  `json:"severity"`
	Tension  float64   `json:"tension"`
	Summary  string    `json:"summary"`
	TraceRef string    `json:"trace_ref,omitempty"`
}

// SignalRef is a back-reference from a care-case to a contributing signal.
// References only; the case never owns the signal document.
type SignalRef struct {
	SignalID string `json:"signal_id"`
}

// ProposedTransition is a structured statement of intended change. It carries
// no executable content, only intent, scope, a reversibility declaration and
// verification steps.
type ProposedTransition struct {
	Intent        string   `json:"intent"`
	Scope         string   `json:"scope"`
	Reversibility string   `json:"reversibility"`
	Verification  []string `json:"verification"`
	TraceRef      string   `json:"trace_ref"`
}

// CareCase is the triage record synthesized from a signal. The ID is a pure
// function of the triggering signal's ID, so re-synthesizing from the same
// signal yields the same identity (CreatedAt still varies).
type CareCase struct {
	SchemaVersion       string              `json:"schema_version"`
	ID                  string              `json:"id"`
	CreatedAt           time.Time           `json:"created_at"`
	System              SystemRef           `json:"system"`
	PolicyGate          PolicyGate          `json:"policy_gate"`
	RecommendedAction   Action              `json:"recommended_action"`
	Tension             float64             `json:"tension"`
	Summary             string              `json:"summary"`
	Constraints         []string            `json:"constraints"`
	Signals             []SignalRef         `json:"signals"`
	Status              Status              `json:"status"`
	RootCauseHypothesis string              `json:"root_cause_hypothesis,omitempty"`
	ProposedTransition  *ProposedTransition `json:"proposed_transition,omitempty"`
}
