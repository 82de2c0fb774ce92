// Package schema validates signal and care-case documents against their
// JSON-schema contracts. The schema documents are opaque contracts: defaults
// are compiled into the binary, and deployments may substitute their own
// files without code changes.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed signal.schema.json
var signalSchemaJSON []byte

//go:embed care-case.schema.json
var careCaseSchemaJSON []byte

// Violation is a single schema violation located within a document.
type Violation struct {
	// Path is the dot-joined location of the violation, or "(root)" for
	// top-level violations.
	Path string
	// Message describes what failed at that location.
	Message string
}

// ViolationError reports every violation found in one document, sorted by
// location. Validation never stops at the first problem.
type ViolationError struct {
	Label      string
	Violations []Violation
}

// Error renders the itemized violation list, one line per violation.
func (e *ViolationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s validation failed:", e.Label)
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n- %s: %s", v.Path, v.Message)
	}
	return b.String()
}

// Validator holds the compiled signal and care-case schemas.
type Validator struct {
	signal   *jsonschema.Schema
	careCase *jsonschema.Schema
}

// NewValidator compiles the embedded default schemas.
func NewValidator() (*Validator, error) {
	return newValidator(signalSchemaJSON, careCaseSchemaJSON)
}

// NewValidatorFromFiles compiles replacement schema documents from disk.
// Either path may be empty to keep the embedded default for that contract.
func NewValidatorFromFiles(signalPath, careCasePath string) (*Validator, error) {
	signalDoc := signalSchemaJSON
	careCaseDoc := careCaseSchemaJSON

	if signalPath != "" {
		data, err := os.ReadFile(signalPath)
		if err != nil {
			return nil, fmt.Errorf("read signal schema: %w", err)
		}
		signalDoc = data
	}
	if careCasePath != "" {
		data, err := os.ReadFile(careCasePath)
		if err != nil {
			return nil, fmt.Errorf("read care-case schema: %w", err)
		}
		careCaseDoc = data
	}

	return newValidator(signalDoc, careCaseDoc)
}

func newValidator(signalDoc, careCaseDoc []byte) (*Validator, error) {
	signal, err := compile("signal.schema.json", signalDoc)
	if err != nil {
		return nil, fmt.Errorf("compile signal schema: %w", err)
	}
	careCase, err := compile("care-case.schema.json", careCaseDoc)
	if err != nil {
		return nil, fmt.Errorf("compile care-case schema: %w", err)
	}
	return &Validator{signal: signal, careCase: careCase}, nil
}

func compile(name string, doc []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(name, bytes.NewReader(doc)); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

// ValidateSignal validates a decoded signal document. The label names the
// document in error reports (typically its file path).
func (v *Validator) ValidateSignal(label string, doc any) error {
	return validate(v.signal, label, doc)
}

// ValidateCareCase validates a decoded care-case document.
func (v *Validator) ValidateCareCase(label string, doc any) error {
	return validate(v.careCase, label, doc)
}

// ValidateCareCaseStruct validates a synthesized care-case by round-tripping
// it through JSON, so the struct is checked against the same opaque contract
// that external consumers see.
func (v *Validator) ValidateCareCaseStruct(label string, c any) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal care-case: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode care-case: %w", err)
	}
	return validate(v.careCase, label, doc)
}

func validate(sch *jsonschema.Schema, label string, doc any) error {
	err := sch.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s validation: %w", label, err)
	}

	violations := collectLeaves(ve, nil)
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Path != violations[j].Path {
			return violations[i].Path < violations[j].Path
		}
		return violations[i].Message < violations[j].Message
	})

	return &ViolationError{Label: label, Violations: violations}
}

// collectLeaves walks the cause tree and keeps only leaf violations, which
// carry the concrete messages. Interior nodes just restate their children.
func collectLeaves(ve *jsonschema.ValidationError, out []Violation) []Violation {
	if len(ve.Causes) == 0 {
		return append(out, Violation{
			Path:    pointerToPath(ve.InstanceLocation),
			Message: ve.Message,
		})
	}
	for _, cause := range ve.Causes {
		out = collectLeaves(cause, out)
	}
	return out
}

// pointerToPath converts a JSON pointer ("/system/name") to the dot-joined
// form used in reports ("system.name"), with "(root)" for the document root.
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "(root)"
	}
	segments := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, seg := range segments {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		segments[i] = seg
	}
	return strings.Join(segments, ".")
}
