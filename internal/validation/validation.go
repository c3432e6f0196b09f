// Package validation checks generated dataset instances against their
// registry schemas: required tables and columns, non-negative counts,
// bounded rates, categorical closure, and declared derivation formulas.
// Every violation found is reported; nothing is silently dropped.
package validation

import (
	"fmt"

	"labsynth/pkg/dataset"
)

// Violation identifies one invariant breach down to the row and column.
type Violation struct {
	Rule    string `json:"rule"`
	Family  string `json:"family"`
	Table   string `json:"table"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// Result aggregates violations across rules.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// OK reports whether the instance passed every rule.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// Merge folds another result into the receiver.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// Error summarises the result as a ValidationFailure, or nil when clean.
func (r Result) Error() error {
	if r.OK() {
		return nil
	}
	first := r.Violations[0]
	return fmt.Errorf("%w: %d violation(s), first: %s %s/%s row %d: %s",
		dataset.ErrValidationFailure, len(r.Violations), first.Rule, first.Family, first.Table, first.Row, first.Message)
}

// Rule checks one invariant class over a whole instance.
type Rule interface {
	Name() string
	Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result
}

// Engine runs a fixed rule set over generated instances.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine with the default invariant rules.
func NewEngine() *Engine {
	return &Engine{rules: []Rule{
		tablePresenceRule{},
		columnPresenceRule{},
		nonNegativeCountRule{},
		rateBoundsRule{},
		categoricalClosureRule{},
		derivationRule{},
	}}
}

// Register appends a rule to the engine.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Validate runs every rule and aggregates all violations.
func (e *Engine) Validate(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var combined Result
	for _, rule := range e.rules {
		combined.Merge(rule.Check(desc, in))
	}
	return combined
}
