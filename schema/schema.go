// Package schema has models, errors and constants shared by every part of tqi.
package schema

import (
	"maps"
	"slices"
)

// NotApplicable is the severity used by findings that carry a measurement instead of a defect.
const NotApplicable = "n/a"

// Finding is one raw analyzer record. It is passed by value and never mutated once built.
type Finding struct {
	File     string  `json:"file,omitempty"`
	Severity string  `json:"severity"`
	Line     *int    `json:"line,omitempty"`
	Column   *int    `json:"column,omitempty"`
	Value    float64 `json:"value"`
}

// NewFinding builds a finding at an optional location. A zero line or column means unknown.
func NewFinding(file, severity string, line, column int, value float64) Finding {
	f := Finding{File: file, Severity: severity, Value: value}
	if line > 0 {
		f.Line = &line
	}
	if column > 0 {
		f.Column = &column
	}
	return f
}

// Diagnostic is a category of finding produced by one tool, identified by a stable id.
type Diagnostic struct {
	ID          string       `json:"id"`
	Description string       `json:"description,omitempty"`
	Tool        string       `json:"tool"`
	Strategy    EvalStrategy `json:"strategy,omitempty"`
	Findings    []Finding    `json:"findings"`
}

// NewDiagnostic creates an empty diagnostic using the count strategy.
func NewDiagnostic(id, tool string) *Diagnostic {
	return &Diagnostic{ID: id, Tool: tool, Strategy: CountStrategy}
}

// AddFinding appends a finding to the diagnostic.
func (d *Diagnostic) AddFinding(f Finding) {
	d.Findings = append(d.Findings, f)
}

// Value collapses the findings into a single number according to the strategy.
func (d *Diagnostic) Value() float64 {
	switch d.Strategy {
	case SumStrategy:
		return d.sum()
	case MaxStrategy:
		if len(d.Findings) == 0 {
			return 0
		}
		m := d.Findings[0].Value
		for _, f := range d.Findings[1:] {
			m = max(m, f.Value)
		}
		return m
	case MeanStrategy:
		if len(d.Findings) == 0 {
			return 0
		}
		return d.sum() / float64(len(d.Findings))
	default:
		return float64(len(d.Findings))
	}
}

func (d *Diagnostic) sum() float64 {
	var total float64
	for _, f := range d.Findings {
		total += f.Value
	}
	return total
}

// DiagnosticSet maps diagnostic ids to diagnostics for one project.
type DiagnosticSet map[string]*Diagnostic

// Merge folds other into the set. Findings for an id already present are appended
// so two tools reporting the same id do not overwrite each other.
func (s DiagnosticSet) Merge(other DiagnosticSet) {
	for id, d := range other {
		existing, ok := s[id]
		if !ok {
			clone := *d
			clone.Findings = slices.Clone(d.Findings)
			s[id] = &clone
			continue
		}
		existing.Findings = append(existing.Findings, d.Findings...)
	}
}

// IDs returns the diagnostic ids in sorted order.
func (s DiagnosticSet) IDs() []string {
	return slices.Sorted(maps.Keys(s))
}
