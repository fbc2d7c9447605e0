// Package tool holds the analyzer adapters: external commands and the built-in line counter.
package tool

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/huangsam/tqi/schema"
)

// Artifact is the document every adapter produces. External tools either emit it directly
// or are wrapped by a script that converts their native output into it.
type Artifact struct {
	Tool        string              `json:"tool,omitempty"`
	Diagnostics []schema.Diagnostic `json:"diagnostics"`
}

// writeArtifact encodes an artifact to path.
func writeArtifact(path string, a *Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// parseArtifact decodes an artifact into a diagnostic set owned by toolName.
// Every failure wraps schema.ErrUnparseableOutput.
func parseArtifact(path, toolName string) (schema.DiagnosticSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrUnparseableOutput, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrUnparseableOutput, toolName, err)
	}

	set := make(schema.DiagnosticSet, len(a.Diagnostics))
	for i := range a.Diagnostics {
		d := a.Diagnostics[i]
		if d.ID == "" {
			return nil, fmt.Errorf("%w: %s: diagnostic #%d has no id", schema.ErrUnparseableOutput, toolName, i+1)
		}
		if d.Strategy == "" {
			d.Strategy = schema.CountStrategy
		}
		if _, ok := schema.ValidEvalStrategies[d.Strategy]; !ok {
			return nil, fmt.Errorf("%w: %s: diagnostic %q has unknown strategy '%s'", schema.ErrUnparseableOutput, toolName, d.ID, d.Strategy)
		}
		for j := range d.Findings {
			if d.Findings[j].Severity == "" {
				d.Findings[j].Severity = schema.NotApplicable
			}
		}
		d.Tool = toolName
		set.Merge(schema.DiagnosticSet{d.ID: &d})
	}
	return set, nil
}
