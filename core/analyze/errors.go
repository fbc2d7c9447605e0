package analyze

import (
	"fmt"
	"strings"

	"github.com/huangsam/tqi/schema"
)

// AggregatedError collects all unit failures of a project.
type AggregatedError struct {
	Failures []schema.ToolFailure
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	if len(e.Failures) == 0 {
		return "no errors"
	}
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tools failed:\n", len(e.Failures)))
	for i, f := range e.Failures {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, f.Error()))
	}
	return sb.String()
}

// Unwrap returns every failure for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
