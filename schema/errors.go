package schema

import (
	"errors"
	"fmt"
)

// Structural errors abort the operation that raised them.
var (
	ErrNodeNotFound              = errors.New("node not found")
	ErrUnknownMeasureName        = errors.New("unknown measure name")
	ErrUnknownNodeName           = errors.New("unknown node name")
	ErrMalformedComparisonMatrix = errors.New("malformed comparison matrix")
	ErrUncalibratedModel         = errors.New("uncalibrated model")
	ErrInvalidModel              = errors.New("invalid model")
)

// Tool errors are scoped to a single (project, tool) unit.
var (
	ErrToolExecution     = errors.New("tool execution failed")
	ErrUnparseableOutput = errors.New("unparseable tool output")
)

// ErrZeroSampleMeasure marks a measure that saw no samples in the benchmark corpus.
// It is reported as a warning, never returned from a successful calibration.
var ErrZeroSampleMeasure = errors.New("zero sample measure")

// Warning is a non-fatal condition surfaced to the caller of calibration or evaluation.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject"`
	Message string      `json:"message"`
}

// String renders the warning for log output.
func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Subject, w.Message)
}

// ToolFailure records a single (project, tool) unit that failed.
type ToolFailure struct {
	Tool    string
	Project string
	Err     error
}

// Error implements the error interface.
func (f ToolFailure) Error() string {
	return fmt.Sprintf("[%s@%s] %v", f.Tool, f.Project, f.Err)
}

// Unwrap returns the underlying error.
func (f ToolFailure) Unwrap() error {
	return f.Err
}

// NodeError wraps a structural sentinel with the id that triggered it.
func NodeError(sentinel error, id string) error {
	return fmt.Errorf("%w: %q", sentinel, id)
}
