package weight

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/schema"
)

// AHP derives weights from pairwise comparison matrices, one CSV file per aggregation node
// named <node-id>.csv inside the comparisons directory.
//
// The first row labels the columns with child ids and the first column labels the rows:
//
//	,complexity,style
//	complexity,1,3
//	style,1/3,1
//
// Rows and columns are matched to children by id, so their order in the file is free.
type AHP struct {
	Dir       string
	Tolerance float64
}

var _ Weighter = &AHP{} // Compile-time check

// NewAHP creates an AHP weighter. A non-positive tolerance uses the default of 0.1.
func NewAHP(dir string, tolerance float64) *AHP {
	if tolerance <= 0 {
		tolerance = algo.DefaultConsistencyTolerance
	}
	return &AHP{Dir: dir, Tolerance: tolerance}
}

// Kind reports the weighter kind.
func (a *AHP) Kind() schema.WeighterKind {
	return schema.AHPWeighter
}

// ElicitWeights reads a matrix for every aggregation node. Nodes with a single child need no
// matrix. A missing matrix falls back to equal weights with a warning; a malformed one aborts.
func (a *AHP) ElicitWeights(desc *model.Description) ([]schema.WeightResult, []schema.Warning, error) {
	aggregates := desc.Aggregates()
	results := make([]schema.WeightResult, 0, len(aggregates))
	var warnings []schema.Warning

	for _, n := range aggregates {
		if len(n.Children) <= 1 {
			results = append(results, uniformResult(n))
			continue
		}

		path := filepath.Join(a.Dir, n.ID+".csv")
		matrix, err := ReadMatrix(path, n.Children)
		if errors.Is(err, fs.ErrNotExist) {
			results = append(results, uniformResult(n))
			warnings = append(warnings, schema.Warning{
				Kind:    schema.MissingMatrixWarning,
				Subject: n.ID,
				Message: fmt.Sprintf("no comparison matrix at %s, using equal weights", path),
			})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", n.ID, err)
		}

		weights, cr, err := algo.PriorityVector(matrix)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		if cr > a.Tolerance {
			warnings = append(warnings, schema.Warning{
				Kind:    schema.InconsistentWarning,
				Subject: n.ID,
				Message: fmt.Sprintf("consistency ratio %.3f exceeds %.3f", cr, a.Tolerance),
			})
		}
		results = append(results, schema.WeightResult{
			NodeID:           n.ID,
			Children:         append([]string(nil), n.Children...),
			Weights:          weights,
			ConsistencyRatio: cr,
		})
	}
	return results, warnings, nil
}

// ReadMatrix loads a labelled comparison matrix and reorders it to match children.
// Labels that are not children, or children without a label, make the matrix malformed.
func ReadMatrix(path string, children []string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return DecodeMatrix(f, children)
}

// DecodeMatrix parses a labelled comparison matrix from r.
func DecodeMatrix(r io.Reader, children []string) ([][]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedComparisonMatrix, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", schema.ErrMalformedComparisonMatrix)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: header needs a label column and at least one child", schema.ErrMalformedComparisonMatrix)
	}
	position := make(map[string]int, len(children))
	for i, c := range children {
		position[c] = i
	}

	cols, err := labelIndex(header[1:], position, "column")
	if err != nil {
		return nil, err
	}
	if len(cols) != len(children) {
		return nil, fmt.Errorf("%w: %d columns for %d children", schema.ErrMalformedComparisonMatrix, len(cols), len(children))
	}

	rows := records[1:]
	if len(rows) != len(children) {
		return nil, fmt.Errorf("%w: %d rows for %d children", schema.ErrMalformedComparisonMatrix, len(rows), len(children))
	}
	labels := make([]string, len(rows))
	for i, rec := range rows {
		labels[i] = rec[0]
	}
	rowIdx, err := labelIndex(labels, position, "row")
	if err != nil {
		return nil, err
	}

	matrix := make([][]float64, len(children))
	for i := range matrix {
		matrix[i] = make([]float64, len(children))
	}
	for r, rec := range rows {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: row %q has %d cells, expected %d", schema.ErrMalformedComparisonMatrix, rec[0], len(rec), len(header))
		}
		for c, cell := range rec[1:] {
			v, err := parseJudgment(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %q: %v", schema.ErrMalformedComparisonMatrix, rec[0], err)
			}
			matrix[rowIdx[r]][cols[c]] = v
		}
	}
	return matrix, nil
}

// labelIndex maps each label to its child position, rejecting unknown and repeated labels.
func labelIndex(labels []string, position map[string]int, axis string) ([]int, error) {
	out := make([]int, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for i, raw := range labels {
		label := strings.TrimSpace(raw)
		p, ok := position[label]
		if !ok {
			return nil, fmt.Errorf("%w: %s label %q is not a child", schema.ErrMalformedComparisonMatrix, axis, label)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("%w: %s label %q repeated", schema.ErrMalformedComparisonMatrix, axis, label)
		}
		seen[label] = struct{}{}
		out[i] = p
	}
	return out, nil
}

// parseJudgment accepts decimals and fractions such as "1/3".
func parseJudgment(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if num, den, ok := strings.Cut(cell, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("zero denominator in %q", cell)
		}
		return n / d, nil
	}
	return strconv.ParseFloat(cell, 64)
}

// New returns the weighter for a kind.
func New(kind schema.WeighterKind, dir string, tolerance float64) (Weighter, error) {
	switch kind {
	case schema.AHPWeighter, "":
		return NewAHP(dir, tolerance), nil
	case schema.UniformWeighter:
		return Uniform{}, nil
	default:
		return nil, fmt.Errorf("unsupported weighter '%s'. must be ahp, uniform", kind)
	}
}
