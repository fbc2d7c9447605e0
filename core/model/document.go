package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/tqi/schema"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a quality model. An uncalibrated description leaves
// thresholds and weights empty; a calibrated model fills them in place.
type Document struct {
	Name  string         `json:"name" yaml:"name"`
	Nodes []NodeDocument `json:"nodes" yaml:"nodes"`
}

// NodeDocument is one node entry of a Document.
type NodeDocument struct {
	ID          string             `json:"id" yaml:"id"`
	Kind        schema.NodeKind    `json:"kind" yaml:"kind"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Children    []string           `json:"children,omitempty" yaml:"children,omitempty"`
	Diagnostics []string           `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Positive    bool               `json:"positive,omitempty" yaml:"positive,omitempty"`
	NormalizeBy string             `json:"normalize_by,omitempty" yaml:"normalize_by,omitempty"`
	Thresholds  []float64          `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Weights     map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// isYAML decides the codec from the file extension. Anything else is JSON.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadDocument decodes a model document from disk.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(data, isYAML(path))
}

// DecodeDocument decodes a model document from memory.
func DecodeDocument(data []byte, asYAML bool) (*Document, error) {
	var doc Document
	if asYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrInvalidModel, err)
		}
		return &doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidModel, err)
	}
	return &doc, nil
}

// WriteDocument encodes a model document to disk, creating parent directories as needed.
func WriteDocument(path string, doc *Document) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Description builds the uncalibrated description, ignoring any thresholds or weights.
func (doc *Document) Description() (*Description, error) {
	nodes := make([]*Node, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		nodes = append(nodes, &Node{
			ID:          nd.ID,
			Kind:        nd.Kind,
			Description: nd.Description,
			Children:    nd.Children,
			Diagnostics: nd.Diagnostics,
			Positive:    nd.Positive,
			NormalizeBy: nd.NormalizeBy,
		})
	}
	return NewDescription(doc.Name, nodes)
}

// Model builds the calibrated model. It fails with ErrUncalibratedModel when any
// threshold or weight slot is still empty.
func (doc *Document) Model() (*Model, error) {
	desc, err := doc.Description()
	if err != nil {
		return nil, err
	}
	thresholds := make(map[string][]float64)
	weights := make(map[string]map[string]float64)
	for _, nd := range doc.Nodes {
		if len(nd.Thresholds) > 0 {
			thresholds[nd.ID] = nd.Thresholds
		}
		if len(nd.Weights) > 0 {
			weights[nd.ID] = nd.Weights
		}
	}
	return Calibrate(desc, thresholds, weights)
}

// DescriptionDocument renders a description with empty slots.
func DescriptionDocument(d *Description) *Document {
	doc := &Document{Name: d.Name()}
	for _, n := range d.Nodes() {
		doc.Nodes = append(doc.Nodes, nodeDocument(n))
	}
	return doc
}

// ModelDocument renders a calibrated model with every slot populated.
func ModelDocument(m *Model) *Document {
	doc := &Document{Name: m.Name()}
	for _, n := range m.desc.Nodes() {
		nd := nodeDocument(n)
		if n.IsMeasure() {
			nd.Thresholds = m.Thresholds(n.ID)
		} else if ws := m.Weights(n.ID); len(ws) > 0 {
			nd.Weights = ws
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return doc
}

func nodeDocument(n *Node) NodeDocument {
	return NodeDocument{
		ID:          n.ID,
		Kind:        n.Kind,
		Description: n.Description,
		Children:    slices.Clone(n.Children),
		Diagnostics: slices.Clone(n.Diagnostics),
		Positive:    n.Positive,
		NormalizeBy: n.NormalizeBy,
	}
}

// LoadDescription reads a description from disk. Thresholds or weights present in the
// file are ignored so a calibrated model can be recalibrated.
func LoadDescription(path string) (*Description, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return doc.Description()
}

// LoadModel reads a calibrated model from disk.
func LoadModel(path string) (*Model, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return doc.Model()
}

// SaveModel writes a calibrated model to disk.
func SaveModel(path string, m *Model) error {
	return WriteDocument(path, ModelDocument(m))
}

// Summary counts nodes per kind, used by inspection output.
func Summary(d *Description) map[schema.NodeKind]int {
	out := make(map[schema.NodeKind]int, len(schema.ValidNodeKinds))
	for k := range maps.Keys(schema.ValidNodeKinds) {
		out[k] = 0
	}
	for _, n := range d.Nodes() {
		out[n.Kind]++
	}
	return out
}
