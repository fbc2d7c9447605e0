package tool

import (
	"fmt"
	"os"

	"github.com/huangsam/tqi/internal/contract"
)

// Registry holds the tools run against every project, in registration order.
type Registry struct {
	tools      []contract.Tool
	byName     map[string]contract.Tool
	scratchDir string
}

// NewRegistry builds the tool set described by the config. Artifacts go to a scratch
// directory that Close removes.
func NewRegistry(cfg *contract.Config) (*Registry, error) {
	scratch, err := os.MkdirTemp("", "tqi-artifacts-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	r := &Registry{byName: make(map[string]contract.Tool), scratchDir: scratch}

	for _, spec := range cfg.Tools {
		if err := r.Register(NewCommandTool(spec, scratch)); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	if cfg.LOCTool {
		if err := r.Register(NewLOCTool(scratch)); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

// NewStaticRegistry wraps an existing tool set, mainly for tests and embedding.
func NewStaticRegistry(tools ...contract.Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]contract.Tool)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t contract.Tool) error {
	if _, dup := r.byName[t.Name()]; dup {
		return fmt.Errorf("tool '%s' is already registered", t.Name())
	}
	r.byName[t.Name()] = t
	r.tools = append(r.tools, t)
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (contract.Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []contract.Tool {
	return append([]contract.Tool(nil), r.tools...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Close removes the scratch directory and every artifact in it.
func (r *Registry) Close() error {
	if r.scratchDir == "" {
		return nil
	}
	return os.RemoveAll(r.scratchDir)
}
