// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
)

// ArtifactSuffix is appended to the project name for each result artifact.
const ArtifactSuffix = ".tqi.json"

// WriteProjectArtifact writes the result of one project to <dir>/<project>.tqi.json and
// returns the path written. Nested project names such as "teamA/app" get nested files.
// An empty dir disables artifacts.
func WriteProjectArtifact(dir string, result schema.ProjectResult) (string, error) {
	if dir == "" {
		return "", nil
	}
	name := filepath.FromSlash(result.Project)
	if !filepath.IsLocal(name) {
		name = contract.ProjectName(result.Project)
	}
	path := filepath.Join(dir, name+ArtifactSuffix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating result artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := writeJSON(file, result); err != nil {
		return "", err
	}
	return path, nil
}
