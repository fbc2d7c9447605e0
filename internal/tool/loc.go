package tool

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
	ignore "github.com/sabhiram/go-gitignore"
)

// LOCToolName is the name the line counter registers under.
const LOCToolName = "loc"

// defaultIgnores are skipped in every project on top of its .gitignore.
var defaultIgnores = []string{
	".git/", ".hg/", ".svn/",
	"node_modules/", "vendor/", "bin/", "obj/", "dist/", "build/", "target/",
	"*.min.js", "*.min.css", "*.lock", "go.sum", "package-lock.json",
}

// sourceExtensions are the files counted as code.
var sourceExtensions = map[string]struct{}{
	".c": {}, ".cc": {}, ".cpp": {}, ".cs": {}, ".go": {}, ".h": {}, ".hpp": {},
	".java": {}, ".js": {}, ".jsx": {}, ".kt": {}, ".m": {}, ".php": {}, ".py": {},
	".rb": {}, ".rs": {}, ".scala": {}, ".swift": {}, ".ts": {}, ".tsx": {}, ".vb": {},
}

// LOCTool counts non-blank source lines per file. Its single diagnostic uses the sum strategy,
// so the diagnostic value is the project's total line count.
type LOCTool struct {
	scratchDir string
}

var _ contract.Tool = &LOCTool{} // Compile-time check

// NewLOCTool creates a line counter that writes artifacts under scratchDir.
func NewLOCTool(scratchDir string) *LOCTool {
	return &LOCTool{scratchDir: scratchDir}
}

// Name implements the Tool interface.
func (t *LOCTool) Name() string {
	return LOCToolName
}

// Analyze implements the Tool interface.
func (t *LOCTool) Analyze(ctx context.Context, projectPath string) (string, error) {
	matcher := projectIgnores(projectPath)

	diag := schema.Diagnostic{
		ID:          schema.LOCDiagnostic,
		Description: "Non-blank source lines",
		Tool:        LOCToolName,
		Strategy:    schema.SumStrategy,
	}

	err := filepath.WalkDir(projectPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := sourceExtensions[strings.ToLower(filepath.Ext(path))]; !ok || matcher.MatchesPath(rel) {
			return nil
		}

		lines, err := countLines(path)
		if err != nil {
			return err
		}
		if lines > 0 {
			diag.AddFinding(schema.NewFinding(rel, schema.NotApplicable, 0, 0, float64(lines)))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", schema.ErrToolExecution, LOCToolName, err)
	}

	out, err := os.CreateTemp(t.scratchDir, LOCToolName+"-*.json")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", schema.ErrToolExecution, LOCToolName, err)
	}
	_ = out.Close()
	if err := writeArtifact(out.Name(), &Artifact{Tool: LOCToolName, Diagnostics: []schema.Diagnostic{diag}}); err != nil {
		return "", fmt.Errorf("%w: %s: %v", schema.ErrToolExecution, LOCToolName, err)
	}
	return out.Name(), nil
}

// ParseAnalysis implements the Tool interface.
func (t *LOCTool) ParseAnalysis(artifactPath string) (schema.DiagnosticSet, error) {
	return parseArtifact(artifactPath, LOCToolName)
}

// projectIgnores combines the default ignores with the project's root .gitignore.
func projectIgnores(projectPath string) *ignore.GitIgnore {
	lines := append([]string(nil), defaultIgnores...)
	if data, err := os.ReadFile(filepath.Join(projectPath, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	return ignore.CompileIgnoreLines(lines...)
}

// countLines counts lines that hold anything besides whitespace.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}
