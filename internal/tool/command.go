package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
)

// Argument placeholders expanded for every invocation.
const (
	ProjectPlaceholder = "{{project}}"
	OutputPlaceholder  = "{{output}}"
)

// CommandTool runs an external analyzer binary. When no argument carries the output
// placeholder, the command's stdout becomes the artifact.
type CommandTool struct {
	spec       contract.ToolSpec
	scratchDir string
}

var (
	_ contract.Tool       = &CommandTool{} // Compile-time check
	_ contract.Identifier = &CommandTool{} // Compile-time check
)

// NewCommandTool creates an adapter that writes artifacts under scratchDir.
func NewCommandTool(spec contract.ToolSpec, scratchDir string) *CommandTool {
	spec.Args = slices.Clone(spec.Args)
	return &CommandTool{spec: spec, scratchDir: scratchDir}
}

// Name implements the Tool interface.
func (t *CommandTool) Name() string {
	return t.spec.Name
}

// Analyze implements the Tool interface.
func (t *CommandTool) Analyze(ctx context.Context, projectPath string) (string, error) {
	out, err := os.CreateTemp(t.scratchDir, t.spec.Name+"-*.json")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", schema.ErrToolExecution, t.spec.Name, err)
	}
	artifact := out.Name()

	args := make([]string, len(t.spec.Args))
	toFile := false
	for i, a := range t.spec.Args {
		if strings.Contains(a, OutputPlaceholder) {
			toFile = true
		}
		a = strings.ReplaceAll(a, ProjectPlaceholder, projectPath)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, artifact)
	}

	cmd := exec.CommandContext(ctx, t.spec.Command, args...)
	cmd.Dir = t.spec.Dir
	if cmd.Dir == "" {
		cmd.Dir = projectPath
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if !toFile {
		cmd.Stdout = out
	}

	runErr := cmd.Run()
	_ = out.Close()
	if runErr == nil {
		return artifact, nil
	}

	_ = os.Remove(artifact)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("%w: %s: %v", schema.ErrToolExecution, t.spec.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return "", fmt.Errorf("%w: %s exited with code %d: %s", schema.ErrToolExecution, t.spec.Name, exitErr.ExitCode(), lastLine(stderr.String()))
	}
	return "", fmt.Errorf("%w: %s: %v. Ensure %q is installed and available on your PATH", schema.ErrToolExecution, t.spec.Name, runErr, t.spec.Command)
}

// Identity implements the Identifier interface. It covers every setting that can change
// the artifact the command produces.
func (t *CommandTool) Identity() string {
	return strings.Join(append([]string{t.spec.Command, t.spec.Dir}, t.spec.Args...), "\x00")
}

// ParseAnalysis implements the Tool interface.
func (t *CommandTool) ParseAnalysis(artifactPath string) (schema.DiagnosticSet, error) {
	return parseArtifact(artifactPath, t.spec.Name)
}

// lastLine keeps error messages short when a tool dumps a long log to stderr.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
