package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/tqi/schema"
)

// Quality label constants.
const (
	ExcellentValue = "Excellent" // Excellent value
	GoodValue      = "Good"      // Good value
	FairValue      = "Fair"      // Fair value
	PoorValue      = "Poor"      // Poor value
)

// Color variables for console output.
var (
	ExcellentColor = color.New(color.FgGreen, color.Bold) // ExcellentColor marks scores near the top of the corpus.
	GoodColor      = color.New(color.FgCyan)              // GoodColor marks scores above the corpus median.
	FairColor      = color.New(color.FgYellow)            // FairColor marks scores that need attention.
	PoorColor      = color.New(color.FgRed, color.Bold)   // PoorColor marks scores near the bottom of the corpus.
)

// GetPlainLabel returns a plain text label for a normalized score in [0, 1].
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 0.8:
		return ExcellentValue
	case score >= 0.6:
		return GoodValue
	case score >= 0.4:
		return FairValue
	default:
		return PoorValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
// It uses GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case ExcellentValue:
		return ExcellentColor.Sprint(text)
	case GoodValue:
		return GoodColor.Sprint(text)
	case FairValue:
		return FairColor.Sprint(text)
	default: // "Poor"
		return PoorColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogWarnings logs calibration or evaluation warnings to stderr.
func LogWarnings(warnings []schema.Warning) {
	for _, w := range warnings {
		_, _ = fmt.Fprintf(os.Stderr, "Warn %s\n", w)
	}
}

// GetCacheDBFilePath returns the path to the SQLite DB file for tool output caching.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".tqi_cache.db"
	}
	return filepath.Join(homeDir, ".tqi_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for evaluation history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".tqi_history.db"
	}
	return filepath.Join(homeDir, ".tqi_history.db")
}

// ProjectName derives a display name from a project path.
func ProjectName(projectPath string) string {
	name := filepath.Base(filepath.Clean(projectPath))
	if name == "." || name == string(filepath.Separator) {
		return "project"
	}
	return name
}

// ProjectNames names each project by its directory name, adding parent directories
// until no two projects share a name. Names use forward slashes, e.g. "teamA/app".
func ProjectNames(projectPaths []string) []string {
	parts := make([][]string, len(projectPaths))
	depth := make([]int, len(projectPaths))
	for i, p := range projectPaths {
		parts[i] = strings.Split(strings.Trim(filepath.ToSlash(filepath.Clean(p)), "/"), "/")
		depth[i] = 1
	}

	names := make([]string, len(projectPaths))
	for {
		byName := make(map[string][]int, len(names))
		for i, p := range projectPaths {
			if depth[i] == 1 {
				names[i] = ProjectName(p)
			} else {
				names[i] = strings.Join(parts[i][len(parts[i])-depth[i]:], "/")
			}
			byName[names[i]] = append(byName[names[i]], i)
		}

		grew := false
		for _, same := range byName {
			if len(same) < 2 {
				continue
			}
			for _, i := range same {
				if depth[i] < len(parts[i]) {
					depth[i]++
					grew = true
				}
			}
		}
		if !grew {
			return names
		}
	}
}

// TruncatePath truncates a path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
