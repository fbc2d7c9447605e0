package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 10
	MaxResultLimit     = 1000
	DefaultPrecision   = 2
	DefaultToolTimeout = 10 * time.Minute
	DefaultResultsDir  = "results"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ToolSpec describes an external analyzer invoked as a command.
// Args may contain {{project}} and {{output}} placeholders.
type ToolSpec struct {
	Name    string
	Command string
	Args    []string
	Dir     string // working directory, defaults to the project path
}

// ToolRawInput holds one tool entry from the YAML config file.
type ToolRawInput struct {
	Name    string   `mapstructure:"name"`
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Dir     string   `mapstructure:"dir"`
}

// Config holds the runtime configuration for calibration and evaluation.
// This struct remains the "final, validated" config.
type Config struct {
	DescriptionPath string
	ModelPath       string
	ProjectPath     string
	BenchmarkRepo   string
	ProjectMarker   string
	ComparisonsDir  string
	ResultsDir      string

	ThresholdPolicy      schema.ThresholdPolicy
	Percentiles          []float64
	DefaultThresholds    []float64
	Weighter             schema.WeighterKind
	ConsistencyTolerance float64

	Workers     int
	ToolTimeout time.Duration
	Tools       []ToolSpec
	LOCTool     bool

	ResultLimit int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Explain     bool
	Batch       bool
	Width       int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	UseColors    bool // Enable colored labels in table output
	ShowProgress bool // Render a progress bar on stderr while tools run
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	PathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Limit            int    `mapstructure:"limit"`
	Precision        int    `mapstructure:"precision"`
	Workers          int    `mapstructure:"workers"`
	Width            int    `mapstructure:"width"`
	ResultsDir       string `mapstructure:"results-dir"`
	ToolTimeout      string `mapstructure:"tool-timeout"`
	LOCTool          string `mapstructure:"loc-tool"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Color            string `mapstructure:"color"`
	Progress         string `mapstructure:"progress"`

	// --- Fields from calibrateCmd.Flags() ---
	Description          string    `mapstructure:"description"`
	BenchmarkRepo        string    `mapstructure:"benchmark-repo"`
	ProjectMarker        string    `mapstructure:"project-marker"`
	ComparisonsDir       string    `mapstructure:"comparisons-dir"`
	ThresholdPolicy      string    `mapstructure:"threshold-policy"`
	Percentiles          []float64 `mapstructure:"percentiles"`
	DefaultThresholds    []float64 `mapstructure:"default-thresholds"`
	Weighter             string    `mapstructure:"weighter"`
	ConsistencyTolerance float64   `mapstructure:"consistency-tolerance"`

	// --- Fields from evaluateCmd.Flags() ---
	Model   string `mapstructure:"model"`
	Explain bool   `mapstructure:"explain"`
	Batch   bool   `mapstructure:"batch"`

	// --- Tool definitions from config file ---
	Tools []ToolRawInput `mapstructure:"tools"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Percentiles = slices.Clone(c.Percentiles)
	clone.DefaultThresholds = slices.Clone(c.DefaultThresholds)
	if c.Tools != nil {
		clone.Tools = make([]ToolSpec, len(c.Tools))
		for i, t := range c.Tools {
			t.Args = slices.Clone(t.Args)
			clone.Tools[i] = t
		}
	}
	return &clone
}

// CloneWithProject creates a copy of the Config scoped to a single project path.
func (c *Config) CloneWithProject(projectPath string) *Config {
	clone := c.Clone()
	clone.ProjectPath = projectPath
	clone.Batch = false
	return clone
}

// ConfigParams returns the settings recorded with every evaluation run.
func (c *Config) ConfigParams() map[string]any {
	tools := make([]string, 0, len(c.Tools)+1)
	for _, t := range c.Tools {
		tools = append(tools, t.Name)
	}
	if c.LOCTool {
		tools = append(tools, schema.LOCDiagnostic)
	}
	return map[string]any{
		"model":        c.ModelPath,
		"project":      c.ProjectPath,
		"batch":        c.Batch,
		"workers":      c.Workers,
		"tool_timeout": c.ToolTimeout.String(),
		"tools":        tools,
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processCalibration(cfg, input); err != nil {
		return err
	}
	if err := processTools(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return resolvePaths(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Cache and history tables may not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Explain = input.Explain
	cfg.Batch = input.Batch
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	progress, err := ParseBoolString(input.Progress)
	if err != nil {
		return fmt.Errorf("invalid --progress value: %w", err)
	}
	cfg.ShowProgress = progress

	loc, err := ParseBoolString(input.LOCTool)
	if err != nil {
		return fmt.Errorf("invalid --loc-tool value: %w", err)
	}
	cfg.LOCTool = loc

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	cfg.ToolTimeout = DefaultToolTimeout
	if input.ToolTimeout != "" {
		d, err := time.ParseDuration(input.ToolTimeout)
		if err != nil {
			return fmt.Errorf("invalid tool timeout '%s': %w", input.ToolTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("tool timeout must be positive (received %s)", input.ToolTimeout)
		}
		cfg.ToolTimeout = d
	}
	return nil
}

// processCalibration validates threshold and weighting settings.
func processCalibration(cfg *Config, input *ConfigRawInput) error {
	cfg.ThresholdPolicy = schema.ThresholdPolicy(strings.ToLower(input.ThresholdPolicy))
	if cfg.ThresholdPolicy == "" {
		cfg.ThresholdPolicy = schema.PercentilePolicy
	}
	if _, ok := schema.ValidThresholdPolicies[cfg.ThresholdPolicy]; !ok {
		return fmt.Errorf("invalid threshold policy '%s'. must be percentile, minmax, quartile", input.ThresholdPolicy)
	}

	// The deriver owns cut validation; building one here surfaces bad input before any tool runs.
	deriver, err := algo.NewThresholdDeriver(cfg.ThresholdPolicy, input.Percentiles)
	if err != nil {
		return err
	}
	cfg.Percentiles = slices.Clone(input.Percentiles)

	if len(input.DefaultThresholds) > 0 {
		if len(input.DefaultThresholds) != deriver.Size() {
			return fmt.Errorf("default thresholds must have %d values for the %s policy (received %d)",
				deriver.Size(), deriver.Name(), len(input.DefaultThresholds))
		}
		if !algo.Monotonic(input.DefaultThresholds) {
			return fmt.Errorf("default thresholds must be ordered (received %v)", input.DefaultThresholds)
		}
	}
	cfg.DefaultThresholds = slices.Clone(input.DefaultThresholds)

	cfg.Weighter = schema.WeighterKind(strings.ToLower(input.Weighter))
	if cfg.Weighter == "" {
		cfg.Weighter = schema.AHPWeighter
	}
	if _, ok := schema.ValidWeighters[cfg.Weighter]; !ok {
		return fmt.Errorf("invalid weighter '%s'. must be ahp, uniform", input.Weighter)
	}

	cfg.ConsistencyTolerance = input.ConsistencyTolerance
	if cfg.ConsistencyTolerance == 0 {
		cfg.ConsistencyTolerance = algo.DefaultConsistencyTolerance
	}
	if cfg.ConsistencyTolerance < 0 || cfg.ConsistencyTolerance > 1 {
		return fmt.Errorf("consistency tolerance must be between 0 and 1 (received %.3f)", input.ConsistencyTolerance)
	}
	return nil
}

// processTools validates the external tool definitions.
func processTools(cfg *Config, input *ConfigRawInput) error {
	seen := make(map[string]struct{}, len(input.Tools))
	cfg.Tools = make([]ToolSpec, 0, len(input.Tools))
	for i, raw := range input.Tools {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			return fmt.Errorf("tool #%d has no name", i+1)
		}
		if name == schema.LOCDiagnostic {
			return fmt.Errorf("tool name '%s' is reserved for the built-in line counter", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("tool '%s' is defined more than once", name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(raw.Command) == "" {
			return fmt.Errorf("tool '%s' has no command", name)
		}
		cfg.Tools = append(cfg.Tools, ToolSpec{
			Name:    name,
			Command: raw.Command,
			Args:    slices.Clone(raw.Args),
			Dir:     raw.Dir,
		})
	}
	return nil
}

// resolvePaths makes every configured path absolute.
func resolvePaths(cfg *Config, input *ConfigRawInput) error {
	var err error
	resolve := func(p string) string {
		if p == "" || err != nil {
			return p
		}
		var abs string
		abs, err = filepath.Abs(p)
		return abs
	}

	cfg.DescriptionPath = resolve(input.Description)
	cfg.ModelPath = resolve(input.Model)
	cfg.BenchmarkRepo = resolve(input.BenchmarkRepo)
	cfg.ComparisonsDir = resolve(input.ComparisonsDir)
	cfg.ProjectMarker = strings.TrimSpace(input.ProjectMarker)

	resultsDir := input.ResultsDir
	if resultsDir == "" {
		resultsDir = DefaultResultsDir
	}
	cfg.ResultsDir = resolve(resultsDir)

	projectPath := input.PathStr
	if projectPath == "" {
		projectPath = "."
	}
	cfg.ProjectPath = resolve(projectPath)
	if err != nil {
		return err
	}

	info, statErr := os.Stat(cfg.ProjectPath)
	if statErr == nil && !info.IsDir() {
		return fmt.Errorf("project path %q is not a directory", cfg.ProjectPath)
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
