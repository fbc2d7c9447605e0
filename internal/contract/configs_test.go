package contract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/tqi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns raw input the way Viper fills it with defaults.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Limit:        DefaultResultLimit,
		Workers:      4,
		Precision:    DefaultPrecision,
		Output:       "text",
		Color:        "yes",
		Progress:     "no",
		LOCTool:      "yes",
		CacheBackend: string(schema.SQLiteBackend),
		PathStr:      ".",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: true,
		},
		{
			name:        "zero limit",
			mutate:      func(in *ConfigRawInput) { in.Limit = 0 },
			expectError: true,
		},
		{
			name:        "limit above max",
			mutate:      func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 },
			expectError: true,
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: true,
		},
		{
			name:        "precision out of range",
			mutate:      func(in *ConfigRawInput) { in.Precision = 9 },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "sometimes" },
			expectError: true,
		},
		{
			name:        "invalid tool timeout",
			mutate:      func(in *ConfigRawInput) { in.ToolTimeout = "soon" },
			expectError: true,
		},
		{
			name:        "negative tool timeout",
			mutate:      func(in *ConfigRawInput) { in.ToolTimeout = "-1s" },
			expectError: true,
		},
		{
			name:        "invalid threshold policy",
			mutate:      func(in *ConfigRawInput) { in.ThresholdPolicy = "median" },
			expectError: true,
		},
		{
			name:        "percentile cut out of range",
			mutate:      func(in *ConfigRawInput) { in.Percentiles = []float64{10, 150} },
			expectError: true,
		},
		{
			name: "default thresholds wrong length",
			mutate: func(in *ConfigRawInput) {
				in.DefaultThresholds = []float64{0, 1}
			},
			expectError: true,
		},
		{
			name: "default thresholds unordered",
			mutate: func(in *ConfigRawInput) {
				in.DefaultThresholds = []float64{0, 5, 1}
			},
			expectError: true,
		},
		{
			name:        "invalid weighter",
			mutate:      func(in *ConfigRawInput) { in.Weighter = "delphi" },
			expectError: true,
		},
		{
			name:        "consistency tolerance above one",
			mutate:      func(in *ConfigRawInput) { in.ConsistencyTolerance = 2 },
			expectError: true,
		},
		{
			name: "tool without name",
			mutate: func(in *ConfigRawInput) {
				in.Tools = []ToolRawInput{{Command: "lint"}}
			},
			expectError: true,
		},
		{
			name: "tool without command",
			mutate: func(in *ConfigRawInput) {
				in.Tools = []ToolRawInput{{Name: "lint"}}
			},
			expectError: true,
		},
		{
			name: "duplicate tool",
			mutate: func(in *ConfigRawInput) {
				in.Tools = []ToolRawInput{{Name: "lint", Command: "a"}, {Name: "lint", Command: "b"}}
			},
			expectError: true,
		},
		{
			name: "reserved tool name",
			mutate: func(in *ConfigRawInput) {
				in.Tools = []ToolRawInput{{Name: "loc", Command: "cloc"}}
			},
			expectError: true,
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: true,
		},
		{
			name: "history shares sqlite file with cache",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = string(schema.SQLiteBackend)
				in.CacheDBConnect = "/tmp/shared.db"
				in.HistoryDBConnect = "/tmp/shared.db"
			},
			expectError: true,
		},
		{
			name: "history on separate sqlite file",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = string(schema.SQLiteBackend)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, wd, cfg.ProjectPath)
	assert.Equal(t, filepath.Join(wd, DefaultResultsDir), cfg.ResultsDir)
	assert.Equal(t, schema.PercentilePolicy, cfg.ThresholdPolicy)
	assert.Equal(t, schema.AHPWeighter, cfg.Weighter)
	assert.Equal(t, 0.1, cfg.ConsistencyTolerance)
	assert.Equal(t, DefaultToolTimeout, cfg.ToolTimeout)
	assert.Equal(t, schema.SQLiteBackend, cfg.CacheBackend)
	assert.Equal(t, schema.DatabaseBackend(""), cfg.HistoryBackend)
	assert.True(t, cfg.UseColors)
	assert.False(t, cfg.ShowProgress)
	assert.True(t, cfg.LOCTool)
	assert.Empty(t, cfg.Tools)
}

func TestProcessAndValidate_Calibration(t *testing.T) {
	input := validInput()
	input.Description = "model.yaml"
	input.BenchmarkRepo = "corpus"
	input.ComparisonsDir = "comparisons"
	input.ProjectMarker = " *.sln "
	input.ThresholdPolicy = "QUARTILE"
	input.DefaultThresholds = []float64{3, 2, 1}
	input.Weighter = "uniform"
	input.ConsistencyTolerance = 0.2
	input.ToolTimeout = "90s"
	input.Tools = []ToolRawInput{{Name: "lint", Command: "golangci-lint", Args: []string{"run", "{{project}}"}}}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.True(t, filepath.IsAbs(cfg.DescriptionPath))
	assert.True(t, filepath.IsAbs(cfg.BenchmarkRepo))
	assert.True(t, filepath.IsAbs(cfg.ComparisonsDir))
	assert.Equal(t, "*.sln", cfg.ProjectMarker)
	assert.Equal(t, schema.QuartilePolicy, cfg.ThresholdPolicy)
	assert.Equal(t, []float64{3, 2, 1}, cfg.DefaultThresholds)
	assert.Equal(t, schema.UniformWeighter, cfg.Weighter)
	assert.Equal(t, 0.2, cfg.ConsistencyTolerance)
	assert.Equal(t, 90*time.Second, cfg.ToolTimeout)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "lint", cfg.Tools[0].Name)
	assert.Equal(t, []string{"run", "{{project}}"}, cfg.Tools[0].Args)
}

func TestProcessAndValidate_ProjectIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0o644))

	input := validInput()
	input.PathStr = file
	assert.Error(t, ProcessAndValidate(&Config{}, input))
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/tqi", false},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"mysql no tcp", schema.MySQLBackend, "user:pass@localhost/tqi", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 user=u password=p dbname=tqi", false},
		{"postgres no host", schema.PostgreSQLBackend, "dbname=tqi", true},
		{"postgres no dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		Percentiles: []float64{10, 90},
		Tools:       []ToolSpec{{Name: "lint", Command: "lint", Args: []string{"a"}}},
	}
	clone := cfg.CloneWithProject("/tmp/other")
	clone.Percentiles[0] = 50
	clone.Tools[0].Args[0] = "b"

	assert.Equal(t, 10.0, cfg.Percentiles[0])
	assert.Equal(t, "a", cfg.Tools[0].Args[0])
	assert.Equal(t, "/tmp/other", clone.ProjectPath)
	assert.False(t, clone.Batch)
}

func TestConfigParams(t *testing.T) {
	cfg := &Config{
		ModelPath:   "/m.json",
		Workers:     2,
		ToolTimeout: time.Minute,
		Tools:       []ToolSpec{{Name: "lint"}},
		LOCTool:     true,
	}
	params := cfg.ConfigParams()
	assert.Equal(t, "/m.json", params["model"])
	assert.Equal(t, []string{"lint", "loc"}, params["tools"])
	assert.Equal(t, "1m0s", params["tool_timeout"])
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	require.NoError(t, ProcessProfilingConfig(profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(profile, "tqi"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "tqi", profile.Prefix)
}
