package schema

// Custom string types for type safety.
type (
	// NodeKind represents the layer a node occupies in the quality model.
	NodeKind string

	// EvalStrategy represents how a diagnostic collapses its findings into one number.
	EvalStrategy string

	// ThresholdPolicy represents the statistic used to derive measure thresholds.
	ThresholdPolicy string

	// WeighterKind represents the strategy used to elicit aggregation weights.
	WeighterKind string

	// WarningKind represents the category of a non-fatal calibration or evaluation warning.
	WarningKind string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string
)

// All node kinds supported, leaf first.
const (
	MeasureKind       NodeKind = "measure"
	ProductFactorKind NodeKind = "product_factor"
	QualityAspectKind NodeKind = "quality_aspect"
	TQIKind           NodeKind = "tqi"
)

// All evaluation strategies supported.
const (
	CountStrategy EvalStrategy = "count" // default
	SumStrategy   EvalStrategy = "sum"
	MaxStrategy   EvalStrategy = "max"
	MeanStrategy  EvalStrategy = "mean"
)

// All threshold policies supported.
const (
	PercentilePolicy ThresholdPolicy = "percentile" // default
	MinMaxPolicy     ThresholdPolicy = "minmax"
	QuartilePolicy   ThresholdPolicy = "quartile"
)

// All weighters supported.
const (
	AHPWeighter     WeighterKind = "ahp" // default
	UniformWeighter WeighterKind = "uniform"
)

// All warning kinds emitted during calibration and evaluation.
const (
	ZeroSampleWarning        WarningKind = "zero_sample_measure"
	InconsistentWarning      WarningKind = "inconsistent_comparison"
	MissingMatrixWarning     WarningKind = "missing_comparison"
	TrimmedNodeWarning       WarningKind = "trimmed_node"
	ToolFailureWarning       WarningKind = "tool_failure"
	MissingNormalizerWarning WarningKind = "missing_normalizer"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// LOCDiagnostic is the diagnostic id emitted by the built-in line counter.
const LOCDiagnostic = "loc"

// ValidNodeKinds lists all valid node kinds.
var ValidNodeKinds = map[NodeKind]struct{}{
	MeasureKind:       {},
	ProductFactorKind: {},
	QualityAspectKind: {},
	TQIKind:           {},
}

// ValidEvalStrategies lists all valid evaluation strategies.
var ValidEvalStrategies = map[EvalStrategy]struct{}{
	CountStrategy: {},
	SumStrategy:   {},
	MaxStrategy:   {},
	MeanStrategy:  {},
}

// ValidThresholdPolicies lists all valid threshold policies.
var ValidThresholdPolicies = map[ThresholdPolicy]struct{}{
	PercentilePolicy: {},
	MinMaxPolicy:     {},
	QuartilePolicy:   {},
}

// ValidWeighters lists all valid weighter kinds.
var ValidWeighters = map[WeighterKind]struct{}{
	AHPWeighter:     {},
	UniformWeighter: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// KindRank orders node kinds from the root down, which is how results are listed.
func KindRank(kind NodeKind) int {
	switch kind {
	case TQIKind:
		return 0
	case QualityAspectKind:
		return 1
	case ProductFactorKind:
		return 2
	default:
		return 3
	}
}
