package schema

// Custom string types for type safety.
type (
	// BreakdownKey represents keys used in risk breakdowns.
	BreakdownKey string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for prediction history.
	DatabaseBackend string

	// ModelBackend represents the runtime used to evaluate the stage classifier.
	ModelBackend string
)

// Breakdown keys used in the risk scoring logic.
const (
	BreakdownCA199   BreakdownKey = "ca19_9"  // tumor burden
	BreakdownNLR     BreakdownKey = "nlr"     // inflammation
	BreakdownAge     BreakdownKey = "age"     // age factor
	BreakdownAlbumin BreakdownKey = "albumin" // nutrition (protective)
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All classifier runtimes supported.
const (
	NativeModel ModelBackend = "native" // default
	ONNXModel   ModelBackend = "onnx"
)

// Lab panel field names, in the frozen order the classifier was trained on.
const (
	FieldCA199          = "CA19_9"
	FieldTotalBilirubin = "Total_Bilirubin"
	FieldALP            = "ALP"
	FieldAlbumin        = "Albumin"
	FieldNLR            = "NLR"
	FieldAge            = "Age"
)

// FeatureNames is the classifier feature order. Reordering it silently
// corrupts predictions, so artifacts are checked against it at load time.
var FeatureNames = [NumFeatures]string{
	FieldCA199,
	FieldTotalBilirubin,
	FieldALP,
	FieldAlbumin,
	FieldNLR,
	FieldAge,
}

// NumFeatures is the length of the classifier feature vector.
const NumFeatures = 6

// MaxAge is the largest Age accepted as a physical measurement.
const MaxAge = 150

// RiskTerms lists the breakdown keys in display order.
var RiskTerms = []BreakdownKey{BreakdownCA199, BreakdownNLR, BreakdownAge, BreakdownAlbumin}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidModelBackends lists all valid classifier runtimes.
var ValidModelBackends = map[ModelBackend]struct{}{
	NativeModel: {},
	ONNXModel:   {},
}
