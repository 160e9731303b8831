package contract

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pancstage/pancstage/schema"
)

// Default values for configuration.
const (
	DefaultPrecision  = 1
	DefaultListenAddr = ":8080"
	MaxBatchLimit     = 100000
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// TermRaw holds the optional overrides for a single risk term.
// Use float64 pointers so only provided values override the defaults.
type TermRaw struct {
	Weight *float64 `mapstructure:"weight"`
	Min    *float64 `mapstructure:"min"`
	Max    *float64 `mapstructure:"max"`
}

// BaseSurvivalRaw holds optional base survival overrides in months.
type BaseSurvivalRaw struct {
	Stage1 *float64 `mapstructure:"stage_1"`
	Stage2 *float64 `mapstructure:"stage_2"`
	Stage3 *float64 `mapstructure:"stage_3"`
}

// ProfileRawInput holds all clinical profile overrides from the YAML config file.
type ProfileRawInput struct {
	CA199               *TermRaw        `mapstructure:"ca19_9"`
	NLR                 *TermRaw        `mapstructure:"nlr"`
	Age                 *TermRaw        `mapstructure:"age"`
	Albumin             *TermRaw        `mapstructure:"albumin"`
	SurvivalDiscount    *float64        `mapstructure:"survival_discount"`
	YearThresholdMonths *float64        `mapstructure:"year_threshold_months"`
	BaseSurvivalMonths  BaseSurvivalRaw `mapstructure:"base_survival_months"`
}

// Config holds the runtime configuration for estimation.
// This struct remains the "final, validated" config.
type Config struct {
	ModelBackend schema.ModelBackend
	ModelPath    string // Empty selects the embedded reference artifact
	EncoderPath  string // Empty selects the embedded reference decoder
	ONNXLibrary  string // Path to the onnxruntime shared library

	Workers    int
	Explain    bool
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Rank       bool // Sort batch output by descending risk
	Limit      int  // Rows to show when ranking (0 = all)
	Width      int  // Terminal width override (0 = auto-detect)

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	ListenAddr      string
	SummarizerModel string

	// Profile is the default clinical profile with config file overrides applied.
	Profile *schema.ClinicalProfile

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	ModelBackend   string `mapstructure:"model-backend"`
	ModelPath      string `mapstructure:"model-path"`
	EncoderPath    string `mapstructure:"encoder-path"`
	ONNXLibrary    string `mapstructure:"onnx-library"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	Emoji          string `mapstructure:"emoji"`
	Color          string `mapstructure:"color"`

	// --- Fields from predictCmd.Flags() ---
	Explain bool `mapstructure:"explain"`

	// --- Fields from batchCmd.Flags() ---
	Rank  bool `mapstructure:"rank"`
	Limit int  `mapstructure:"limit"`

	// --- Fields from serveCmd.Flags() ---
	Listen string `mapstructure:"listen"`

	// --- Fields from reportCmd.Flags() ---
	SummarizerModel string `mapstructure:"summarizer-model"`

	// --- Clinical profile overrides from config file ---
	Profile ProfileRawInput `mapstructure:"profile"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateModelConfig(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	return processProfile(cfg, input)
}

// RunParams returns the settings recorded alongside each history run.
func (c *Config) RunParams() map[string]any {
	return map[string]any{
		"model_backend": string(c.ModelBackend),
		"model_path":    c.ModelPath,
		"encoder_path":  c.EncoderPath,
		"workers":       c.Workers,
	}
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
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

// validateSimpleInputs processes and validates the presentation and concurrency fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Explain = input.Explain
	cfg.Rank = input.Rank
	cfg.Width = input.Width
	cfg.SummarizerModel = input.SummarizerModel

	cfg.ListenAddr = input.Listen
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Limit < 0 || input.Limit > MaxBatchLimit {
		return fmt.Errorf("limit must be between 0 and %d (received %d)", MaxBatchLimit, input.Limit)
	}
	cfg.Limit = input.Limit

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}
	return nil
}

// validateModelConfig checks the classifier runtime and its artifact paths.
func validateModelConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.ModelBackend = schema.ModelBackend(strings.ToLower(input.ModelBackend))
	if _, ok := schema.ValidModelBackends[cfg.ModelBackend]; !ok {
		return fmt.Errorf("invalid model backend '%s'. must be native, onnx", input.ModelBackend)
	}
	cfg.ModelPath = strings.TrimSpace(input.ModelPath)
	cfg.EncoderPath = strings.TrimSpace(input.EncoderPath)
	cfg.ONNXLibrary = strings.TrimSpace(input.ONNXLibrary)

	if cfg.ModelBackend == schema.ONNXModel && cfg.ModelPath == "" {
		return fmt.Errorf("model-path is required when using the %s backend", cfg.ModelBackend)
	}
	return nil
}

// validateBackendConfig validates the history store configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// ApplyProfileOverrides returns a copy of base with every provided override applied.
func ApplyProfileOverrides(base *schema.ClinicalProfile, raw ProfileRawInput) *schema.ClinicalProfile {
	profile := base.Clone()

	terms := map[schema.BreakdownKey]*TermRaw{
		schema.BreakdownCA199:   raw.CA199,
		schema.BreakdownNLR:     raw.NLR,
		schema.BreakdownAge:     raw.Age,
		schema.BreakdownAlbumin: raw.Albumin,
	}
	for key, term := range terms {
		if term == nil {
			continue
		}
		if term.Weight != nil {
			profile.Weights[key] = *term.Weight
		}
		r := profile.Ranges[key]
		if term.Min != nil {
			r.Min = *term.Min
		}
		if term.Max != nil {
			r.Max = *term.Max
		}
		profile.Ranges[key] = r
	}

	if raw.SurvivalDiscount != nil {
		profile.SurvivalDiscount = *raw.SurvivalDiscount
	}
	if raw.YearThresholdMonths != nil {
		profile.YearThresholdMonths = *raw.YearThresholdMonths
	}

	bases := map[schema.Stage]*float64{
		schema.Stage1: raw.BaseSurvivalMonths.Stage1,
		schema.Stage2: raw.BaseSurvivalMonths.Stage2,
		schema.Stage3: raw.BaseSurvivalMonths.Stage3,
	}
	for stage, months := range bases {
		if months != nil {
			v := *months
			profile.BaseSurvivalMonths[stage] = &v
		}
	}

	return profile
}

// processProfile builds the clinical profile from defaults plus overrides and validates it.
func processProfile(cfg *Config, input *ConfigRawInput) error {
	profile := ApplyProfileOverrides(schema.DefaultClinicalProfile(), input.Profile)
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid clinical profile: %w", err)
	}
	cfg.Profile = profile
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
