// Package config provides configuration management for ranking jobs
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/paveg/movers/internal/ranking"
	"github.com/paveg/movers/internal/table"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration of one movers run
type Config struct {
	WorkerPoolSize    int    `json:"worker_pool_size" yaml:"worker_pool_size"`     // Number of jobs run at once (0 = auto-detect)
	DefaultLimit      int    `json:"default_limit" yaml:"default_limit"`           // Top-N limit for jobs that set none
	OutputDir         string `json:"output_dir" yaml:"output_dir"`                 // Base directory for relative output paths
	VerboseLogging    bool   `json:"verbose_logging" yaml:"verbose_logging"`       // Enable debug logging
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Enable per-job metrics
	LogDir            string `json:"log_dir" yaml:"log_dir"`                       // Directory for the rotating log file ("" = console only)

	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Source describes where a job reads its rows from
type Source struct {
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // csv, json, jsonl, parquet or sql
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"` // sqlite or mysql
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Query  string `json:"query,omitempty" yaml:"query,omitempty"`
}

// ID identifies a source so jobs sharing one load it once
func (s Source) ID() string {
	if s.Format == FormatSQL {
		return s.Driver + "|" + s.DSN + "|" + s.Query
	}
	return s.Format + "|" + s.Path
}

// Output describes how a job's ranking is written.
//
// LatestField and ChangeField are templates: {axis} expands to the axis
// value, {column} to the unpivoted source column of that axis value,
// {baseline} and {current} to the period identifiers and {metric} to the
// ranked metric.
type Output struct {
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
	LatestField     string `json:"latest_field,omitempty" yaml:"latest_field,omitempty"`
	ChangeField     string `json:"change_field,omitempty" yaml:"change_field,omitempty"`
	LatestPrecision *int   `json:"latest_precision,omitempty" yaml:"latest_precision,omitempty"`
	// Snapshot writes the job's input rows, after unpivot, to a Parquet file
	// when set.
	Snapshot string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// Job is one configured ranking run
type Job struct {
	Name        string                `json:"name" yaml:"name"`
	Source      Source                `json:"source" yaml:"source"`
	PeriodField string                `json:"period_field" yaml:"period_field"`
	Baseline    string                `json:"baseline" yaml:"baseline"`
	Current     string                `json:"current" yaml:"current"`
	Axis        string                `json:"axis,omitempty" yaml:"axis,omitempty"`
	AxisValues  []string              `json:"axis_values,omitempty" yaml:"axis_values,omitempty"`
	SortAxis    bool                  `json:"sort_axis,omitempty" yaml:"sort_axis,omitempty"`
	Unpivot     []table.UnpivotColumn `json:"unpivot,omitempty" yaml:"unpivot,omitempty"`
	GroupBy     []string              `json:"group_by" yaml:"group_by"`
	Metric      string                `json:"metric" yaml:"metric"`
	Ratio       *ranking.Ratio        `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Limit       int                   `json:"limit,omitempty" yaml:"limit,omitempty"`
	Output      Output                `json:"output" yaml:"output"`
}

// Source formats
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
	FormatSQL     = "sql"
)

// Default configuration values
const (
	DefaultLimit       = 10
	DefaultLatestField = "current"
	DefaultChangeField = "change"
	DefaultOutputDir   = "."
)

var (
	knownFormats = []string{FormatCSV, FormatJSON, FormatJSONL, FormatParquet, FormatSQL}
	knownDrivers = []string{"sqlite", "mysql"}
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		WorkerPoolSize:    0, // Auto-detect
		DefaultLimit:      DefaultLimit,
		OutputDir:         DefaultOutputDir,
		VerboseLogging:    false,
		MetricsCollection: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}

	if c.DefaultLimit <= 0 {
		return fmt.Errorf("DefaultLimit must be positive, got %d", c.DefaultLimit)
	}

	names := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("job %d (%s): %w", i, job.Name, err)
		}
		if names[job.Name] {
			return fmt.Errorf("job name %q used twice", job.Name)
		}
		names[job.Name] = true
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for
// zero values, including every job
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.DefaultLimit == 0 {
		c.DefaultLimit = defaults.DefaultLimit
	}
	if c.OutputDir == "" {
		c.OutputDir = defaults.OutputDir
	}

	jobs := make([]Job, len(c.Jobs))
	for i, job := range c.Jobs {
		jobs[i] = job.withDefaults(c)
	}
	c.Jobs = jobs

	return c
}

// Workers resolves WorkerPoolSize, using the CPU count for 0
func (c Config) Workers() int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	return runtime.NumCPU()
}

func (j Job) withDefaults(c Config) Job {
	if j.Limit == 0 {
		j.Limit = c.DefaultLimit
	}
	if j.Source.Format == "" {
		j.Source.Format = FormatFromPath(j.Source.Path)
		if j.Source.Query != "" {
			j.Source.Format = FormatSQL
		}
	}
	if j.Output.LatestField == "" {
		j.Output.LatestField = DefaultLatestField
	}
	if j.Output.ChangeField == "" {
		j.Output.ChangeField = DefaultChangeField
	}
	return j
}

// OutputPath resolves a job's output path against OutputDir.
// It returns "" when the job writes no output.
func (c Config) OutputPath(j Job) string {
	if j.Output.Path == "" || filepath.IsAbs(j.Output.Path) || c.OutputDir == "" {
		return j.Output.Path
	}
	return filepath.Join(c.OutputDir, j.Output.Path)
}

// SnapshotPath resolves a job's Parquet snapshot path against OutputDir.
func (c Config) SnapshotPath(j Job) string {
	if j.Output.Snapshot == "" || filepath.IsAbs(j.Output.Snapshot) || c.OutputDir == "" {
		return j.Output.Snapshot
	}
	return filepath.Join(c.OutputDir, j.Output.Snapshot)
}

// FormatFromPath guesses a source format from a file extension
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".parquet":
		return FormatParquet
	default:
		return ""
	}
}

// Validate checks the job's static shape. Field existence is checked by the
// engine once the source is loaded.
func (j Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if j.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", j.Limit)
	}
	if j.PeriodField == "" || j.Baseline == "" || j.Current == "" {
		return fmt.Errorf("period_field, baseline and current are required")
	}
	if len(j.GroupBy) == 0 {
		return fmt.Errorf("group_by needs at least one field")
	}
	if j.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	if len(j.Unpivot) > 0 && j.Axis == "" {
		return fmt.Errorf("unpivot needs an axis field to hold its labels")
	}
	if j.Ratio != nil && (j.Ratio.Numerator == "" || j.Ratio.Denominator == "") {
		return fmt.Errorf("ratio needs numerator and denominator")
	}
	if p := j.Output.LatestPrecision; p != nil && *p < 0 {
		return fmt.Errorf("latest_precision must be non-negative, got %d", *p)
	}

	switch {
	case !slices.Contains(knownFormats, j.Source.Format):
		return fmt.Errorf("unsupported source format %q", j.Source.Format)
	case j.Source.Format == FormatSQL:
		if !slices.Contains(knownDrivers, j.Source.Driver) {
			return fmt.Errorf("unsupported SQL driver %q", j.Source.Driver)
		}
		if j.Source.DSN == "" || j.Source.Query == "" {
			return fmt.Errorf("sql sources need dsn and query")
		}
	case j.Source.Path == "":
		return fmt.Errorf("source path is required")
	}

	return nil
}

// Query converts the job into an engine query. With unpivot, the axis field
// holds the labels and the metric field the stacked values.
func (j Job) Query() ranking.Query {
	return ranking.Query{
		PeriodField: j.PeriodField,
		Baseline:    j.Baseline,
		Current:     j.Current,
		Axis:        j.Axis,
		AxisValues:  j.axisValues(),
		SortAxis:    j.SortAxis,
		GroupBy:     slices.Clone(j.GroupBy),
		Metric:      j.Metric,
		Ratio:       j.Ratio,
		Limit:       j.Limit,
	}
}

// axisValues defaults to the unpivot labels so the axis keeps their order
func (j Job) axisValues() []string {
	if len(j.AxisValues) > 0 {
		return slices.Clone(j.AxisValues)
	}
	if len(j.Unpivot) == 0 {
		return nil
	}
	labels := make([]string, len(j.Unpivot))
	for i, u := range j.Unpivot {
		labels[i] = u.Label
	}
	return labels
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromYAML loads configuration from YAML data
func LoadFromYAML(data []byte) (Config, error) {
	config := NewConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON, YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))

	var config Config
	switch ext {
	case ".json":
		config, err = LoadFromJSON(data)
	case ".yaml", ".yml":
		config, err = LoadFromYAML(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default
// ./.env) into the process environment. Missing files are ignored and
// variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv overrides the run-level settings of config with MOVERS_*
// environment variables. Unparseable values are ignored.
func LoadFromEnv(config Config) Config {
	if val := os.Getenv("MOVERS_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("MOVERS_DEFAULT_LIMIT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.DefaultLimit = parsed
		}
	}

	if val := os.Getenv("MOVERS_OUTPUT_DIR"); val != "" {
		config.OutputDir = val
	}

	if val := os.Getenv("MOVERS_LOG_DIR"); val != "" {
		config.LogDir = val
	}

	if val := os.Getenv("MOVERS_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv("MOVERS_METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}
