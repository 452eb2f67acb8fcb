package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConverterConfig holds the settings of a conversion run. Every field is
// optional; the Get* methods supply the defaults for fields left unset, so
// partial configs are safe.
type ConverterConfig struct {
	// Input
	TreeName     *string `json:"tree_name,omitempty"`
	BatchSize    *int    `json:"batch_size,omitempty"`
	AllowMissing *bool   `json:"allow_missing,omitempty"`

	// Outputs (empty disables the output)
	DBPath    *string `json:"db_path,omitempty"`
	PlotDir   *string `json:"plot_dir,omitempty"`
	ChartPath *string `json:"chart_path,omitempty"`

	Verbose *bool `json:"verbose,omitempty"`
}

// Defaults for unset fields.
const (
	DefaultTreeName  = "teventadc"
	DefaultBatchSize = 1000
	maxBatchSize     = 1_000_000
)

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// EmptyConverterConfig returns a ConverterConfig with all fields unset.
func EmptyConverterConfig() *ConverterConfig {
	return &ConverterConfig{}
}

// DefaultConverterConfig returns a config with every input field populated
// with its default.
func DefaultConverterConfig() *ConverterConfig {
	return &ConverterConfig{
		TreeName:     ptrString(DefaultTreeName),
		BatchSize:    ptrInt(DefaultBatchSize),
		AllowMissing: ptrBool(true),
		Verbose:      ptrBool(false),
	}
}

// LoadConverterConfig loads a ConverterConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadConverterConfig(path string) (*ConverterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConverterConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ConverterConfig) Validate() error {
	if c.TreeName != nil && *c.TreeName == "" {
		return fmt.Errorf("tree_name must not be empty")
	}

	if c.BatchSize != nil {
		if *c.BatchSize <= 0 || *c.BatchSize > maxBatchSize {
			return fmt.Errorf("batch_size must be between 1 and %d, got %d", maxBatchSize, *c.BatchSize)
		}
	}

	if c.ChartPath != nil && *c.ChartPath != "" {
		if ext := filepath.Ext(*c.ChartPath); ext != ".html" {
			return fmt.Errorf("chart_path must have .html extension, got %q", ext)
		}
	}

	return nil
}

// GetTreeName returns the tree_name value or the default.
func (c *ConverterConfig) GetTreeName() string {
	if c.TreeName == nil || *c.TreeName == "" {
		return DefaultTreeName
	}
	return *c.TreeName
}

// GetBatchSize returns the batch_size value or the default.
func (c *ConverterConfig) GetBatchSize() int {
	if c.BatchSize == nil || *c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return *c.BatchSize
}

// GetAllowMissing returns the allow_missing value or the default.
func (c *ConverterConfig) GetAllowMissing() bool {
	if c.AllowMissing == nil {
		return true // default: skip files without the event tree
	}
	return *c.AllowMissing
}

// GetDBPath returns the db_path value, empty when persistence is disabled.
func (c *ConverterConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPlotDir returns the plot_dir value, empty when PNG plots are disabled.
func (c *ConverterConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetChartPath returns the chart_path value, empty when the HTML chart is disabled.
func (c *ConverterConfig) GetChartPath() string {
	if c.ChartPath == nil {
		return ""
	}
	return *c.ChartPath
}

// GetVerbose returns the verbose value or the default.
func (c *ConverterConfig) GetVerbose() bool {
	if c.Verbose == nil {
		return false
	}
	return *c.Verbose
}

// Override sets every non-nil field of other on c. Used to layer command-line
// flags over a config file.
func (c *ConverterConfig) Override(other *ConverterConfig) {
	if other == nil {
		return
	}
	if other.TreeName != nil {
		c.TreeName = other.TreeName
	}
	if other.BatchSize != nil {
		c.BatchSize = other.BatchSize
	}
	if other.AllowMissing != nil {
		c.AllowMissing = other.AllowMissing
	}
	if other.DBPath != nil {
		c.DBPath = other.DBPath
	}
	if other.PlotDir != nil {
		c.PlotDir = other.PlotDir
	}
	if other.ChartPath != nil {
		c.ChartPath = other.ChartPath
	}
	if other.Verbose != nil {
		c.Verbose = other.Verbose
	}
}
