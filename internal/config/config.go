package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Samples     SamplesConfig     `mapstructure:"samples"`
	Export      ExportConfig      `mapstructure:"export"`
	Chart       ChartConfig       `mapstructure:"chart"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CalibrationConfig holds curve building defaults
type CalibrationConfig struct {
	DefaultMethod string `mapstructure:"default_method"`
}

// SamplesConfig controls generated sample patients and the sample data cache
type SamplesConfig struct {
	PatientCount int           `mapstructure:"patient_count"`
	Seed         uint64        `mapstructure:"seed"`
	ODMin        float64       `mapstructure:"od_min"`
	ODMax        float64       `mapstructure:"od_max"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// ExportConfig holds export bundle configuration
type ExportConfig struct {
	Format    string   `mapstructure:"format"`
	Encoding  string   `mapstructure:"encoding"`
	OutputDir string   `mapstructure:"output_dir"`
	Sections  []string `mapstructure:"sections"`
}

// ChartConfig holds chart rendering configuration
type ChartConfig struct {
	Width        float64 `mapstructure:"width"`
	Height       float64 `mapstructure:"height"`
	Format       string  `mapstructure:"format"`
	CurveSamples int     `mapstructure:"curve_samples"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("LABCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Calibration defaults
	v.SetDefault("calibration.default_method", calibration.DefaultMethod.String())

	// Sample data defaults
	v.SetDefault("samples.patient_count", 10)
	v.SetDefault("samples.seed", 42)
	v.SetDefault("samples.od_min", 0.1)
	v.SetDefault("samples.od_max", 0.6)
	v.SetDefault("samples.cache_ttl", "1h")

	// Export defaults
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.encoding", "utf-8-sig")
	v.SetDefault("export.output_dir", "./export")
	v.SetDefault("export.sections", []string{"calibration", "patients", "results"})

	// Chart defaults
	v.SetDefault("chart.width", 8.0)
	v.SetDefault("chart.height", 5.0)
	v.SetDefault("chart.format", "png")
	v.SetDefault("chart.curve_samples", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid. Enumerated
// names are lower-cased first, so LABCAL_EXPORT_FORMAT=XLSX is accepted.
func (c *Config) Validate() error {
	c.normalize()

	// Validate Calibration config
	if _, err := calibration.ParseMethod(c.Calibration.DefaultMethod); err != nil {
		return fmt.Errorf("calibration.default_method must be one of: linear, cubic, spline")
	}

	// Validate Samples config
	if c.Samples.PatientCount < 1 || c.Samples.PatientCount > 1000 {
		return fmt.Errorf("samples.patient_count must be between 1 and 1000")
	}
	if c.Samples.ODMin < 0 {
		return fmt.Errorf("samples.od_min must not be negative")
	}
	if c.Samples.ODMax <= c.Samples.ODMin {
		return fmt.Errorf("samples.od_max must be greater than samples.od_min")
	}
	if c.Samples.CacheTTL < 0 {
		return fmt.Errorf("samples.cache_ttl must not be negative")
	}

	// Validate Export config
	validFormats := map[string]bool{"csv": true, "xlsx": true, "json": true, "yaml": true}
	if !validFormats[c.Export.Format] {
		return fmt.Errorf("export.format must be one of: csv, xlsx, json, yaml")
	}
	validEncodings := map[string]bool{"utf-8": true, "utf-8-sig": true, "cp1251": true}
	if !validEncodings[c.Export.Encoding] {
		return fmt.Errorf("export.encoding must be one of: utf-8, utf-8-sig, cp1251")
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required")
	}
	validSections := map[string]bool{"calibration": true, "patients": true, "results": true, "statistics": true}
	if len(c.Export.Sections) == 0 {
		return fmt.Errorf("export.sections must contain at least one section")
	}
	for _, s := range c.Export.Sections {
		if !validSections[s] {
			return fmt.Errorf("export.sections entries must be one of: calibration, patients, results, statistics")
		}
	}

	// Validate Chart config
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart.width and chart.height must be positive")
	}
	validChartFormats := map[string]bool{"png": true, "svg": true}
	if !validChartFormats[c.Chart.Format] {
		return fmt.Errorf("chart.format must be one of: png, svg")
	}
	if c.Chart.CurveSamples < 2 {
		return fmt.Errorf("chart.curve_samples must be at least 2")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// normalize lower-cases and trims every enumerated value.
func (c *Config) normalize() {
	for _, v := range []*string{
		&c.Calibration.DefaultMethod,
		&c.Export.Format,
		&c.Export.Encoding,
		&c.Chart.Format,
		&c.Logging.Level,
		&c.Logging.Format,
	} {
		*v = strings.ToLower(strings.TrimSpace(*v))
	}
	for i, s := range c.Export.Sections {
		c.Export.Sections[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// Method returns the parsed default calibration method.
func (c *Config) Method() calibration.Method {
	m, err := calibration.ParseMethod(c.Calibration.DefaultMethod)
	if err != nil {
		return calibration.DefaultMethod
	}
	return m
}
