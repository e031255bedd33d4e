// Package config holds the application configuration shared by the CLI
// commands and the HTTP server, loaded from files, environment variables
// and flags.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/platekit/internal/detector"
	"github.com/MeKo-Tech/platekit/internal/models"
	"github.com/MeKo-Tech/platekit/internal/pipeline"
	"github.com/MeKo-Tech/platekit/internal/recognizer"
)

// Config represents the complete configuration for the platekit application.
// It covers all commands (image, decode, serve) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	GPU      GPUConfig      `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// PipelineConfig contains plate pipeline settings.
type PipelineConfig struct {
	Detector   DetectorConfig   `mapstructure:"detector" yaml:"detector" json:"detector"`
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	Parallel   ParallelConfig   `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// DetectorConfig contains plate detection settings.
type DetectorConfig struct {
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InputSize     int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	ConfThreshold float64 `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	NMSThreshold  float64 `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	NumClasses    int     `mapstructure:"num_classes" yaml:"num_classes" json:"num_classes"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// RecognizerConfig contains plate text recognition settings.
type RecognizerConfig struct {
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	CharsetPath   string  `mapstructure:"charset_path" yaml:"charset_path" json:"charset_path"`
	Method        string  `mapstructure:"method" yaml:"method" json:"method"`
	BeamWidth     int     `mapstructure:"beam_width" yaml:"beam_width" json:"beam_width"`
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	MinLength     int     `mapstructure:"min_length" yaml:"min_length" json:"min_length"`
	MaxLength     int     `mapstructure:"max_length" yaml:"max_length" json:"max_length"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// ParallelConfig contains per-frame region worker settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"`
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.GetModelsDir(""),
		LogLevel:  "info",
		Verbose:   false,
		Pipeline: PipelineConfig{
			Detector:   defaultDetectorConfig(),
			Recognizer: defaultRecognizerConfig(),
			Parallel:   defaultParallelConfig(),
		},
		Output: OutputConfig{
			Format:              "text",
			ConfidencePrecision: 2,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		GPU: GPUConfig{
			Enabled:     false,
			Device:      0,
			MemoryLimit: "auto",
		},
	}
}

func defaultDetectorConfig() DetectorConfig {
	cfg := detector.DefaultConfig()
	return DetectorConfig{
		InputSize:     cfg.InputSize,
		ConfThreshold: cfg.ConfThreshold,
		NMSThreshold:  cfg.NMSThreshold,
		NumClasses:    cfg.NumClasses,
		NumThreads:    cfg.NumThreads,
	}
}

func defaultRecognizerConfig() RecognizerConfig {
	cfg := recognizer.DefaultConfig()
	return RecognizerConfig{
		Method:        cfg.Method,
		BeamWidth:     cfg.BeamWidth,
		MinConfidence: cfg.MinConfidence,
		MinLength:     cfg.MinLength,
		MaxLength:     cfg.MaxLength,
		NumThreads:    cfg.NumThreads,
	}
}

func defaultParallelConfig() ParallelConfig {
	cfg := pipeline.DefaultParallelConfig()
	return ParallelConfig{MaxWorkers: cfg.MaxWorkers}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(c.Pipeline.Detector.ConfThreshold, "detector.conf_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Detector.NMSThreshold, "detector.nms_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Recognizer.MinConfidence, "recognizer.min_confidence"); err != nil {
		return err
	}

	if c.Pipeline.Detector.NumClasses < 1 {
		return fmt.Errorf("invalid detector num_classes: %d (must be at least 1)", c.Pipeline.Detector.NumClasses)
	}

	validMethods := []string{"greedy", "beam_search"}
	if c.Pipeline.Recognizer.Method != "" && !contains(validMethods, c.Pipeline.Recognizer.Method) {
		return fmt.Errorf("invalid decode method: %s (must be one of: %s)",
			c.Pipeline.Recognizer.Method, strings.Join(validMethods, ", "))
	}
	if c.Pipeline.Recognizer.Method == "beam_search" && c.Pipeline.Recognizer.BeamWidth < 2 {
		return fmt.Errorf("invalid beam width: %d (must be at least 2)", c.Pipeline.Recognizer.BeamWidth)
	}
	if c.Pipeline.Recognizer.MinLength < 1 {
		return fmt.Errorf("invalid min plate length: %d (must be positive)", c.Pipeline.Recognizer.MinLength)
	}
	if c.Pipeline.Recognizer.MaxLength < c.Pipeline.Recognizer.MinLength {
		return fmt.Errorf("invalid max plate length: %d (must be at least min length %d)",
			c.Pipeline.Recognizer.MaxLength, c.Pipeline.Recognizer.MinLength)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Pipeline.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Pipeline.Parallel.MaxWorkers)
	}

	if c.GPU.MemoryLimit != "auto" && c.GPU.MemoryLimit != "" {
		if err := validateMemoryLimit(c.GPU.MemoryLimit); err != nil {
			return fmt.Errorf("invalid GPU memory limit: %w", err)
		}
	}

	return nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.ModelsDir = c.ModelsDir
	cfg.Detector = c.toDetectorConfig()
	cfg.Recognizer = c.toRecognizerConfig()
	cfg.Parallel = pipeline.ParallelConfig{MaxWorkers: c.Pipeline.Parallel.MaxWorkers}
	cfg.Detector.UpdateModelPath(c.ModelsDir)
	cfg.Recognizer.UpdateModelPath(c.ModelsDir)
	if c.Pipeline.Detector.ModelPath != "" {
		cfg.Detector.ModelPath = c.Pipeline.Detector.ModelPath
	}
	if c.Pipeline.Recognizer.ModelPath != "" {
		cfg.Recognizer.ModelPath = c.Pipeline.Recognizer.ModelPath
	}
	if c.Pipeline.Recognizer.CharsetPath != "" {
		cfg.Recognizer.CharsetPath = c.Pipeline.Recognizer.CharsetPath
	}
	return cfg
}

func (c *Config) toDetectorConfig() detector.Config {
	cfg := detector.DefaultConfig()
	if c.Pipeline.Detector.InputSize > 0 {
		cfg.InputSize = c.Pipeline.Detector.InputSize
	}
	cfg.ConfThreshold = c.Pipeline.Detector.ConfThreshold
	cfg.NMSThreshold = c.Pipeline.Detector.NMSThreshold
	cfg.NumClasses = c.Pipeline.Detector.NumClasses
	cfg.NumThreads = c.Pipeline.Detector.NumThreads
	cfg.GPU.UseGPU = c.GPU.Enabled
	cfg.GPU.DeviceID = c.GPU.Device
	return cfg
}

func (c *Config) toRecognizerConfig() recognizer.Config {
	cfg := recognizer.DefaultConfig()
	if c.Pipeline.Recognizer.Method != "" {
		cfg.Method = c.Pipeline.Recognizer.Method
	}
	if c.Pipeline.Recognizer.BeamWidth > 0 {
		cfg.BeamWidth = c.Pipeline.Recognizer.BeamWidth
	}
	cfg.MinConfidence = c.Pipeline.Recognizer.MinConfidence
	if c.Pipeline.Recognizer.MinLength > 0 {
		cfg.MinLength = c.Pipeline.Recognizer.MinLength
	}
	if c.Pipeline.Recognizer.MaxLength > 0 {
		cfg.MaxLength = c.Pipeline.Recognizer.MaxLength
	}
	cfg.NumThreads = c.Pipeline.Recognizer.NumThreads
	cfg.GPU.UseGPU = c.GPU.Enabled
	cfg.GPU.DeviceID = c.GPU.Device
	return cfg
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// validateMemoryLimit validates GPU memory limit format (e.g., "1GB", "512MB").
func validateMemoryLimit(limit string) error {
	if limit == "" || limit == "auto" {
		return nil
	}

	// Longest suffix first, so "512MB" is not misparsed as "512M"+"B".
	validUnits := []string{"GB", "MB", "KB", "B"}
	for _, unit := range validUnits {
		if strings.HasSuffix(strings.ToUpper(limit), unit) {
			numStr := strings.TrimSuffix(strings.ToUpper(limit), unit)
			if _, err := strconv.ParseFloat(numStr, 64); err != nil {
				return fmt.Errorf("invalid number in memory limit: %s", limit)
			}
			return nil
		}
	}

	return fmt.Errorf("memory limit must end with one of: %s", strings.Join(validUnits, ", "))
}
