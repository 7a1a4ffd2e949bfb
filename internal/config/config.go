package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mcncl/domtools/internal/analyzer"
	"github.com/mcncl/domtools/internal/codec"
	"github.com/mcncl/domtools/internal/dom"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/keystats"
	"github.com/mcncl/domtools/internal/logging"
	"github.com/mcncl/domtools/internal/parser"
	"github.com/mcncl/domtools/internal/pruner"
	"github.com/mcncl/domtools/internal/splitter"
)

// configNames are searched in each directory, in order.
var configNames = []string{".domtools.yml", ".domtools.yaml", "domtools.yml", "domtools.yaml"}

// Config represents the complete configuration for domtools
type Config struct {
	Limits   LimitsConfig   `yaml:"limits"`
	Pruner   pruner.Policy  `yaml:"pruner"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Keys     KeysConfig     `yaml:"keys"`
	Split    SplitConfig    `yaml:"split"`
	Capture  CaptureConfig  `yaml:"capture"`
	Logging  logging.Config `yaml:"logging"`
}

// LimitsConfig bounds the nesting accepted by every command
type LimitsConfig struct {
	MaxDepth int `yaml:"max_depth"`
	// ParseMaxDepth bounds the nesting read by find, analyze and keys. Those
	// commands report subtrees beyond MaxDepth as truncated instead of failing.
	ParseMaxDepth int `yaml:"parse_max_depth"`
}

// ParseDepth returns the nesting accepted when reading input for the report
// commands. It never falls below MaxDepth.
func (l LimitsConfig) ParseDepth() int {
	if l.MaxDepth > l.ParseMaxDepth {
		return l.MaxDepth
	}
	return l.ParseMaxDepth
}

// AnalyzerConfig controls the analyze command
type AnalyzerConfig struct {
	LongStringThreshold int `yaml:"long_string_threshold"`
	MaxDuplicates       int `yaml:"max_duplicates"`
}

// KeysConfig controls the keys command
type KeysConfig struct {
	Samples int `yaml:"samples"`
}

// SplitConfig controls the split and join commands
type SplitConfig struct {
	MaxSizeMB float64 `yaml:"max_size_mb"`
	Field     string  `yaml:"field"`
	Prefix    string  `yaml:"prefix"`
	Codec     string  `yaml:"codec"`
}

// CaptureConfig controls the capture command
type CaptureConfig struct {
	MaxDepth       int  `yaml:"max_depth"`
	KeepWhitespace bool `yaml:"keep_whitespace"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxDepth:      parser.DefaultMaxDepth,
			ParseMaxDepth: parser.DefaultMaxDepth,
		},
		Pruner: pruner.DefaultPolicy(),
		Analyzer: AnalyzerConfig{
			LongStringThreshold: analyzer.DefaultLongStringThreshold,
			MaxDuplicates:       50,
		},
		Keys: KeysConfig{
			Samples: keystats.DefaultSamples,
		},
		Split: SplitConfig{
			MaxSizeMB: splitter.DefaultMaxSizeMB,
			Field:     splitter.DefaultField,
			Prefix:    splitter.DefaultPrefix,
			Codec:     string(codec.None),
		},
		Capture: CaptureConfig{
			MaxDepth: dom.DefaultCaptureDepth,
		},
		Logging: logging.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file. Values absent from the
// file keep their defaults; lists given in the file replace the default lists.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewArgumentError(fmt.Sprintf("failed to read config file '%s'", path), err)
	}

	cfg := NewConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.NewArgumentError(fmt.Sprintf("failed to parse config file '%s'", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return FindConfigFileFrom(currentDir)
}

// FindConfigFileFrom searches dir and its parents for a config file.
func FindConfigFileFrom(dir string) string {
	currentDir := dir
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return ""
}

// Validate checks value ranges and compiles the pruner patterns.
func (c *Config) Validate() error {
	if c.Limits.MaxDepth < 0 {
		return errors.NewArgumentError(fmt.Sprintf("limits.max_depth must not be negative, got %d", c.Limits.MaxDepth), nil)
	}
	if c.Limits.ParseMaxDepth < 0 {
		return errors.NewArgumentError(fmt.Sprintf("limits.parse_max_depth must not be negative, got %d", c.Limits.ParseMaxDepth), nil)
	}
	if c.Capture.MaxDepth < 0 {
		return errors.NewArgumentError(fmt.Sprintf("capture.max_depth must not be negative, got %d", c.Capture.MaxDepth), nil)
	}
	if c.Pruner.MaxBinaryBytes < 0 {
		return errors.NewArgumentError(fmt.Sprintf("pruner.max_binary_bytes must not be negative, got %d", c.Pruner.MaxBinaryBytes), nil)
	}
	if c.Analyzer.LongStringThreshold < 0 || c.Analyzer.MaxDuplicates < 0 {
		return errors.NewArgumentError("analyzer thresholds must not be negative", nil)
	}
	if c.Keys.Samples < 0 {
		return errors.NewArgumentError(fmt.Sprintf("keys.samples must not be negative, got %d", c.Keys.Samples), nil)
	}
	if c.Split.MaxSizeMB <= 0 {
		return errors.NewArgumentError(fmt.Sprintf("split.max_size_mb must be positive, got %g", c.Split.MaxSizeMB), nil)
	}
	if _, err := codec.Parse(c.Split.Codec); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if _, err := pruner.New(c.Pruner, pruner.Options{}); err != nil {
		return err
	}
	return nil
}

// MergeConfigs merges CLI overrides into a base config.
// Non-zero values from override take precedence over base values, boolean
// switches only ever turn an option on, and deny keys are added to the base list.
func MergeConfigs(base, override *Config) *Config {
	merged := *base
	merged.Pruner.DenyKeys = append([]string(nil), base.Pruner.DenyKeys...)

	if override.Limits.MaxDepth > 0 {
		merged.Limits.MaxDepth = override.Limits.MaxDepth
	}
	if override.Limits.ParseMaxDepth > 0 {
		merged.Limits.ParseMaxDepth = override.Limits.ParseMaxDepth
	}

	merged.Pruner.DenyKeys = append(merged.Pruner.DenyKeys, override.Pruner.DenyKeys...)
	if override.Pruner.MaxBinaryBytes > 0 {
		merged.Pruner.MaxBinaryBytes = override.Pruner.MaxBinaryBytes
	}
	merged.Pruner.FoldKeyStyles = merged.Pruner.FoldKeyStyles || override.Pruner.FoldKeyStyles
	merged.Pruner.DropBooleans = merged.Pruner.DropBooleans || override.Pruner.DropBooleans
	merged.Pruner.DropNumbers = merged.Pruner.DropNumbers || override.Pruner.DropNumbers
	merged.Pruner.DropEmptyValues = merged.Pruner.DropEmptyValues || override.Pruner.DropEmptyValues

	if override.Analyzer.LongStringThreshold > 0 {
		merged.Analyzer.LongStringThreshold = override.Analyzer.LongStringThreshold
	}
	if override.Keys.Samples > 0 {
		merged.Keys.Samples = override.Keys.Samples
	}

	if override.Split.MaxSizeMB > 0 {
		merged.Split.MaxSizeMB = override.Split.MaxSizeMB
	}
	if override.Split.Field != "" {
		merged.Split.Field = override.Split.Field
	}
	if override.Split.Prefix != "" {
		merged.Split.Prefix = override.Split.Prefix
	}
	if override.Split.Codec != "" {
		merged.Split.Codec = override.Split.Codec
	}

	if override.Capture.MaxDepth > 0 {
		merged.Capture.MaxDepth = override.Capture.MaxDepth
	}
	merged.Capture.KeepWhitespace = merged.Capture.KeepWhitespace || override.Capture.KeepWhitespace

	if override.Logging.Level != "" {
		merged.Logging.Level = override.Logging.Level
	}
	if override.Logging.FilePath != "" {
		merged.Logging.FilePath = override.Logging.FilePath
	}

	return &merged
}

// LoadConfigWithCLI resolves the effective configuration: defaults, then the
// config file (configPath, or the nearest discovered file when empty), then
// CLI overrides. It returns the config file used, if any.
func LoadConfigWithCLI(configPath string, cli *Config) (*Config, string, error) {
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg := NewConfig()
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, "", err
		}
		cfg = fileConfig
	}

	if cli != nil {
		cfg = MergeConfigs(cfg, cli)
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
	}
	return cfg, configPath, nil
}

// SplitBytes returns the chunk size limit in bytes.
func (c *Config) SplitBytes() int64 {
	return splitter.BytesFromMB(c.Split.MaxSizeMB)
}
