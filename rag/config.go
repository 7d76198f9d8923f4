package rag

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TopKConfig sets the per-namespace retrieval width.
type TopKConfig struct {
	Corpus   int `yaml:"corpus"`
	Exemplar int `yaml:"exemplar"`

	// WidenBy broadens the corpus top-k by this amount on every retry
	// after the first failed attempt. Zero disables widening.
	WidenBy int `yaml:"widen_by"`
}

// TimeoutConfig bounds each external call. A timed-out call is treated
// exactly like the corresponding error kind (fail-closed).
type TimeoutConfig struct {
	Retrieval  time.Duration `yaml:"retrieval"`
	Evaluation time.Duration `yaml:"evaluation"`
	Generation time.Duration `yaml:"generation"`
}

// UnmarshalYAML parses timeouts from Go duration strings ("10s", "1m30s").
// Fields absent from the document keep their current (default) values.
func (t *TimeoutConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Retrieval  string `yaml:"retrieval"`
		Evaluation string `yaml:"evaluation"`
		Generation string `yaml:"generation"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parse := func(field, s string, dst *time.Duration) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.%s: %w", field, err)
		}
		*dst = d
		return nil
	}

	if err := parse("retrieval", raw.Retrieval, &t.Retrieval); err != nil {
		return err
	}
	if err := parse("evaluation", raw.Evaluation, &t.Evaluation); err != nil {
		return err
	}
	return parse("generation", raw.Generation, &t.Generation)
}

// Config is the pipeline configuration surface. All fields are required
// and validated at startup; validation failures are fatal and never enter
// the loop.
type Config struct {
	// MaxAttempts bounds the retrieval-grade loop. Must be >= 1.
	MaxAttempts int `yaml:"max_attempts"`

	// Thresholds maps metric name to the minimum score in [0,1] it must
	// reach for the verdict to be sufficient.
	Thresholds map[string]float64 `yaml:"thresholds"`

	TopK TopKConfig `yaml:"top_k"`

	// Temperature is fixed at 0 by policy so generation is deterministic.
	// Overridable only for testing via AllowTemperatureOverride.
	Temperature              float64 `yaml:"temperature"`
	AllowTemperatureOverride bool    `yaml:"allow_temperature_override"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// DefaultConfig mirrors the reference system: precision/recall gates at
// 0.7, five corpus passages and three exemplars per attempt, temperature 0.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Thresholds: map[string]float64{
			MetricContextPrecision: 0.7,
			MetricContextRecall:    0.7,
		},
		TopK: TopKConfig{
			Corpus:   5,
			Exemplar: 3,
		},
		Temperature: 0,
		Timeouts: TimeoutConfig{
			Retrieval:  10 * time.Second,
			Evaluation: 30 * time.Second,
			Generation: 60 * time.Second,
		},
	}
}

// Validate checks the full configuration surface. Returns a
// *ConfigurationError describing the first violation found.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return &ConfigurationError{Field: "max_attempts", Reason: fmt.Sprintf("must be a positive integer, got %d", c.MaxAttempts)}
	}
	if len(c.Thresholds) == 0 {
		return &ConfigurationError{Field: "thresholds", Reason: "at least one metric threshold is required"}
	}
	for name, threshold := range c.Thresholds {
		if threshold < 0 || threshold > 1 {
			return &ConfigurationError{Field: "thresholds." + name, Reason: fmt.Sprintf("must be in [0,1], got %g", threshold)}
		}
	}
	if c.TopK.Corpus < 1 {
		return &ConfigurationError{Field: "top_k.corpus", Reason: fmt.Sprintf("must be a positive integer, got %d", c.TopK.Corpus)}
	}
	if c.TopK.Exemplar < 1 {
		return &ConfigurationError{Field: "top_k.exemplar", Reason: fmt.Sprintf("must be a positive integer, got %d", c.TopK.Exemplar)}
	}
	if c.TopK.WidenBy < 0 {
		return &ConfigurationError{Field: "top_k.widen_by", Reason: fmt.Sprintf("must be non-negative, got %d", c.TopK.WidenBy)}
	}
	if c.Temperature != 0 && !c.AllowTemperatureOverride {
		return &ConfigurationError{Field: "temperature", Reason: "fixed at 0 by policy; set allow_temperature_override for testing"}
	}
	return nil
}

// LoadConfig reads a YAML configuration file over the defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// corpusTopK widens the corpus retrieval width on retries.
func (c *Config) corpusTopK(attempt int) int {
	if attempt <= 1 || c.TopK.WidenBy == 0 {
		return c.TopK.Corpus
	}
	return c.TopK.Corpus + (attempt-1)*c.TopK.WidenBy
}
