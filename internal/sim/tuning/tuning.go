package tuning

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PETQUEST_"

// Unknown input policies for stat and quest type text.
const (
	UnknownFallback = "fallback"
	UnknownReject   = "reject"
)

type Tuning struct {
	Admin        string `yaml:"admin" env:"ADMIN"`
	MaxStats     int    `yaml:"max_stats" env:"MAX_STATS"`
	Entropy      string `yaml:"entropy" env:"ENTROPY"`
	UnknownInput string `yaml:"unknown_input" env:"UNKNOWN_INPUT"`

	StorePath             string `yaml:"store_path" env:"STORE_PATH"`
	IndexPath             string `yaml:"index_path" env:"INDEX_PATH"`
	AuditDir              string `yaml:"audit_dir" env:"AUDIT_DIR"`
	SnapshotDir           string `yaml:"snapshot_dir" env:"SNAPSHOT_DIR"`
	SnapshotEveryRequests int    `yaml:"snapshot_every_requests" env:"SNAPSHOT_EVERY_REQUESTS"`
	MetricsTextfile       string `yaml:"metrics_textfile" env:"METRICS_TEXTFILE"`
	ChainFixture          string `yaml:"chain_fixture" env:"CHAIN_FIXTURE"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
}

func Defaults() Tuning {
	return Tuning{
		MaxStats:              20,
		UnknownInput:          UnknownFallback,
		SnapshotEveryRequests: 1000,
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

// Load reads path over Defaults. An empty path skips the file.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// ApplyEnv overrides fields with the PETQUEST_* variables that are set.
func (t *Tuning) ApplyEnv() error {
	if err := env.ParseWithOptions(t, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (t Tuning) Validate() error {
	if t.MaxStats < 12 {
		return fmt.Errorf("max_stats must be at least 12, got %d", t.MaxStats)
	}
	switch t.UnknownInput {
	case UnknownFallback, UnknownReject:
	default:
		return fmt.Errorf("unknown_input must be %q or %q, got %q", UnknownFallback, UnknownReject, t.UnknownInput)
	}
	if t.SnapshotEveryRequests < 0 {
		return fmt.Errorf("snapshot_every_requests must be >= 0")
	}
	switch strings.ToLower(t.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", t.LogFormat)
	}
	return nil
}

// LoadAll reads path, applies the environment and validates the result.
func LoadAll(path string) (Tuning, error) {
	t, err := Load(path)
	if err != nil {
		return t, err
	}
	if err := t.ApplyEnv(); err != nil {
		return t, err
	}
	return t, t.Validate()
}
