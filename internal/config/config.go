// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the warden configuration.
type Config struct {
	Policy     PolicyConfig     `toml:"policy"`
	Validator  ValidatorConfig  `toml:"validator"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Output     OutputConfig     `toml:"output"`
	Executor   ExecutorConfig   `toml:"executor"`
	Audit      AuditConfig      `toml:"audit"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// PolicyConfig points at the risk tier table.
type PolicyConfig struct {
	TablePath string `toml:"table_path"` // TOML or YAML tier table; empty uses the builtin
}

// ValidatorConfig tunes argument validation.
type ValidatorConfig struct {
	MaxArgumentLength int      `toml:"max_argument_length"` // default 4096
	ForbiddenTokens   []string `toml:"forbidden_tokens"`    // empty uses the builtin set
}

// MonitorConfig tunes the trajectory loop detectors.
type MonitorConfig struct {
	EmptyStreakThreshold int `toml:"empty_streak_threshold"` // default 5
	SameCommandThreshold int `toml:"same_command_threshold"` // default 6
	IdenticalWindow      int `toml:"identical_window"`       // default 5
	SignaturePrefixLen   int `toml:"signature_prefix_len"`   // default 200, 0 compares full signatures
}

// OutputConfig tunes the output envelope.
type OutputConfig struct {
	MaxChars int `toml:"max_chars"` // default 4000
}

// ExecutorConfig configures the docker CLI executor.
type ExecutorConfig struct {
	Binary         string `toml:"binary"`          // default "docker"
	TimeoutSeconds int    `toml:"timeout_seconds"` // default 30
	WorkDir        string `toml:"work_dir"`        // compose project directory
}

// AuditConfig configures trajectory persistence.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // default "~/.local/warden/audit"
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool              `toml:"enabled"`
	Endpoint string            `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Protocol string            `toml:"protocol"` // grpc (default) or http
	Insecure bool              `toml:"insecure"`
	Headers  map[string]string `toml:"headers"`
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Validator: ValidatorConfig{
			MaxArgumentLength: 4096,
		},
		Monitor: MonitorConfig{
			EmptyStreakThreshold: 5,
			SameCommandThreshold: 6,
			IdenticalWindow:      5,
			SignaturePrefixLen:   200,
		},
		Output: OutputConfig{
			MaxChars: 4000,
		},
		Executor: ExecutorConfig{
			Binary:         "docker",
			TimeoutSeconds: 30,
		},
		Audit: AuditConfig{
			Enabled: true,
			Dir:     "~/.local/warden/audit",
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file, layered over defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from warden.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "warden.toml"))
}

// ExecTimeout returns the executor timeout as a duration.
func (c *Config) ExecTimeout() time.Duration {
	if c.Executor.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Executor.TimeoutSeconds) * time.Second
}

// AuditDir returns the audit directory with ~ expanded.
func (c *Config) AuditDir() string {
	dir := c.Audit.Dir
	if len(dir) >= 2 && dir[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	return dir
}
