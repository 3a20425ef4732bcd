package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/rotasolve/pkg/core/model"
)

// SolverConfig tunes the constraint solver
type SolverConfig struct {
	// TimeBudgetSeconds bounds each solve's wall clock
	TimeBudgetSeconds int `yaml:"timeBudgetSeconds" validate:"min=1"`

	// HorizonDays bounds how far ahead the snapshot loader expands events
	HorizonDays int `yaml:"horizonDays" validate:"min=1"`

	// Weights are the default objective weights, overridable per request
	Weights model.Weights `yaml:"weights"`
}

// JobsConfig tunes the background job manager
type JobsConfig struct {
	// LeaseTTLSeconds is how long a solve job's per-organization lease lives
	// before a crashed worker's lease can be reclaimed. Zero sizes the lease
	// from the solve budget.
	LeaseTTLSeconds int `yaml:"leaseTTLSeconds" validate:"min=0"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL string       `yaml:"databaseURL" validate:"required"`
	Solver      SolverConfig `yaml:"solver"`
	Jobs        JobsConfig   `yaml:"jobs"`
}

// TimeBudget returns the solver budget as a duration
func (c *Config) TimeBudget() time.Duration {
	return time.Duration(c.Solver.TimeBudgetSeconds) * time.Second
}

// Horizon returns the event expansion horizon as a duration
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.Solver.HorizonDays) * 24 * time.Hour
}

// LeaseTTL returns the job lease TTL as a duration
func (c *Config) LeaseTTL() time.Duration {
	return time.Duration(c.Jobs.LeaseTTLSeconds) * time.Second
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// It looks for rotasolve_<env>.yaml in the current directory first, then in
// the user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(fmt.Sprintf("rotasolve_%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Solver: SolverConfig{
			TimeBudgetSeconds: 30,
			HorizonDays:       90,
			Weights:           model.DefaultWeights(),
		},
	}
}

// findConfigFile searches for the named config file in the current directory
// and home directory
func findConfigFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", name)
}
