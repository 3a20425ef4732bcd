package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	validConfig := `
databaseURL: "postgres://localhost:5432/rotasolve_test"
solver:
  timeBudgetSeconds: 10
  horizonDays: 30
  weights:
    coverage: 20
    fairness: 2
    preference: 1
jobs:
  leaseTTLSeconds: 120
`

	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/rotasolve_test", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Second, cfg.TimeBudget())
	assert.Equal(t, 30*24*time.Hour, cfg.Horizon())
	assert.Equal(t, 2*time.Minute, cfg.LeaseTTL())
	assert.Equal(t, 20.0, cfg.Solver.Weights.Coverage)
	assert.Equal(t, 2.0, cfg.Solver.Weights.Fairness)
	assert.Equal(t, 1.0, cfg.Solver.Weights.Preference)
}

func TestLoadFromPath_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal_config.yaml")

	minimalConfig := `
databaseURL: "postgres://localhost:5432/rotasolve_test"
`

	err := os.WriteFile(configPath, []byte(minimalConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.TimeBudget())
	assert.Equal(t, 90*24*time.Hour, cfg.Horizon())
	assert.Equal(t, 10.0, cfg.Solver.Weights.Coverage)
	assert.Equal(t, 1.0, cfg.Solver.Weights.Fairness)
	assert.Equal(t, 0.5, cfg.Solver.Weights.Preference)
}

func TestLoadFromPath_MissingDatabaseURL(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.yaml")

	invalidConfig := `
solver:
  timeBudgetSeconds: 10
`

	err := os.WriteFile(configPath, []byte(invalidConfig), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_yaml.yaml")

	invalidYAML := `
databaseURL: "postgres://localhost"
  invalid indentation
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_NegativeBudgetRejected(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseURL = "postgres://localhost"
	cfg.Solver.TimeBudgetSeconds = 0

	err := Validate(cfg)
	assert.Error(t, err)
}
