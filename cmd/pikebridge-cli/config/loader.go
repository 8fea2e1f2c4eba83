// loader.go — CLI configuration loading with priority cascade.
// Priority: defaults < global config < project config < env vars < flags.
//
// This governs only the pikebridge-cli binary's own settings (which
// analyzer binary/script to point at, output format, timeout); it has no
// bearing on the bridge library itself, which is configured purely
// through bridge.Options.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all resolved CLI configuration values.
type Config struct {
	ExecutablePath string `json:"executable_path"`
	ScriptPath     string `json:"script_path"`
	Format         string `json:"format"`
	TimeoutMS      int    `json:"timeout_ms"`
	Debug          bool   `json:"debug"`
}

// FlagOverrides holds values explicitly set via command-line flags. A nil
// pointer means the flag was not set, so lower-priority values are kept.
type FlagOverrides struct {
	ExecutablePath *string
	ScriptPath     *string
	Format         *string
	TimeoutMS      *int
	Debug          *bool
}

// Defaults returns the base configuration.
func Defaults() Config {
	return Config{
		ExecutablePath: "pike",
		Format:         "human",
		TimeoutMS:      30000,
		Debug:          false,
	}
}

// Load builds the final configuration by applying the priority cascade:
// defaults < global (~/.pikebridge/config.json) < project (.pikebridge.json)
// < env vars < flags.
func Load(projectDir string, flags *FlagOverrides) (Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		_ = loadJSONFile(&cfg, filepath.Join(home, ".pikebridge", "config.json"))
	}

	if err := loadJSONFile(&cfg, filepath.Join(projectDir, ".pikebridge.json")); err != nil {
		return cfg, fmt.Errorf("project config: %w", err)
	}

	loadEnvVars(&cfg)

	if flags != nil {
		applyFlags(&cfg, flags)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadJSONFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fileCfg fileConfig
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fileCfg.ExecutablePath != nil {
		cfg.ExecutablePath = *fileCfg.ExecutablePath
	}
	if fileCfg.ScriptPath != nil {
		cfg.ScriptPath = *fileCfg.ScriptPath
	}
	if fileCfg.Format != nil {
		cfg.Format = *fileCfg.Format
	}
	if fileCfg.TimeoutMS != nil {
		cfg.TimeoutMS = *fileCfg.TimeoutMS
	}
	if fileCfg.Debug != nil {
		cfg.Debug = *fileCfg.Debug
	}
	return nil
}

// fileConfig uses pointers to distinguish "not set" from zero values.
type fileConfig struct {
	ExecutablePath *string `json:"executable_path"`
	ScriptPath     *string `json:"script_path"`
	Format         *string `json:"format"`
	TimeoutMS      *int    `json:"timeout_ms"`
	Debug          *bool   `json:"debug"`
}

func loadEnvVars(cfg *Config) {
	if v := os.Getenv("PIKEBRIDGE_EXECUTABLE"); v != "" {
		cfg.ExecutablePath = v
	}
	if v := os.Getenv("PIKEBRIDGE_SCRIPT"); v != "" {
		cfg.ScriptPath = v
	}
	if v := os.Getenv("PIKEBRIDGE_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("PIKEBRIDGE_TIMEOUT_MS"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			cfg.TimeoutMS = timeout
		}
	}
	if os.Getenv("PIKEBRIDGE_DEBUG") == "1" {
		cfg.Debug = true
	}
}

func applyFlags(cfg *Config, flags *FlagOverrides) {
	if flags.ExecutablePath != nil {
		cfg.ExecutablePath = *flags.ExecutablePath
	}
	if flags.ScriptPath != nil {
		cfg.ScriptPath = *flags.ScriptPath
	}
	if flags.Format != nil {
		cfg.Format = *flags.Format
	}
	if flags.TimeoutMS != nil {
		cfg.TimeoutMS = *flags.TimeoutMS
	}
	if flags.Debug != nil {
		cfg.Debug = *flags.Debug
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c Config) Validate() error {
	validFormats := map[string]bool{"human": true, "json": true, "csv": true}
	if !validFormats[c.Format] {
		return fmt.Errorf("format must be human, json, or csv, got %q", c.Format)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must be >= 0, got %d", c.TimeoutMS)
	}
	return nil
}
