package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the file is loaded.
const (
	EnvDatabaseURL = "TILTMAZE_DATABASE_URL"
	EnvUsername    = "TILTMAZE_USERNAME"
)

// Load loads the configuration.
// Search order: customPath -> ~/.tiltmaze/config.yaml -> ./configs/tiltmaze.yaml -> embedded default.
// Keys missing from the chosen file keep their default values.
func Load(customPath string) (Config, error) {
	cfg := embedded()

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		return finish(cfg), nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath("config.yaml"); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			candidate := cfg
			if err := yaml.Unmarshal(data, &candidate); err == nil {
				return finish(candidate), nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", "tiltmaze.yaml")); err == nil {
		candidate := cfg
		if err := yaml.Unmarshal(data, &candidate); err == nil {
			return finish(candidate), nil
		}
	}

	return finish(cfg), nil
}

// embedded returns the embedded default YAML decoded over Default().
func embedded() Config {
	cfg := Default()
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return Default() // Fallback to hardcoded if embed fails
	}
	return cfg
}

// finish applies environment overrides and clamps values the simulation
// cannot run with.
func finish(cfg Config) Config {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Server.DatabaseURL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Player.Username = v
	}

	if cfg.Game.TickRate <= 0 {
		cfg.Game.TickRate = 60
	}
	if cfg.Game.StartLevel < 1 {
		cfg.Game.StartLevel = 1
	}
	if cfg.Game.FinalLevel < cfg.Game.StartLevel {
		cfg.Game.FinalLevel = cfg.Game.StartLevel
	}
	cfg.Game.Players = max(1, min(cfg.Game.Players, 2))
	if cfg.Player.MoveStep <= 0 {
		cfg.Player.MoveStep = 1
	}
	if cfg.Player.BoostStep <= 0 {
		cfg.Player.BoostStep = 2 * cfg.Player.MoveStep
	}
	return cfg
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tiltmaze", filename)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
