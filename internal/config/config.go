// Package config provides YAML-based configuration loading for the game
// client, the backend services and the SSH front-end.
package config

import "time"

// Config is the complete tiltmaze configuration.
type Config struct {
	Game     GameConfig     `yaml:"game"`
	Player   PlayerConfig   `yaml:"player"`
	PowerUps PowerUpConfig  `yaml:"powerups"`
	Tilt     TiltConfig     `yaml:"tilt"`
	Backend  BackendConfig  `yaml:"backend"`
	Server   ServerConfig   `yaml:"server"`
	Levels   LevelsConfig   `yaml:"levels"`
	Log      LogConfig      `yaml:"log"`
}

// GameConfig controls the simulation loop and level progression.
type GameConfig struct {
	TickRate   int           `yaml:"tick_rate"`
	StartLevel int           `yaml:"start_level"`
	FinalLevel int           `yaml:"final_level"`
	TitleDelay time.Duration `yaml:"title_delay"`
	Players    int           `yaml:"players"` // local players, 1 or 2
	Seed       int64         `yaml:"seed"`
}

// PlayerConfig defines movement and identity.
type PlayerConfig struct {
	Username  string `yaml:"username"`
	MoveStep  int    `yaml:"move_step"`
	BoostStep int    `yaml:"boost_step"`
}

// PowerUpConfig defines the timed coin effects.
type PowerUpConfig struct {
	Duration        time.Duration `yaml:"duration"`
	MessageDuration time.Duration `yaml:"message_duration"`
	SlowHazardSpeed float64       `yaml:"slow_hazard_speed"`
	BaseHazardSpeed float64       `yaml:"base_hazard_speed"`
}

// TiltConfig configures the hardware controller sockets, one port per player.
type TiltConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Ports     []int  `yaml:"ports"`
	Threshold int    `yaml:"threshold"`
}

// BackendConfig points the client at the score and sync services.
type BackendConfig struct {
	ScoreAddr   string        `yaml:"score_addr"`
	SyncURL     string        `yaml:"sync_url"`
	Multiplayer bool          `yaml:"multiplayer"`
	Group       string        `yaml:"group"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ServerConfig configures `tiltmaze serve` and `tiltmaze ssh`.
type ServerConfig struct {
	ScoreAddr     string        `yaml:"score_addr"`
	HTTPAddr      string        `yaml:"http_addr"`
	SSHAddr       string        `yaml:"ssh_addr"`
	HostKey       string        `yaml:"host_key"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	DBDriver      string        `yaml:"db_driver"` // "sqlite" or "postgres"
	DBPath        string        `yaml:"db_path"`
	DatabaseURL   string        `yaml:"database_url"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// LevelsConfig selects where level resources are read from.
type LevelsConfig struct {
	Dir string `yaml:"dir"` // empty = embedded levels
}

// LogConfig configures the charmbracelet logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, logfmt, json
	File   string `yaml:"file"`   // used by the TUI, which owns the terminal
}
