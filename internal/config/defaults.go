package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/tiltmaze.yaml
var defaultYAML []byte

// Default returns the hardcoded configuration used when even the embedded
// YAML cannot be parsed.
func Default() Config {
	return Config{
		Game: GameConfig{
			TickRate:   60,
			StartLevel: 1,
			FinalLevel: 3,
			TitleDelay: 1750 * time.Millisecond,
			Players:    1,
		},
		Player: PlayerConfig{
			Username:  "player",
			MoveStep:  1,
			BoostStep: 2,
		},
		PowerUps: PowerUpConfig{
			Duration:        5 * time.Second,
			MessageDuration: time.Second,
			SlowHazardSpeed: 0.1,
			BaseHazardSpeed: 0.7,
		},
		Tilt: TiltConfig{
			Enabled:   true,
			Host:      "0.0.0.0",
			Ports:     []int{5000, 5001},
			Threshold: 100,
		},
		Backend: BackendConfig{
			ScoreAddr:   "127.0.0.1:12000",
			SyncURL:     "ws://127.0.0.1:8080/ws",
			Group:       "default",
			WaitTimeout: 15 * time.Second,
			DialTimeout: 2 * time.Second,
		},
		Server: ServerConfig{
			ScoreAddr:     ":12000",
			HTTPAddr:      ":8080",
			SSHAddr:       ":23234",
			IdleTimeout:   30 * time.Minute,
			DBDriver:      "sqlite",
			DBPath:        "~/.tiltmaze/scores.db",
			CleanupPeriod: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "~/.tiltmaze/tiltmaze.log",
		},
	}
}
