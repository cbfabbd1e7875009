package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EngineConfig carries the floor engine tunables. Everything has a default so
// the engine runs with an empty environment.
type EngineConfig struct {
	TurnTimeMinutes  int     `env:"FLOOR_TURN_TIME_MINUTES" envDefault:"120"`
	WarnThreshold    float64 `env:"FLOOR_WARN_THRESHOLD" envDefault:"0.8"`
	UpcomingLimit    int     `env:"FLOOR_UPCOMING_LIMIT" envDefault:"3"`
	HistoryLimit     int     `env:"FLOOR_HISTORY_LIMIT" envDefault:"3"`
	PersistTimeoutMS int     `env:"FLOOR_PERSIST_TIMEOUT_MS" envDefault:"5000"`

	ReconnectBaseMS    int `env:"FLOOR_RECONNECT_BASE_MS" envDefault:"1000"`
	ReconnectCapMS     int `env:"FLOOR_RECONNECT_CAP_MS" envDefault:"30000"`
	HeartbeatWindowSec int `env:"FLOOR_HEARTBEAT_WINDOW_SEC" envDefault:"60"`
}

func LoadEngine() (EngineConfig, error) {
	var cfg EngineConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c EngineConfig) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutMS) * time.Millisecond
}

func (c EngineConfig) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseMS) * time.Millisecond
}

func (c EngineConfig) ReconnectCap() time.Duration {
	return time.Duration(c.ReconnectCapMS) * time.Millisecond
}

func (c EngineConfig) HeartbeatWindow() time.Duration {
	return time.Duration(c.HeartbeatWindowSec) * time.Second
}
