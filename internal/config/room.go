package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

type RoomConfig struct {
	Capacity        int           `env:"ROOM_CAPACITY" envDefault:"10"`
	TurnAutoRelease time.Duration `env:"TURN_AUTO_RELEASE" envDefault:"0s"`
	IdleTimeout     time.Duration `env:"ROOM_IDLE_TIMEOUT" envDefault:"30m"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"1m"`
	OutboxSize      int           `env:"OUTBOX_SIZE" envDefault:"32"`
	AlertConfigPath string        `env:"ALERT_CONFIG_PATH"`

	Alerts roster.Alerts
}

func LoadRoom() (RoomConfig, error) {
	var cfg RoomConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.Alerts = roster.DefaultAlerts()
	if cfg.AlertConfigPath == "" {
		return cfg, nil
	}
	alerts, err := LoadAlerts(cfg.AlertConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg.Alerts = alerts
	return cfg, nil
}

type alertFile struct {
	Attributes map[string][]roster.Level `yaml:"attributes"`
}

// LoadAlerts reads status alert thresholds from a YAML file:
//
//	attributes:
//	  tension:
//	    - {name: high, threshold: 60}
func LoadAlerts(path string) (roster.Alerts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert config: %w", err)
	}
	var f alertFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alert config: %w", err)
	}
	alerts := roster.Alerts{}
	for attr, levels := range f.Attributes {
		for _, l := range levels {
			if l.Name == "" {
				return nil, fmt.Errorf("alert config: %s has a level without a name", attr)
			}
		}
		alerts[attr] = levels
	}
	return alerts, nil
}
