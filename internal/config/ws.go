package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type WSConfig struct {
	ReadTimeout     time.Duration `env:"WS_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout    time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
	FramesPerSecond float64       `env:"WS_FRAMES_PER_SECOND" envDefault:"10"`
	FrameBurst      int           `env:"WS_FRAME_BURST" envDefault:"20"`
	MaxFrameBytes   int64         `env:"WS_MAX_FRAME_BYTES" envDefault:"16384"`
	OriginPatterns  []string      `env:"WS_ORIGIN_PATTERNS" envSeparator:","`
}

func LoadWS() (WSConfig, error) {
	var cfg WSConfig
	err := env.Parse(&cfg)
	return cfg, err
}
