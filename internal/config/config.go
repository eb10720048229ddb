package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type AppConfig struct {
	Server ServerConfig
	Room   RoomConfig
	WS     WSConfig
	Log    LogConfig
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(envFiles ...string) (AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, err
		}
	}

	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	roomCfg, err := LoadRoom()
	if err != nil {
		return AppConfig{}, err
	}
	wsCfg, err := LoadWS()
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		Server: serverCfg,
		Room:   roomCfg,
		WS:     wsCfg,
		Log:    logCfg,
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c AppConfig) Validate() error {
	var err error
	if c.Room.Capacity < 1 {
		err = multierr.Append(err, errors.New("ROOM_CAPACITY must be at least 1"))
	}
	if c.Room.TurnAutoRelease < 0 {
		err = multierr.Append(err, errors.New("TURN_AUTO_RELEASE must not be negative"))
	}
	if c.Room.OutboxSize < 1 {
		err = multierr.Append(err, errors.New("OUTBOX_SIZE must be at least 1"))
	}
	if c.WS.FramesPerSecond <= 0 {
		err = multierr.Append(err, errors.New("WS_FRAMES_PER_SECOND must be positive"))
	}
	if c.WS.FrameBurst < 1 {
		err = multierr.Append(err, errors.New("WS_FRAME_BURST must be at least 1"))
	}
	return err
}
