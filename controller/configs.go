package controller

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by ConfigFromEnv
const (
	EnvSerialPort = "IV_ADMIN_SERIAL_PORT"
	EnvBaudRate   = "IV_ADMIN_BAUD_RATE"
	EnvListenAddr = "IV_ADMIN_LISTEN_ADDR"
	EnvPresets    = "IV_ADMIN_PRESETS"
	EnvServer     = "IV_ADMIN_SERVER"
)

// Defaults used when the environment leaves a value unset
const (
	DefaultBaudRate   = "115200"
	DefaultListenAddr = ":8080"
	DefaultServer     = "http://localhost:8080"
)

// Config has the host-side settings
type Config struct {
	SerialPort string
	BaudRate   string
	ListenAddr string
	// PresetsFile is optional, the built-in presets are used when it is empty
	PresetsFile string
	// ServerAddr is where clients find the HTTP API
	ServerAddr string
}

// ConfigFromEnv loads envFiles, or .env when none are given, then reads the IV_ADMIN_ variables. A missing
// .env file is not an error.
func ConfigFromEnv(envFiles ...string) (Config, error) {
	err := godotenv.Load(envFiles...)
	if err != nil && !(len(envFiles) == 0 && errors.Is(err, fs.ErrNotExist)) {
		return Config{}, fmt.Errorf("error loading env file: %w", err)
	}

	cfg := Config{
		SerialPort:  os.Getenv(EnvSerialPort),
		BaudRate:    envOr(EnvBaudRate, DefaultBaudRate),
		ListenAddr:  envOr(EnvListenAddr, DefaultListenAddr),
		PresetsFile: os.Getenv(EnvPresets),
		ServerAddr:  envOr(EnvServer, DefaultServer),
	}

	_, err = cfg.Baud()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Baud parses BaudRate
func (c Config) Baud() (int, error) {
	baud, err := strconv.Atoi(c.BaudRate)
	if err != nil || baud <= 0 {
		return 0, fmt.Errorf("invalid baud rate %q", c.BaudRate)
	}
	return baud, nil
}

func envOr(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	return v
}
