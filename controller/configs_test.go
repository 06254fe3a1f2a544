package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvSerialPort, "/dev/ttyACM0")
	t.Setenv(EnvBaudRate, "")
	t.Setenv(EnvListenAddr, ":9090")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.SerialPort)
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, DefaultServer, cfg.ServerAddr)
}

func TestConfigFromEnvFile(t *testing.T) {
	t.Setenv(EnvSerialPort, "")
	os.Unsetenv(EnvSerialPort)
	t.Setenv(EnvPresets, "")
	os.Unsetenv(EnvPresets)

	file := filepath.Join(t.TempDir(), "test.env")
	err := os.WriteFile(file, []byte(EnvSerialPort+"=/dev/ttyUSB1\n"+EnvPresets+"=presets.yaml\n"), 0o600)
	require.NoError(t, err)

	cfg, err := ConfigFromEnv(file)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", cfg.SerialPort)
	assert.Equal(t, "presets.yaml", cfg.PresetsFile)
}

func TestConfigFromEnvMissingFile(t *testing.T) {
	_, err := ConfigFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestConfigInvalidBaud(t *testing.T) {
	t.Setenv(EnvBaudRate, "fast")

	_, err := ConfigFromEnv()
	assert.Error(t, err)
}

func TestOpenWithoutPort(t *testing.T) {
	_, err := Open(Config{SerialPort: SerialPortNone, BaudRate: DefaultBaudRate}, nil)
	assert.Error(t, err)
}
