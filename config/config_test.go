package config

import (
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.HttpPort)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, 16, cfg.MaxWorkers)
	assert.Equal(t, "signaling:rooms", cfg.EventsChannel)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, "*", cfg.CorsOrigin)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, log.INFO, cfg.Level())
}

func TestLoadFromEnv(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()
	_ = os.Setenv("HTTP_PORT", "8080")
	_ = os.Setenv("REDIS_ADDR", "localhost:6379")
	_ = os.Setenv("PING_INTERVAL", "5s")
	_ = os.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HttpPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, log.DEBUG, cfg.Level())
}

func TestLoadInvalid(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()
	_ = os.Setenv("HTTP_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsEmptySendBuffer(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()
	_ = os.Setenv("SEND_BUFFER", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadLimits(t *testing.T) {
	for key, value := range map[string]string{
		"MAX_WORKERS":   "0",
		"PING_INTERVAL": "0s",
		"SEND_BUFFER":   "-3",
	} {
		os.Clearenv()
		_ = os.Setenv(key, value)
		_, err := Load()
		assert.Error(t, err, key)
	}
	os.Clearenv()
}
