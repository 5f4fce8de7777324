package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8081"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_SERVER_PORT", ":9090")
	t.Setenv("CHAT_SERVER_ALLOWED_ORIGINS", " https://a.example , https://b.example,,")
	t.Setenv("CHAT_SERVER_MAX_MESSAGE_SIZE", "1024")
	t.Setenv("CHAT_SERVER_SEND_BUFFER", "16")
	t.Setenv("CHAT_SERVER_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CHAT_LOG_LEVEL", "DEBUG")
	t.Setenv("CHAT_LOG_FORMAT", "Console")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 16, cfg.SendBufferSize)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestNewConfigFromEnvInvalidValues(t *testing.T) {
	t.Setenv("CHAT_SERVER_MAX_MESSAGE_SIZE", "lots")
	t.Setenv("CHAT_SERVER_SEND_BUFFER", "-4")
	t.Setenv("CHAT_SERVER_SHUTDOWN_TIMEOUT", "soon")

	cfg := NewConfigFromEnv()
	def := defaultConfig()

	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.SendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, def.Port, cfg.Port)
}

func TestSanitizeConfig(t *testing.T) {
	origins := []string{"http://x.example"}
	cfg := sanitizeConfig(Config{AllowedOrigins: origins})
	def := defaultConfig()

	assert.Equal(t, def.Port, cfg.Port)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.SendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.Equal(t, def.LogFormat, cfg.LogFormat)
	assert.Equal(t, origins, cfg.AllowedOrigins)

	origins[0] = "http://changed.example"
	assert.Equal(t, "http://x.example", cfg.AllowedOrigins[0], "origins are copied")
}

func TestParseOrigins(t *testing.T) {
	assert.Empty(t, parseOrigins(""))
	assert.Equal(t, []string{"*"}, parseOrigins(" * "))
	assert.Equal(t, []string{"http://a", "http://b"}, parseOrigins("http://a,,http://b, "))
}
