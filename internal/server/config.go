// Package server provides configuration helpers that define runtime defaults
// and validation for the chat service.
package server

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CHAT"

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	SendBufferSize  int
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

func defaultConfig() Config {
	return Config{
		Port: ":8081",
		AllowedOrigins: []string{
			"http://localhost:8081",
		},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// sanitizeConfig replaces unusable values with their defaults.
func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config from CHAT_* environment variables, e.g.
// CHAT_SERVER_PORT or CHAT_LOG_LEVEL. Unset or invalid values fall back to
// the defaults.
func NewConfigFromEnv() *Config {
	return configFromViper(newViper())
}

func newViper() *viper.Viper {
	def := defaultConfig()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", def.Port)
	v.SetDefault("server.allowed_origins", strings.Join(def.AllowedOrigins, ","))
	v.SetDefault("server.max_message_size", def.MaxMessageSize)
	v.SetDefault("server.send_buffer", def.SendBufferSize)
	v.SetDefault("server.shutdown_timeout", def.ShutdownTimeout)
	v.SetDefault("log.level", def.LogLevel)
	v.SetDefault("log.format", def.LogFormat)
	return v
}

func configFromViper(v *viper.Viper) *Config {
	cfg := sanitizeConfig(Config{
		Port:            v.GetString("server.port"),
		AllowedOrigins:  parseOrigins(v.GetString("server.allowed_origins")),
		MaxMessageSize:  v.GetInt64("server.max_message_size"),
		SendBufferSize:  v.GetInt("server.send_buffer"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		LogFormat:       strings.ToLower(v.GetString("log.format")),
	})
	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
