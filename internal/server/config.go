// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port              string
	AllowedOrigins    []string
	MaxMessageSize    int64
	RateLimit         RateLimitConfig
	SendBufferSize    int
	Rooms             []string
	MaxUsernameLength int
	ErrorReplies      bool
	CensoredWords     []string
	CensorCharacter   rune
	LogLevel          string
	ShutdownTimeout   time.Duration
}

// envConfig mirrors Config with one primitive field per environment variable.
type envConfig struct {
	Port                    string        `env:"SERVER_PORT,default=:8080"`
	AllowedOrigins          string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize          int           `env:"MAX_MESSAGE_SIZE,default=4096"`
	RateLimitBurst          int           `env:"RATE_LIMIT_BURST,default=10"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	SendBufferSize          int           `env:"SEND_BUFFER_SIZE,default=256"`
	Rooms                   string        `env:"CHAT_ROOMS"`
	MaxUsernameLength       int           `env:"MAX_USERNAME_LENGTH,default=32"`
	ErrorReplies            bool          `env:"ERROR_REPLIES,default=true"`
	CensoredWords           string        `env:"CENSORED_WORDS"`
	CensorCharacter         string        `env:"CENSOR_CHARACTER,default=*"`
	LogLevel                string        `env:"LOG_LEVEL,default=INFO"`
	ShutdownTimeout         time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

var defaultRooms = []string{"general", "random"}

func defaultConfig() Config {
	return Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		SendBufferSize:    256,
		Rooms:             append([]string(nil), defaultRooms...),
		MaxUsernameLength: 32,
		ErrorReplies:      true,
		CensorCharacter:   '*',
		LogLevel:          "INFO",
		ShutdownTimeout:   10 * time.Second,
	}
}

// sanitizeConfig replaces zero or negative values with defaults. ErrorReplies
// is taken as is.
func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if len(parseList(strings.Join(cfg.Rooms, ","))) == 0 {
		cfg.Rooms = def.Rooms
	}
	if cfg.MaxUsernameLength <= 0 {
		cfg.MaxUsernameLength = def.MaxUsernameLength
	}
	if cfg.CensorCharacter == 0 {
		cfg.CensorCharacter = def.CensorCharacter
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	cfg.Rooms = parseList(strings.Join(cfg.Rooms, ","))
	cfg.CensoredWords = parseList(strings.Join(cfg.CensoredWords, ","))
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig reads the configuration from environment variables, falling back
// to defaults for anything unset.
func LoadConfig() (*Config, error) {
	var raw envConfig
	if _, err := env.UnmarshalFromEnviron(&raw); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	mask, err := censorRune(raw.CensorCharacter)
	if err != nil {
		return nil, err
	}

	cfg := sanitizeConfig(Config{
		Port:           raw.Port,
		AllowedOrigins: parseList(raw.AllowedOrigins),
		MaxMessageSize: int64(raw.MaxMessageSize),
		RateLimit: RateLimitConfig{
			Burst:          raw.RateLimitBurst,
			RefillInterval: raw.RateLimitRefillInterval,
		},
		SendBufferSize:    raw.SendBufferSize,
		Rooms:             parseList(raw.Rooms),
		MaxUsernameLength: raw.MaxUsernameLength,
		ErrorReplies:      raw.ErrorReplies,
		CensoredWords:     parseList(raw.CensoredWords),
		CensorCharacter:   mask,
		LogLevel:          raw.LogLevel,
		ShutdownTimeout:   raw.ShutdownTimeout,
	})
	return &cfg, nil
}

func censorRune(value string) (rune, error) {
	r := []rune(value)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSOR_CHARACTER must be a single character, got %q", value)
	}
	return r[0], nil
}

// parseList splits a comma separated value, dropping blank entries.
func parseList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
