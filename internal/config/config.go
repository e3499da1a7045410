// Package config provides Viper-based configuration loading for the
// Gridlands tick server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the websocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP/websocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP/websocket listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is how long a connection may stay silent (no frames,
	// no pongs) before it is considered dead.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-frame write deadline.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SessionBuffer is the outbound frame queue capacity per session.
	SessionBuffer int `mapstructure:"session_buffer"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GameConfig holds the simulation settings.
type GameConfig struct {
	// TickInterval is the period of the authoritative broadcast clock.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// WorldWidth and WorldHeight bound legal positions: [0, width) x [0, height).
	WorldWidth  int `mapstructure:"world_width"`
	WorldHeight int `mapstructure:"world_height"`
	// ChatHistory is the chat log cap; oldest entries are evicted first.
	ChatHistory int `mapstructure:"chat_history"`
	// ObjectsDir is the directory of world-object YAML content files.
	ObjectsDir string `mapstructure:"objects_dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if the configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if s.SessionBuffer < 1 {
		errs = append(errs, fmt.Sprintf("server.session_buffer must be >= 1, got %d", s.SessionBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TickInterval <= 0 {
		errs = append(errs, "game.tick_interval must be positive")
	}
	if g.WorldWidth < 1 {
		errs = append(errs, fmt.Sprintf("game.world_width must be >= 1, got %d", g.WorldWidth))
	}
	if g.WorldHeight < 1 {
		errs = append(errs, fmt.Sprintf("game.world_height must be >= 1, got %d", g.WorldHeight))
	}
	if g.ChatHistory < 1 {
		errs = append(errs, fmt.Sprintf("game.chat_history must be >= 1, got %d", g.ChatHistory))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with GRIDLANDS_ prefix
	v.SetEnvPrefix("GRIDLANDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
//
// Postcondition: The returned Config passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.session_buffer", 64)

	v.SetDefault("game.tick_interval", "600ms")
	v.SetDefault("game.world_width", 100)
	v.SetDefault("game.world_height", 100)
	v.SetDefault("game.chat_history", 100)
	v.SetDefault("game.objects_dir", "content/world")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
