package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all user settings
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Chat    ChatConfig    `mapstructure:"chat"`
	State   StateConfig   `mapstructure:"state"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig locates the council service
type ServerConfig struct {
	// URL is the service root, e.g. http://localhost:8001
	URL string `mapstructure:"url"`
}

// SessionConfig controls session loading
type SessionConfig struct {
	// LoadTimeout bounds how long a session load may take
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	// MinLoadDisplay keeps the loading indicator up at least this long
	MinLoadDisplay time.Duration `mapstructure:"min_load_display"`
}

// ChatConfig controls chat-mode delivery
type ChatConfig struct {
	// RevealDelay is the pause before each chat message appears
	RevealDelay time.Duration `mapstructure:"reveal_delay"`
}

// StateConfig controls local state
type StateConfig struct {
	// Dir overrides the state directory; empty uses the platform default
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, receives log output instead of stderr
	File string `mapstructure:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:8001",
		},
		Session: SessionConfig{
			LoadTimeout:    30 * time.Second,
			MinLoadDisplay: 400 * time.Millisecond,
		},
		Chat: ChatConfig{
			RevealDelay: 600 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("server.url", defaults.Server.URL)

	viper.SetDefault("session.load_timeout", defaults.Session.LoadTimeout)
	viper.SetDefault("session.min_load_display", defaults.Session.MinLoadDisplay)

	viper.SetDefault("chat.reveal_delay", defaults.Chat.RevealDelay)

	viper.SetDefault("state.dir", defaults.State.Dir)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "council")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".council"
	}
	return filepath.Join(home, ".config", "council")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
