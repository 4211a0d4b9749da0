package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thenoetrevino/kanban/internal/config/colors"
)

// ColorScheme is the palette used by the CLI and the board viewer
type ColorScheme = colors.ColorScheme

// Config represents the application configuration
type Config struct {
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Realtime    RealtimeConfig `yaml:"realtime"`
	Logging     LoggingConfig  `yaml:"logging"`
	Client      ClientConfig   `yaml:"client"`
	KeyMappings KeyMappings    `yaml:"key_mappings"`
	ColorScheme ColorScheme    `yaml:"theme"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig locates the sqlite file
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig selects how bearer tokens are verified. JWKSURL takes
// precedence over JWTSecret.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWKSURL   string        `yaml:"jwks_url"`
	Audience  string        `yaml:"audience"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RealtimeConfig tunes the broadcast hub. An empty RedisURL keeps fan-out in
// process.
type RealtimeConfig struct {
	RedisURL           string        `yaml:"redis_url"`
	ChannelPrefix      string        `yaml:"channel_prefix"`
	QueueSize          int           `yaml:"queue_size"`
	ClientBuffer       int           `yaml:"client_buffer"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	StaleAfter         time.Duration `yaml:"stale_after"`
	RevalidateInterval time.Duration `yaml:"revalidate_interval"`
}

// LoggingConfig controls the logrus logger
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	JSON       bool   `yaml:"json"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ClientConfig is used by the CLI commands and the board viewer
type ClientConfig struct {
	ServerURL     string        `yaml:"server_url"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	RefetchOnMove bool          `yaml:"refetch_on_move"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the config at path, or at the default location when path is
// empty. A missing file yields the defaults. A .env file in the working
// directory is loaded first so KANBAN_ variables can come from it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err == nil {
			path = p
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	// Fill in any missing values with defaults
	config.applyDefaults()

	return config, nil
}

// Save writes the config to path, or to the default location when path is
// empty
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file may hold a jwt secret or a client token
	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file location
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "kanban", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "kanban", "config.yaml"), nil
}

// DataDir returns the directory holding the default database and log file
func DataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "kanban")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "share", "kanban")
	}
	return "."
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"KANBAN_ADDR":       &c.Server.Addr,
		"KANBAN_DB_PATH":    &c.Database.Path,
		"KANBAN_JWT_SECRET": &c.Auth.JWTSecret,
		"KANBAN_JWKS_URL":   &c.Auth.JWKSURL,
		"KANBAN_AUDIENCE":   &c.Auth.Audience,
		"KANBAN_ISSUER":     &c.Auth.Issuer,
		"KANBAN_REDIS_URL":  &c.Realtime.RedisURL,
		"KANBAN_SERVER_URL": &c.Client.ServerURL,
		"KANBAN_TOKEN":      &c.Client.Token,
		"KANBAN_LOG_LEVEL":  &c.Logging.Level,
		"KANBAN_LOG_FILE":   &c.Logging.File,
		"KANBAN_THEME":      &c.ColorScheme.Preset,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("KANBAN_LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KANBAN_LOG_JSON: %w", err)
		}
		c.Logging.JSON = b
	}
	if v, ok := os.LookupEnv("KANBAN_REFETCH_ON_MOVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KANBAN_REFETCH_ON_MOVE: %w", err)
		}
		c.Client.RefetchOnMove = b
	}
	if os.Getenv("DEBUG") == "1" {
		c.Logging.Level = "debug"
	}
	return nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(DataDir(), "kanban.db")
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Realtime.ChannelPrefix == "" {
		c.Realtime.ChannelPrefix = "kanban:"
	}
	if c.Realtime.QueueSize <= 0 {
		c.Realtime.QueueSize = 256
	}
	if c.Realtime.ClientBuffer <= 0 {
		c.Realtime.ClientBuffer = 64
	}
	if c.Realtime.PingInterval <= 0 {
		c.Realtime.PingInterval = 30 * time.Second
	}
	if c.Realtime.StaleAfter <= 0 {
		c.Realtime.StaleAfter = 3 * c.Realtime.PingInterval
	}
	if c.Realtime.RevalidateInterval <= 0 {
		c.Realtime.RevalidateInterval = time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 28
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "http://localhost:8080"
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = 15 * time.Second
	}
	c.KeyMappings.applyDefaults()
	c.ColorScheme.ApplyDefaults()
}
