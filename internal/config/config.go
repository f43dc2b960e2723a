package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string   `toml:"port"`
	Host        string   `toml:"host"`
	ReadTimeout int      `toml:"read_timeout_seconds"`
	CORSOrigins []string `toml:"cors_allowed_origins"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// UploadsConfig contains upload storage configuration
type UploadsConfig struct {
	Root              string   `toml:"root"`
	MaxUploadMB       int64    `toml:"max_upload_mb"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	RequestLogging bool   `toml:"request_logging"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			ReadTimeout: 30,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Path:           "./music_app.db",
			MaxConnections: 5,
		},
		Uploads: UploadsConfig{
			Root:              "./uploads",
			MaxUploadMB:       100,
			AllowedExtensions: []string{".mp3", ".ogg", ".wav"},
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating the file with
// defaults when it does not exist yet.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Music Library API Configuration
# Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if len(c.Server.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be specified (use \"*\" to allow all)")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Uploads.Root == "" {
		return fmt.Errorf("uploads root cannot be empty")
	}
	if c.Uploads.MaxUploadMB < 1 {
		return fmt.Errorf("max upload size must be at least 1 MB")
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed audio extension must be specified")
	}
	for _, ext := range c.Uploads.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// SongsDir returns the directory audio files are stored in.
func (c *Config) SongsDir() string {
	return filepath.Join(c.Uploads.Root, "songs")
}

// ImagesDir returns the directory cover images are stored in.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.Uploads.Root, "images")
}

// IsExtensionAllowed checks if an audio file extension may be uploaded.
// The comparison is case-insensitive and expects a leading dot.
func (c *Config) IsExtensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.Uploads.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// MaxUploadBytes returns the multipart form size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Uploads.MaxUploadMB * 1024 * 1024
}
