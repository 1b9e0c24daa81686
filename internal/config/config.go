package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, honoring container environments
func (c ServerConfig) GetHost() string {
	if os.Getenv("CONTAINER") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional Redis connection used for upload progress
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuthConfig holds session authentication settings
type AuthConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CookieName     string `yaml:"cookie_name"`
	SessionTTLMins int    `yaml:"session_ttl_minutes"`
}

// SessionTTL returns the configured session lifetime as a duration
func (c AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMins) * time.Minute
}

// UploadsConfig holds spreadsheet/photo upload settings
type UploadsConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// MaxSizeBytes returns the upload cap in bytes
func (c UploadsConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// CORSConfig holds the allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5500
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "institution_session"
	}
	if c.Auth.SessionTTLMins == 0 {
		c.Auth.SessionTTLMins = 8 * 60
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.MaxSizeMB == 0 {
		c.Uploads.MaxSizeMB = 5
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:5500"}
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is read first when present, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		// Missing config file is fine when the environment provides
		// everything; start from defaults.
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		cfg.Uploads.Dir = dir
	}

	return cfg, nil
}
