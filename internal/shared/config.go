package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	BackendPlatform = "platform" // managed backend over REST (auth, rest, storage)
	BackendLocal    = "local"    // sqlite + filesystem + locally verified JWTs
)

// Config represents the application configuration loaded from a TOML file and overlaid by the environment.
//
// It is read once at process start and shared read-only between requests.
type Config struct {
	Backend  string         `toml:"backend" env:"MINDX_BACKEND"`
	Log      LogConfig      `toml:"log"`
	Platform PlatformConfig `toml:"platform"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Compiler CompilerConfig `toml:"compiler"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// PlatformConfig contains the managed backend endpoint and credentials.
type PlatformConfig struct {
	URL        string `toml:"url" env:"SUPABASE_URL"`
	ServiceKey string `toml:"service_key" env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret  string `toml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
}

// DatabaseConfig contains database connection settings for the local backend.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"MINDX_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port" env:"PORT"`
	AllowedOrigins  []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxUploadBytes  int64    `toml:"max_upload_bytes"`
	IngestRateLimit float64  `toml:"ingest_rate_limit"`
	IngestBurst     int      `toml:"ingest_burst"`

	// AllowPrivateFetch lets URL ingestion reach loopback, private and link-local hosts.
	AllowPrivateFetch bool `toml:"allow_private_fetch" env:"MINDX_ALLOW_PRIVATE_FETCH"`
}

// StorageConfig describes where artifacts live.
//
// ImagePrefix and DescriptorPrefix form the persisted layout contract that clients use to resolve descriptors.
type StorageConfig struct {
	Bucket           string `toml:"bucket"`
	ImagePrefix      string `toml:"image_prefix"`
	DescriptorPrefix string `toml:"descriptor_prefix"`
	Dir              string `toml:"dir"`
	PublicBaseURL    string `toml:"public_base_url"`
}

// CompilerConfig selects and configures the descriptor compiler backend.
type CompilerConfig struct {
	Backend   string   `toml:"backend" env:"MINDX_COMPILER"`
	Endpoint  string   `toml:"endpoint"`
	Command   []string `toml:"command"`
	RateLimit float64  `toml:"rate_limit"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AllowsAnyOrigin reports whether the allow-list contains the "*" wildcard.
func (s ServerConfig) AllowsAnyOrigin() bool {
	for _, o := range s.AllowedOrigins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// ApplyEnv overlays environment variables onto config. Unset variables leave the loaded values untouched.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	origins := make([]string, 0, len(config.Server.AllowedOrigins))
	for _, o := range config.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	config.Server.AllowedOrigins = origins
	return nil
}

// Validate checks that the selected backends are known and have the credentials they need.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPlatform:
		if c.Platform.URL == "" || c.Platform.ServiceKey == "" {
			return fmt.Errorf("%w: platform backend needs SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY", ErrMissingCredentials)
		}
	case BackendLocal:
		if c.Platform.JWTSecret == "" {
			return fmt.Errorf("%w: local backend needs SUPABASE_JWT_SECRET", ErrMissingCredentials)
		}
		if c.Database.Path == "" || c.Storage.Dir == "" {
			return fmt.Errorf("%w: local backend needs database.path and storage.dir", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownBackend, c.Backend)
	}

	if c.Storage.Bucket == "" || c.Storage.ImagePrefix == "" || c.Storage.DescriptorPrefix == "" {
		return fmt.Errorf("%w: storage bucket and prefixes are required", ErrInvalidConfig)
	}
	if c.Storage.ImagePrefix == c.Storage.DescriptorPrefix {
		return fmt.Errorf("%w: image and descriptor prefixes must differ", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
