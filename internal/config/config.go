// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/georef/internal/domain"
)

// EnvPrefix is the prefix of environment variables that override
// configuration keys, e.g. GEOREF_SERVER_PORT.
const EnvPrefix = "GEOREF"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Transform TransformConfig `mapstructure:"transform"`
	Cache     CacheConfig     `mapstructure:"cache"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	MaxPoints       int           `mapstructure:"max_points"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// CatalogConfig describes where the code catalog and the definition
// dictionary live.
type CatalogConfig struct {
	Dir            string        `mapstructure:"dir"`
	Name           string        `mapstructure:"name"` // catalog database file name, e.g. epsg.db
	Watch          bool          `mapstructure:"watch"`
	WatchDebounce  time.Duration `mapstructure:"watch_debounce"`
	SyncInterval   time.Duration `mapstructure:"sync_interval"` // 0 disables periodic sync
	SeedIfMissing  bool          `mapstructure:"seed_if_missing"`
	DictionaryFile string        `mapstructure:"dictionary_file"`
}

// StorageConfig holds object storage configuration for catalog sync.
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // s3, azure, http, local
	S3    S3Config    `mapstructure:"s3"`
	Azure AzureConfig `mapstructure:"azure"`
	HTTP  HTTPConfig  `mapstructure:"http"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP download configuration.
type HTTPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	IndexFile string        `mapstructure:"index_file"` // default: index.txt
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
}

// EngineConfig selects the projection engine.
type EngineConfig struct {
	Type string `mapstructure:"type"` // wgs84, proj
}

// TransformConfig holds the transformation defaults.
type TransformConfig struct {
	CheckWithInvert bool    `mapstructure:"check_with_invert"`
	Threshold       float64 `mapstructure:"threshold"`

	// CenterLong is NaN when unset.
	CenterLong float64 `mapstructure:"center_long"`
}

// CenterLongitude returns the configured wrap center, or nil when unset.
func (c *TransformConfig) CenterLongitude() *float64 {
	if math.IsNaN(c.CenterLong) {
		return nil
	}
	v := c.CenterLong
	return &v
}

// CacheConfig holds the definition cache configuration.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity uint64        `mapstructure:"capacity"`
}

// TLSConfig holds TLS/CertMagic configuration.
type TLSConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Domains  []string `mapstructure:"domains"`
	Email    string   `mapstructure:"email"`
	CacheDir string   `mapstructure:"cache_dir"`
	Staging  bool     `mapstructure:"staging"` // Use Let's Encrypt staging

	// DNS01 switches the ACME challenge to DNS with Azure DNS.
	DNS01 AzureDNSConfig `mapstructure:"dns01"`
}

// AzureDNSConfig holds the Azure DNS zone used for DNS-01 challenges.
// Authentication uses a managed identity.
type AzureDNSConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	SubscriptionID    string `mapstructure:"subscription_id"`
	ResourceGroupName string `mapstructure:"resource_group_name"`
	ClientID          string `mapstructure:"client_id"` // user assigned identity; empty uses the system identity
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`   // empty logs to stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Defaults sets the default configuration values.
func Defaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_body_bytes", 4<<20)
	viper.SetDefault("server.max_points", 100000)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	// Catalog defaults
	viper.SetDefault("catalog.dir", "./data")
	viper.SetDefault("catalog.name", "epsg.db")
	viper.SetDefault("catalog.watch", true)
	viper.SetDefault("catalog.watch_debounce", 500*time.Millisecond)
	viper.SetDefault("catalog.sync_interval", 0)
	viper.SetDefault("catalog.seed_if_missing", true)
	viper.SetDefault("catalog.dictionary_file", "")

	// Storage defaults
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.http.index_file", "index.txt")
	viper.SetDefault("storage.http.timeout", 5*time.Minute)

	viper.SetDefault("engine.type", "wgs84")

	// Transform defaults
	viper.SetDefault("transform.check_with_invert", false)
	viper.SetDefault("transform.threshold", 0.0)
	viper.SetDefault("transform.center_long", math.NaN())

	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("cache.capacity", 4096)

	// TLS defaults
	viper.SetDefault("tls.enabled", false)
	viper.SetDefault("tls.cache_dir", "./.certmagic")
	viper.SetDefault("tls.staging", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.namespace", "georef")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.max_size_mb", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age_days", 28)
	viper.SetDefault("logging.compress", true)
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/georef")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func invalid(field, format string, args ...any) error {
	return &domain.ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate validates the configuration. Failures are *domain.ConfigError.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", "invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxPoints < 0 {
		return invalid("server.max_points", "must not be negative")
	}

	if c.TLS.Enabled {
		if len(c.TLS.Domains) == 0 {
			return invalid("tls.domains", "TLS enabled but no domains specified")
		}
		if c.TLS.Email == "" {
			return invalid("tls.email", "TLS enabled but no email specified")
		}
		if d := c.TLS.DNS01; d.Enabled && (d.SubscriptionID == "" || d.ResourceGroupName == "") {
			return invalid("tls.dns01", "subscription id and resource group are required")
		}
	}

	if c.Catalog.Dir == "" {
		return invalid("catalog.dir", "catalog directory is required")
	}

	switch c.Engine.Type {
	case "", "wgs84", "proj":
	default:
		return invalid("engine.type", "unknown engine: %s", c.Engine.Type)
	}

	if c.Transform.Threshold < 0 {
		return invalid("transform.threshold", "must not be negative")
	}
	if lon := c.Transform.CenterLong; !math.IsNaN(lon) && (lon < -180 || lon > 180) {
		return invalid("transform.center_long", "must be within [-180, 180]: %g", lon)
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return invalid("storage.s3.bucket", "S3 bucket is required")
		}
		if c.Storage.S3.Region == "" {
			return invalid("storage.s3.region", "S3 region is required")
		}
	case "azure":
		if c.Storage.Azure.Container == "" {
			return invalid("storage.azure.container", "azure container is required")
		}
		if c.Storage.Azure.AccountName == "" && c.Storage.Azure.ConnectionString == "" {
			return invalid("storage.azure", "azure account name or connection string is required")
		}
	case "http":
		if c.Storage.HTTP.BaseURL == "" {
			return invalid("storage.http.base_url", "HTTP base URL is required")
		}
	default:
		return invalid("storage.type", "unknown storage type: %s", c.Storage.Type)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return invalid("logging.format", "unknown log format: %s", c.Logging.Format)
	}

	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RemoteSync reports whether catalog files come from a remote store.
func (c *StorageConfig) RemoteSync() bool {
	return c.Type != "" && c.Type != "local"
}
