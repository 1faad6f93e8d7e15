package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

const (
	PhotoBackendImageApi = "image_api"
	PhotoBackendS3       = "s3"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MetricsPort int    `toml:"metrics_port"`
	// time zone of the day keys, e.g. Europe/Madrid
	Timezone string `toml:"timezone"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`

	// rotated log files kept, 0 keeps them all
	LogMaxBackups int  `toml:"log_max_backups"`
	LogMaxAgeDays int  `toml:"log_max_age_days"`
	SentryEnabled bool `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	MigrateOnStart bool   `toml:"migrate_on_start"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// auth
	AllowedOrigins         []string      `toml:"allowed_origins"`
	SessionTTL             time.Duration `toml:"session_ttl"`
	SessionCleanupInterval time.Duration `toml:"session_cleanup_interval"`
	AuthRateLimitPerMin    int           `toml:"auth_rate_limit_per_min"`

	// dashboard
	DashboardSnapshotTTL time.Duration `toml:"dashboard_snapshot_ttl"`

	// photos
	PhotoBackend string `toml:"photo_backend"`
	ImageApiURL  string `toml:"image_api_url"`
	S3Region     string `toml:"s3_region"`
	S3Endpoint   string `toml:"s3_endpoint"`
	S3Bucket     string `toml:"s3_bucket"`

	// ai meal parsing, disabled without a project
	VertexProjectID string `toml:"vertex_project_id"`
	VertexLocation  string `toml:"vertex_location"`
	VertexModel     string `toml:"vertex_model"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config for env: %s", env)
	}
	return cfg, nil
}

// Load reads the env section of the TOML file at path, applies defaults and validates it
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults(env)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", env, err)
	}
	return cfg, nil
}

func (c *Config) setDefaults(env string) {
	if c.Environment == "" {
		c.Environment = strings.ToLower(env)
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 2112
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Madrid"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 30 * 24 * time.Hour
	}
	if c.SessionCleanupInterval == 0 {
		c.SessionCleanupInterval = time.Hour
	}
	if c.AuthRateLimitPerMin == 0 {
		c.AuthRateLimitPerMin = 10
	}
	if c.DashboardSnapshotTTL == 0 {
		c.DashboardSnapshotTTL = time.Minute
	}
	if c.PhotoBackend == "" {
		c.PhotoBackend = PhotoBackendImageApi
	}
	if c.VertexLocation == "" {
		c.VertexLocation = "europe-west1"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDBName == "" {
		errs = append(errs, errors.New("postgres host, port and db name are required"))
	}
	if c.RedisHost == "" || c.RedisPort == "" {
		errs = append(errs, errors.New("redis host and port are required"))
	}
	if c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		errs = append(errs, errors.New("log retention cannot be negative"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	switch c.PhotoBackend {
	case PhotoBackendImageApi:
		if c.ImageApiURL == "" {
			errs = append(errs, errors.New("image_api_url is required by the image_api photo backend"))
		}
	case PhotoBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3_bucket is required by the s3 photo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown photo backend: %s", c.PhotoBackend))
	}
	return multierr.Combine(errs...)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// AIEnabled tells whether meal photos can be parsed
func (c *Config) AIEnabled() bool {
	return c.VertexProjectID != ""
}
