package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Running-event source kinds.
const (
	EventsFeed = "feed"
	EventsCSV  = "csv"
)

// Attraction source kinds.
const (
	AttractionsStatic  = "static"
	AttractionsCSV     = "csv"
	AttractionsPostGIS = "postgis"
)

// Ingestion modes.
const (
	IngestInline   = "inline"
	IngestWorkflow = "workflow"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Viewers   ViewersConfig   `mapstructure:"viewers"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SourcesConfig struct {
	Events      EventsSourceConfig     `mapstructure:"events"`
	Attractions AttractionSourceConfig `mapstructure:"attractions"`
	// HTTPTimeout bounds every remote fetch, in seconds.
	HTTPTimeout int `mapstructure:"http_timeout"`
}

type EventsSourceConfig struct {
	// Kind is feed (JSON document) or csv.
	Kind         string `mapstructure:"kind"`
	URL          string `mapstructure:"url"`
	FallbackPath string `mapstructure:"fallback_path"`
}

type AttractionSourceConfig struct {
	Kind      string `mapstructure:"kind"`
	URL       string `mapstructure:"url"`
	Path      string `mapstructure:"path"`
	Delimiter string `mapstructure:"delimiter"`
	DSN       string `mapstructure:"dsn"`
	Query     string `mapstructure:"query"`
}

type IngestConfig struct {
	Mode string `mapstructure:"mode"`
}

type ViewersConfig struct {
	// TTL is the idle lifetime of a viewer session, in seconds.
	TTL int `mapstructure:"ttl"`
}

func (v ViewersConfig) TTLDuration() time.Duration {
	return time.Duration(v.TTL) * time.Second
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: POIMAP_SOURCES_EVENTS_URL → sources.events.url
	v.SetEnvPrefix("POIMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sources.http_timeout", 30)
	v.SetDefault("sources.events.kind", EventsFeed)
	v.SetDefault("sources.events.url", "")
	v.SetDefault("sources.events.fallback_path", "")
	v.SetDefault("sources.attractions.kind", AttractionsStatic)
	v.SetDefault("sources.attractions.url", "")
	v.SetDefault("sources.attractions.path", "")
	v.SetDefault("sources.attractions.delimiter", ",")
	v.SetDefault("sources.attractions.dsn", "")
	v.SetDefault("sources.attractions.query", "")
	v.SetDefault("ingest.mode", IngestInline)
	v.SetDefault("viewers.ttl", 1800)
	v.SetDefault("nats.url", "")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "poimap-ingest")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Sources.HTTPTimeout <= 0 {
		errs = append(errs, "sources.http_timeout must be positive")
	}
	if c.Viewers.TTL <= 0 {
		errs = append(errs, "viewers.ttl must be positive")
	}

	switch c.Sources.Events.Kind {
	case EventsFeed, EventsCSV:
	default:
		errs = append(errs, fmt.Sprintf("sources.events.kind must be feed or csv, got %q", c.Sources.Events.Kind))
	}

	a := c.Sources.Attractions
	switch a.Kind {
	case AttractionsStatic:
	case AttractionsCSV:
		if a.URL == "" && a.Path == "" {
			errs = append(errs, "sources.attractions.url or sources.attractions.path is required for kind csv")
		}
		if len([]rune(a.Delimiter)) != 1 {
			errs = append(errs, fmt.Sprintf("sources.attractions.delimiter must be one character, got %q", a.Delimiter))
		}
	case AttractionsPostGIS:
		if a.DSN == "" {
			errs = append(errs, "sources.attractions.dsn is required for kind postgis")
		}
	default:
		errs = append(errs, fmt.Sprintf("sources.attractions.kind must be static, csv or postgis, got %q", a.Kind))
	}

	switch c.Ingest.Mode {
	case IngestInline:
	case IngestWorkflow:
		if c.NATS.URL == "" {
			errs = append(errs, "nats.url is required for ingest mode workflow")
		}
		if c.Temporal.HostPort == "" {
			errs = append(errs, "temporal.host_port is required for ingest mode workflow")
		}
	default:
		errs = append(errs, fmt.Sprintf("ingest.mode must be inline or workflow, got %q", c.Ingest.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// DelimiterRune returns the configured CSV delimiter.
func (a AttractionSourceConfig) DelimiterRune() rune {
	r := []rune(a.Delimiter)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}
