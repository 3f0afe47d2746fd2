package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Sources: SourcesConfig{
			HTTPTimeout: 30,
			Events:      EventsSourceConfig{Kind: EventsFeed},
			Attractions: AttractionSourceConfig{Kind: AttractionsStatic, Delimiter: ","},
		},
		Ingest:  IngestConfig{Mode: IngestInline},
		Viewers: ViewersConfig{TTL: 60},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("poimap-test")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, AttractionsStatic, cfg.Sources.Attractions.Kind)
	assert.Equal(t, EventsFeed, cfg.Sources.Events.Kind)
	assert.Equal(t, IngestInline, cfg.Ingest.Mode)
	assert.Equal(t, "poimap-test", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1800, cfg.Viewers.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POIMAP_SERVER_PORT", "9090")
	t.Setenv("POIMAP_SOURCES_EVENTS_URL", "https://example.com/events.json")
	t.Setenv("POIMAP_SOURCES_ATTRACTIONS_KIND", "csv")
	t.Setenv("POIMAP_SOURCES_ATTRACTIONS_URL", "https://example.com/parks.csv")

	cfg, err := Load("poimap-test")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://example.com/events.json", cfg.Sources.Events.URL)
	assert.Equal(t, AttractionsCSV, cfg.Sources.Attractions.Kind)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POIMAP_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("POIMAP_LOG_LEVEL") })

	cfg, err := Load("poimap-test")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad port":            func(c *Config) { c.Server.Port = 0 },
		"csv without source":  func(c *Config) { c.Sources.Attractions.Kind = AttractionsCSV },
		"csv bad delimiter":   func(c *Config) { c.Sources.Attractions = AttractionSourceConfig{Kind: AttractionsCSV, Path: "x", Delimiter: ",,"} },
		"postgis without dsn": func(c *Config) { c.Sources.Attractions.Kind = AttractionsPostGIS },
		"unknown kind":        func(c *Config) { c.Sources.Attractions.Kind = "kml" },
		"unknown events kind": func(c *Config) { c.Sources.Events.Kind = "rss" },
		"workflow no nats":    func(c *Config) { c.Ingest.Mode = IngestWorkflow; c.Temporal.HostPort = "x" },
		"unknown mode":        func(c *Config) { c.Ingest.Mode = "cron" },
		"zero ttl":            func(c *Config) { c.Viewers.TTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, ';', AttractionSourceConfig{Delimiter: ";"}.DelimiterRune())
	assert.Equal(t, ',', AttractionSourceConfig{}.DelimiterRune())
}
