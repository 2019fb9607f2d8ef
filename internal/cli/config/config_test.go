package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.EqualValues(t, 4<<20, cfg.Server.MaxBodyBytes)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Validation.Lenient)
	assert.Empty(t, cfg.Validation.Rules)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := `
server:
  port: 9090
  cors_origins: ["https://catalogue.example.org"]
database:
  driver: postgres
  url: postgres://localhost/metadata
cache:
  backend: redis
  ttl: 1m
  redis:
    addr: redis:6379
schema:
  extensions: [ext/observation.yaml]
validation:
  lenient: true
  rules: [georectified-corner-points]
log:
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metaschema.yaml"), []byte(content), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://catalogue.example.org"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/metadata", cfg.Database.URL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, []string{"ext/observation.yaml"}, cfg.Schema.Extensions)
	assert.True(t, cfg.Validation.Lenient)
	assert.Equal(t, []string{"georectified-corner-points"}, cfg.Validation.Rules)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("METASCHEMA_SERVER_PORT", "9191")
	t.Setenv("METASCHEMA_AUTH_SECRET", "a-very-long-secret-value")
	t.Setenv("METASCHEMA_VALIDATION_RULES", "all")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "a-very-long-secret-value", cfg.Auth.Secret)
	assert.Equal(t, []string{"all"}, cfg.Validation.Rules)
}

func TestLoad_Flags(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("METASCHEMA_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Int("port", 8080, "")
	flags.Bool("lenient", false, "")
	require.NoError(t, flags.Parse([]string{"--port", "6060", "--lenient"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
	assert.True(t, cfg.Validation.Lenient)
	// unchanged flags do not override the environment
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, base.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"tls pair", func(c *Config) { c.Server.TLSCertFile = "cert.pem" }, "tls_key_file"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"cache", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"secret", func(c *Config) { c.Auth.Secret = "short" }, "auth.secret"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
