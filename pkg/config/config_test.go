package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
generation:
  window_size: 2d
  top_k: 5
postgres:
  host: db.example.com
  database: retail
`)
	t.Setenv("PGHOST", "override.example.com")
	t.Setenv("PGPASSWORD", "secret")
	t.Setenv("TRANE_SEED", "42")

	cfg, err := Load(path, "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "override.example.com", cfg.Postgres.Host)
	assert.Equal(t, "retail", cfg.Postgres.Database)
	assert.Equal(t, "secret", cfg.Postgres.Password)

	window, err := cfg.Generation.Window()
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, window)

	thresholds := cfg.Generation.Thresholds()
	assert.Equal(t, 5, thresholds.TopK)
	assert.Equal(t, 10, thresholds.NumQuantiles)
	assert.Equal(t, uint64(42), thresholds.Seed)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "v")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "24h", cfg.Generation.WindowSize)
	assert.Equal(t, 4, cfg.Labeling.MaxConcurrent)
	assert.True(t, cfg.Labeling.Options().DropEmpty)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 1433, cfg.MSSQL.Port)

	inference := cfg.Inference.Config()
	assert.Equal(t, -1, inference.NumericCategoricalThreshold)
	assert.Equal(t, 0.5, inference.CategoricalMaxUniqueRatio)
}

func TestLoad_PasswordNotReadFromYAML(t *testing.T) {
	path := writeConfig(t, `
postgres:
  password: from-yaml
`)
	t.Setenv("PGPASSWORD", "")
	cfg, err := Load(path, "v")
	require.NoError(t, err)
	assert.Empty(t, cfg.Postgres.Password)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad window", "generation:\n  window_size: soon\n"},
		{"bad level", "log_level: loud\n"},
		{"too few quantiles", "generation:\n  num_quantiles: 1\n"},
		{"bad top k", "generation:\n  top_k: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), "v")
			assert.Error(t, err)
		})
	}
}

func TestConnectionStrings_EscapeCredentials(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", Database: "retail", SSLMode: "disable"}
	assert.Equal(t, "postgresql://app:p%40ss%2Fword@db:5432/retail?sslmode=disable", pg.ConnectionString())

	ms := MSSQLConfig{Host: "db", Port: 1433, User: "sa", Password: "p@ss", Database: "retail", Encrypt: false}
	assert.Equal(t, "sqlserver://sa:p%40ss@db:1433?database=retail&encrypt=disable", ms.ConnectionString())
}

func TestResolveHostForDocker(t *testing.T) {
	for _, host := range []string{"mydb.example.com", "192.168.1.100", "host.docker.internal"} {
		assert.Equal(t, host, ResolveHostForDocker(host))
	}
	for _, host := range []string{"localhost", "127.0.0.1", "::1", "LOCALHOST"} {
		want := host
		if IsRunningInDocker() {
			want = dockerHostAlias
		}
		assert.Equal(t, want, ResolveHostForDocker(host))
	}
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("[::1]"))
	assert.True(t, isLoopback("Localhost"))
	assert.False(t, isLoopback("db.internal"))
	assert.False(t, isLoopback(""))
}
