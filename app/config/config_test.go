package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigPathEnv,
		"SERVER_HOST", "SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"TRACKER_BACKEND", "TRACKER_FILE", "SQLITE_PATH",
		"MONGO_URI", "MONGO_DB", "MONGO_COLLECTION",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY",
		"REPORT_INTERVAL", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server {
  port         = 9090
  read_timeout = "5s"
}

storage {
  backend = "redis"
  redis {
    addr = "cache:6379"
    db   = 2
  }
}

reporter {
  interval = "1m"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, "jobtracker:jobs", cfg.Storage.Redis.Key)
	assert.Equal(t, time.Minute, cfg.Reporter.Interval)
}

func TestLoadFileFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `storage { backend = "sqlite" }`)
	t.Setenv(ConfigPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server { port = 9090 }
storage { backend = "sqlite" }
`)
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("TRACKER_BACKEND", "file")
	t.Setenv("TRACKER_FILE", "/tmp/jobs.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/jobs.json", cfg.Storage.File.Path)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown backend", file: `storage { backend = "postgres" }`},
		{name: "bad duration", file: `reporter { interval = "soon" }`},
		{name: "syntax error", file: `server { port = }`},
		{name: "unknown attribute", file: `server { colour = "red" }`},
		{name: "bad env int", env: map[string]string{"SERVER_PORT": "eighty"}},
		{name: "bad env duration", env: map[string]string{"REPORT_INTERVAL": "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSyntaxErrorHasPosition(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server {\n  port = \n}\n")

	_, err := Load(path)
	require.Error(t, err)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, path, fe.File)
	assert.Positive(t, fe.Line)
}

func TestMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
