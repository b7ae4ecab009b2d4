package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "0 0 9 * * *", cfg.Nudges.Schedule)
	assert.Equal(t, 5*time.Minute, cfg.Auth.UserTouchTTL.Std())
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"server": {"port": 9001, "read_timeout": "3s"},
		"database": {"driver": "postgres", "db_name": "fromfile"},
		"auth": {"mode": "dev", "dev_secret": "0123456789abcdef"},
		"storage": {"bucket": "exports", "presign_ttl": "1m"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("DATABASE_DBNAME", "fromenv")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("NUDGES_ENABLED", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "fromenv", cfg.Database.DBName)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Nudges.Enabled)
	assert.Equal(t, time.Minute, cfg.Storage.PresignTTL.Std())
	assert.True(t, cfg.Storage.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"firebase with project", func(c *Config) { c.Auth.FirebaseProjectID = "vibe" }, true},
		{"firebase without project", func(c *Config) {}, false},
		{"dev short secret", func(c *Config) {
			c.Auth.Mode = AuthModeDev
			c.Auth.DevSecret = "short"
		}, false},
		{"unknown driver", func(c *Config) {
			c.Auth.FirebaseProjectID = "vibe"
			c.Database.Driver = "sqlite"
		}, false},
		{"port out of range", func(c *Config) {
			c.Auth.FirebaseProjectID = "vibe"
			c.Server.Port = 70000
		}, false},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "basic" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAddresses(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.GetServerAddr())
	assert.Equal(t, "postgres://"+cfg.Database.User+":@localhost:5432/vibetracker?sslmode=disable", cfg.Database.GetDatabaseURL())
}
