package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\nauth:\n  jwt_secret: s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, ModeDev, cfg.Mode)
	assert.Equal(t, ":8443", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, DriverMySQL, cfg.DB.Driver)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, ViewerReadOnly, cfg.Auth.ViewerAccess)
	assert.Equal(t, "XOF", cfg.Reports.Currency)
	assert.Equal(t, 5000, cfg.Reports.NotesMaxLength)
	assert.NoError(t, cfg.Validate())

	wd, err := cfg.Reports.Weekday()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wd)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Parse([]byte(`
mode: staging
database:
  driver: postgres
reports:
  week_start: friday
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode must be")
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "week_start")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: release
database:
  driver: sqlite
auth:
  jwt_secret: from-file
`), 0o600))

	t.Setenv("RS_JWT_SECRET", "from-env")
	t.Setenv("RS_DB_PATH", ":memory:")
	t.Setenv("RS_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigDriverFromEnvGetsDriverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: mysql
  host: db
auth:
  jwt_secret: s
`), 0o600))

	t.Setenv("RS_DB_DRIVER", "sqlite")
	t.Setenv("RS_DB_PATH", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "data/reports.db", cfg.DB.Path)
}
