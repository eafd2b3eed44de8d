package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultUpdatableStages, cfg.Timeline.UpdatableStages)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
db:
  driver: memory
  host: db.internal
auth:
  issuer: https://issuer.example.com/
  client_id: dashboard
timeline:
  updatable_stages: ["Spawn Run", "Case Run"]
log:
  format: json
`), 0o600))

	t.Setenv("AGRO_DB_HOST", "override.internal")
	t.Setenv("AGRO_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, "override.internal", cfg.DB.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://issuer.example.com", cfg.Auth.Issuer)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, []string{"Spawn Run", "Case Run"}, cfg.Timeline.UpdatableStages)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.DB.Driver = "postgres"
		c.Timeline.UpdatableStages = DefaultUpdatableStages
		return c
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.DB.Driver = "sqlite"
	assert.ErrorContains(t, c.Validate(), "db.driver")

	c = base()
	c.TLS.Enable = true
	assert.ErrorContains(t, c.Validate(), "tls.enable")

	c = base()
	c.Timeline.UpdatableStages = nil
	assert.ErrorContains(t, c.Validate(), "updatable_stages")
}

func TestDatabaseURL(t *testing.T) {
	c := &Config{}
	c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode = "u", "p", "h", 5433, "agro", "require"
	assert.Equal(t, "postgres://u:p@h:5433/agro?sslmode=require", c.DatabaseURL())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Spawn Run", "Venting"}, splitList([]string{" Spawn Run , Venting,"}))
}
