package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"CONFIG_FILE", "PORT", "DB_TYPE", "POSTGRES_URL", "SQLITE_PATH", "MONGO_URL", "MONGO_DATABASE",
	"SESSION_SECRET", "SESSION_ENCRYPTION_KEY", "SESSION_MAX_AGE", "SESSION_SECURE",
	"BCRYPT_COST", "SHUTDOWN_TIMEOUT_SECONDS",
}

// clearEnv blanks every key LoadConfig reads; empty values are ignored.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

const testSecret = "test-session-secret-0123456789"

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DBSQLite, cfg.DBType)
	assert.Equal(t, "usermanagement.db", cfg.SQLitePath)
	assert.Equal(t, 1209600, cfg.SessionMaxAge)
	assert.False(t, cfg.SessionSecure)
	assert.Equal(t, testSecret, cfg.SessionSecret)
}

func TestLoadConfig_SessionSecretRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", DBMemory)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET not set")

	assert.Empty(t, Defaults().SessionSecret)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
db_type: postgres
postgres_url: postgres://file
session_secret: file-secret-0123456789
session_max_age: 60
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POSTGRES_URL", "postgres://env")
	t.Setenv("SESSION_SECURE", "true")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, DBPostgres, cfg.DBType)
	assert.Equal(t, "postgres://env", cfg.PostgresURL)
	assert.Equal(t, "file-secret-0123456789", cfg.SessionSecret)
	assert.Equal(t, 60, cfg.SessionMaxAge)
	assert.True(t, cfg.SessionSecure)
	assert.Equal(t, 4, cfg.BcryptCost)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown db", map[string]string{"DB_TYPE": "oracle"}},
		{"postgres without url", map[string]string{"DB_TYPE": "postgres"}},
		{"mongo without url", map[string]string{"DB_TYPE": "mongo"}},
		{"bad int", map[string]string{"SESSION_MAX_AGE": "soon"}},
		{"bad bool", map[string]string{"SESSION_SECURE": "maybe"}},
		{"short secret", map[string]string{"SESSION_SECRET": "short"}},
		{"bad block key", map[string]string{"SESSION_ENCRYPTION_KEY": "abc"}},
		{"bad cost", map[string]string{"BCRYPT_COST": "40"}},
		{"missing file", map[string]string{"CONFIG_FILE": "/nonexistent/app.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SESSION_SECRET", testSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestValidate_Memory(t *testing.T) {
	cfg := Defaults()
	cfg.DBType = DBMemory
	cfg.SessionSecret = testSecret
	assert.NoError(t, cfg.Validate())
}
