package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfigGroupedSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "JWTSecret": "s3cret", "AllowedOrigins": ["https://blog.example"]},
		"store": {"Driver": "postgres", "TimeoutMS": 1500},
		"mongo": {"URI": "mongodb://db:27017", "Database": "blog"},
		"redis": {"RedisHost": "cache", "CacheTTLSeconds": 30},
		"author": {"Usernames": ["alice"], "SeedUsername": "alice", "SeedPassword": "pw"}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, []string{"https://blog.example"}, c.AllowedOrigins)
	assert.Equal(t, DriverPostgres, c.StoreDriver)
	assert.Equal(t, 1500, c.StoreTimeoutMS)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, "blog", c.MongoDatabase)
	assert.Equal(t, "cache", c.RedisHost)
	assert.Equal(t, 6379, c.RedisPort)
	assert.Equal(t, 30, c.CacheTTLSeconds)
	assert.True(t, c.IsAuthorUsername("ALICE"))
	assert.False(t, c.IsAuthorUsername("bob"))
}

func TestLoadJSONConfigMissingFile(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("CORS_ALLOWED_ORIGINS", " a.example , ,b.example")
	t.Setenv("AUTHOR_USERNAMES", "alice,bob")
	t.Setenv("STORE_TIMEOUT_MS", "250")

	c := AppConfig{StoreDriver: DriverMemory}
	applyEnvOverrides(&c)

	assert.Equal(t, DriverMongo, c.StoreDriver)
	assert.Equal(t, []string{"a.example", "b.example"}, c.AllowedOrigins)
	assert.Equal(t, []string{"alice", "bob"}, c.AuthorUsernames)
	assert.Equal(t, 250, c.StoreTimeoutMS)
}

func TestDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, DriverMemory, c.StoreDriver)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 1440, c.TokenTTLMinutes)
}

func TestDialectorRejectsNonRelationalDriver(t *testing.T) {
	_, err := dialectorFor(AppConfig{StoreDriver: DriverMongo})
	assert.Error(t, err)

	d, err := dialectorFor(AppConfig{StoreDriver: DriverPostgres, DBHost: "h", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

func TestDefaultPortFollowsDriverFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")

	var c AppConfig
	applyEnvOverrides(&c)
	applyDefaults(&c)

	assert.Equal(t, DriverPostgres, c.StoreDriver)
	assert.Equal(t, "5432", c.DBPort)
}
