package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
api:
  port: "9090"
  jwt_signing_key: secret
store:
  driver: fixture
cache:
  default_stale_time: 45s
  stale_times:
    leaderboard: 2m
    eco-tips: 30m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", conf.API.Port)
	assert.Equal(t, "secret", conf.API.JWTSigningKey)
	assert.Equal(t, StoreDriverFixture, conf.Store.Driver)
	assert.Equal(t, 45*time.Second, conf.Cache.DefaultStaleTime)
	assert.Equal(t, 2*time.Minute, conf.Cache.StaleTimes["leaderboard"])
	assert.Equal(t, 30*time.Minute, conf.Cache.StaleTimes["eco-tips"])
}

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load(writeConfig(t, "api:\n  port: \"1\"\n"))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, conf.Store.Driver)
	assert.Equal(t, 100, conf.Gamification.PapersPerLevel)
	assert.Equal(t, 20, conf.Leaderboard.Limit)
	assert.Empty(t, conf.Leaderboard.SnapshotSchedule)
	assert.Equal(t, uint64(1), conf.Cache.RetryAttempts)
	assert.Equal(t, time.Second, conf.Cache.RetryBackoff)
}

func TestLoad_UnknownDriver(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  driver: mongo\n"))
	assert.ErrorIs(t, err, ErrUnknownStoreDriver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := &PostgresConfig{Host: "h", Port: "5432", User: "u", Password: "p", DB: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}
