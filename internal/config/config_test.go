package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseServer(t *testing.T, args ...string) *Server {
	t.Helper()
	cfg := &Server{}
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	cfg.Flags(fs)
	require.NoError(t, fs.Parse(args))
	ApplyEnv(fs)
	return cfg
}

func TestServerDefaults(t *testing.T) {
	cfg := parseServer(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 1, cfg.TotalRounds)
	assert.Equal(t, 2, cfg.DefaultPlayerCount)
	assert.Zero(t, cfg.TurnTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenLifetime())
	assert.Equal(t, "pongai_actions", cfg.RedisQueue)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestServerEnvOverlay(t *testing.T) {
	t.Setenv("PONGAI_PORT", "9090")
	t.Setenv("PONGAI_TURN_TIMEOUT", "45s")
	t.Setenv("PONGAI_TOKEN_EXPIRY", "never")
	t.Setenv("PONGAI_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PONGAI_TOTAL_ROUNDS", "3")

	cfg := parseServer(t, "--total-rounds", "2")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.TurnTimeout)
	assert.Zero(t, cfg.TokenLifetime())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2, cfg.TotalRounds, "command line wins over env")
}

func TestServerValidate(t *testing.T) {
	cfg := parseServer(t, "--port", "0", "--total-rounds", "0", "--token-expiry", "later")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "total rounds")
	assert.Contains(t, err.Error(), "token expire time")
}

func TestHistorianConfig(t *testing.T) {
	cfg := &Historian{}
	fs := pflag.NewFlagSet("historian", pflag.ContinueOnError)
	cfg.Flags(fs)
	require.NoError(t, fs.Parse(nil))

	err := cfg.Validate()
	require.Error(t, err, "database url is required")

	t.Setenv("PONGAI_DATABASE_URL", "postgres://localhost/pongai")
	t.Setenv("PONGAI_BATCH_SIZE", "50")
	ApplyEnv(fs)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}
