// Package config holds the command line and environment settings of the
// pongai binaries.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/pongai/internal/auth"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PONGAI_PORT.
const EnvPrefix = "PONGAI"

// Server configures cmd/server.
type Server struct {
	Bind               string
	Port               int
	PublicURL          string
	AllowedOrigins     []string
	TotalRounds        int
	DefaultPlayerCount int
	TurnTimeout        time.Duration
	TokenExpiry        string
	RedisAddr          string
	RedisDB            int
	RedisQueue         string
	DatabaseURL        string
	Verbose            bool
}

// Flags registers the server flags on fs.
func (c *Server) Flags(fs *pflag.FlagSet) {
	normalize(fs)

	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: PONGAI_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: PONGAI_PORT)")
	fs.StringVar(&c.PublicURL, "public-url", "", "base URL encoded in join QR codes; defaults to the request host (env: PONGAI_PUBLIC_URL)")
	fs.StringSliceVar(&c.AllowedOrigins, "allowed-origins", nil, "comma separated CORS/WebSocket origins; empty allows any (env: PONGAI_ALLOWED_ORIGINS)")
	fs.IntVar(&c.TotalRounds, "total-rounds", 1, "rounds per game (env: PONGAI_TOTAL_ROUNDS)")
	fs.IntVar(&c.DefaultPlayerCount, "players", 2, "players per team when a game is created without a size (env: PONGAI_PLAYERS)")
	fs.DurationVar(&c.TurnTimeout, "turn-timeout", 0, "auto-submit a player's draft after this long; 0 disables (env: PONGAI_TURN_TIMEOUT)")
	fs.StringVar(&c.TokenExpiry, "token-expiry", "24h", "player token lifetime, or \"never\" (env: PONGAI_TOKEN_EXPIRY)")
	redisFlags(fs, &c.RedisAddr, &c.RedisDB, &c.RedisQueue, "")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "postgres URL for game results; empty disables (env: PONGAI_DATABASE_URL)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "log at debug level (env: PONGAI_VERBOSE)")
}

// Validate checks ranges and parses the token expiry.
func (c *Server) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port))
	}
	if c.TotalRounds < 1 {
		errs = append(errs, fmt.Errorf("total rounds must be at least 1: %d", c.TotalRounds))
	}
	if c.DefaultPlayerCount < 1 {
		errs = append(errs, fmt.Errorf("players must be at least 1: %d", c.DefaultPlayerCount))
	}
	if c.TurnTimeout < 0 {
		errs = append(errs, fmt.Errorf("turn timeout must not be negative: %s", c.TurnTimeout))
	}
	if _, err := auth.ParseExpiry(c.TokenExpiry); err != nil {
		errs = append(errs, err)
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("invalid redis db: %d", c.RedisDB))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Server) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// TokenLifetime is the parsed token expiry; call Validate first.
func (c *Server) TokenLifetime() time.Duration {
	d, _ := auth.ParseExpiry(c.TokenExpiry)
	return d
}

// Historian configures cmd/historian.
type Historian struct {
	RedisAddr       string
	RedisDB         int
	RedisQueue      string
	DatabaseURL     string
	BatchSize       int
	FlushDelay      time.Duration
	Inactivity      time.Duration
	InactivityCheck time.Duration
	Verbose         bool
}

// Flags registers the historian flags on fs.
func (c *Historian) Flags(fs *pflag.FlagSet) {
	normalize(fs)

	redisFlags(fs, &c.RedisAddr, &c.RedisDB, &c.RedisQueue, "localhost:6379")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "postgres URL (env: PONGAI_DATABASE_URL)")
	fs.IntVar(&c.BatchSize, "batch-size", 20, "actions per insert transaction (env: PONGAI_BATCH_SIZE)")
	fs.DurationVar(&c.FlushDelay, "flush-delay", 500*time.Millisecond, "flush partial batches this often (env: PONGAI_FLUSH_DELAY)")
	fs.DurationVar(&c.Inactivity, "inactivity", 10*time.Minute, "mark games abandoned after this long without actions (env: PONGAI_INACTIVITY)")
	fs.DurationVar(&c.InactivityCheck, "inactivity-check", time.Minute, "how often to look for abandoned games (env: PONGAI_INACTIVITY_CHECK)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "log at debug level (env: PONGAI_VERBOSE)")
}

// Validate checks that both ends of the pipeline are configured.
func (c *Historian) Validate() error {
	var errs []error
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("--redis-addr is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("--database-url is required"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1: %d", c.BatchSize))
	}
	if c.FlushDelay <= 0 || c.Inactivity <= 0 || c.InactivityCheck <= 0 {
		errs = append(errs, errors.New("durations must be positive"))
	}
	return errors.Join(errs...)
}

func redisFlags(fs *pflag.FlagSet, addr *string, db *int, queue *string, defAddr string) {
	fs.StringVar(addr, "redis-addr", defAddr, "redis address for the action queue (env: PONGAI_REDIS_ADDR)")
	fs.IntVar(db, "redis-db", 0, "redis database number (env: PONGAI_REDIS_DB)")
	fs.StringVar(queue, "redis-queue", "pongai_actions", "redis list holding game actions (env: PONGAI_REDIS_QUEUE)")
}

func normalize(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// ApplyEnv overlays PONGAI_* environment variables onto every flag of fs
// that was not set on the command line.
func ApplyEnv(fs *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, v.GetString(f.Name))
		}
	})
	return v
}
