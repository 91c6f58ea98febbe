// Package config loads process configuration from flags, falling back to
// environment variables, and builds the process logger.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/tablutplay/internal/rules"
	"github.com/hailam/tablutplay/internal/storage"
)

// Config is the server configuration.
type Config struct {
	Host              string
	Port              int
	DataDir           string // Empty selects the platform data directory
	InMemory          bool
	GameTTL           time.Duration
	DefaultDifficulty rules.Difficulty
	CORSOrigins       []string
	LogLevel          zerolog.Level
	LogPretty         bool
	ShutdownTimeout   time.Duration
}

// Defaults
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 3009
	DefaultCORSOrigins     = "http://localhost:4200"
	DefaultShutdownTimeout = 10 * time.Second
)

// Load parses args (without the program name). Each flag defaults to its
// environment variable, and that to the built-in default.
func Load(args []string) (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	host := envString("HOST", DefaultHost)
	port, err := envInt("PORT", DefaultPort)
	collect(err)
	inMemory, err := envBool("IN_MEMORY", false)
	collect(err)
	ttl, err := envDuration("GAME_TTL", storage.DefaultGameTTL)
	collect(err)
	depth, err := envInt("DEFAULT_DIFFICULTY", int(rules.DefaultDifficulty))
	collect(err)
	pretty, err := envBool("LOG_PRETTY", false)
	collect(err)
	shutdown, err := envDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)
	collect(err)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cfg := &Config{}
	var origins, level string

	fs := flag.NewFlagSet("tablutplay", flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", host, "listen address (HOST)")
	fs.IntVar(&cfg.Port, "port", port, "listen port (PORT)")
	fs.StringVar(&cfg.DataDir, "data-dir", envString("DATA_DIR", ""), "database directory; empty uses the platform data dir (DATA_DIR)")
	fs.BoolVar(&cfg.InMemory, "in-memory", inMemory, "keep games in memory only (IN_MEMORY)")
	fs.DurationVar(&cfg.GameTTL, "game-ttl", ttl, "time-to-live of an untouched game (GAME_TTL)")
	fs.IntVar(&depth, "difficulty", depth, "bot depth for new games, 2 or 4 (DEFAULT_DIFFICULTY)")
	fs.StringVar(&origins, "cors-origins", envString("CORS_ORIGINS", DefaultCORSOrigins), "comma separated allowed origins, * for any (CORS_ORIGINS)")
	fs.StringVar(&level, "log-level", envString("LOG_LEVEL", "info"), "trace, debug, info, warn, error or fatal (LOG_LEVEL)")
	fs.BoolVar(&cfg.LogPretty, "log-pretty", pretty, "human readable logs (LOG_PRETTY)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", shutdown, "graceful shutdown limit (SHUTDOWN_TIMEOUT)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.GameTTL <= 0 {
		return nil, fmt.Errorf("invalid game ttl: %s", cfg.GameTTL)
	}
	d, err := rules.ParseDifficulty(depth)
	if err != nil {
		return nil, err
	}
	cfg.DefaultDifficulty = d

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = lvl
	cfg.CORSOrigins = splitList(origins)
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StorageOptions returns the storage settings. An empty DataDir resolves to
// the platform database directory.
func (c *Config) StorageOptions(logger *zerolog.Logger) (storage.Options, error) {
	opts := storage.Options{InMemory: c.InMemory, GameTTL: c.GameTTL, Logger: logger}
	if c.InMemory {
		return opts, nil
	}
	var err error
	if c.DataDir == "" {
		opts.Dir, err = storage.GetDatabaseDir()
	} else {
		opts.Dir, err = storage.DatabaseDirIn(c.DataDir)
	}
	return opts, err
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	return NewLogger(w, c.LogLevel, c.LogPretty)
}

// NewLogger builds a logger at the given level, optionally in console format.
func NewLogger(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel accepts trace, debug, info, warn, error and fatal.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "trace", "debug", "info", "warn", "error", "fatal":
		return zerolog.ParseLevel(strings.ToLower(s))
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level: %s", s)
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", key, v)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
