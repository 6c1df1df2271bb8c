/*
Package config loads binuuid runtime settings.

Values are layered: built-in defaults, then an optional TOML file, then
environment variables prefixed with BINUUID_. The result is validated once
and passed to constructors; nothing is stored globally.

	cfg, err := config.Load("binuuid.toml")
	if err != nil {
	    log.Fatal(err)
	}
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/Lzww0608/binuuid/dialect"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "BINUUID_"

// Node sources accepted in Config.Node.Source
const (
	NodeHardware  = "hardware"
	NodeStatic    = "static"
	NodeZooKeeper = "zookeeper"
)

// Config holds all runtime configuration
type Config struct {
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	// Version of generated UUIDs, 1 or 7.
	Version int `toml:"version" env:"VERSION"`

	Database Database `toml:"database" envPrefix:"DB_"`
	Node     Node     `toml:"node" envPrefix:"NODE_"`
}

// Database selects the connection used by the migrate command and the
// persisted clock sequence.
type Database struct {
	Dialect     string `toml:"dialect" env:"DIALECT"`
	DSN         string `toml:"dsn" env:"DSN"`
	TablePrefix string `toml:"table_prefix" env:"TABLE_PREFIX"`

	// PersistClockSequence advances a stored clock sequence at startup.
	PersistClockSequence bool `toml:"persist_clock_sequence" env:"PERSIST_CLOCK_SEQUENCE"`
}

// Node selects where the version 1 node field comes from
type Node struct {
	Source string `toml:"source" env:"SOURCE"`
	Static string `toml:"static" env:"STATIC"`

	ZooKeeper ZooKeeper `toml:"zookeeper" envPrefix:"ZK_"`
}

// ZooKeeper settings for the zookeeper node source
type ZooKeeper struct {
	Servers           []string `toml:"servers" env:"SERVERS" envSeparator:","`
	Root              string   `toml:"root" env:"ROOT"`
	Service           string   `toml:"service" env:"SERVICE"`
	Instance          string   `toml:"instance" env:"INSTANCE"`
	CacheDir          string   `toml:"cache_dir" env:"CACHE_DIR"`
	SessionTimeout    duration `toml:"session_timeout" env:"SESSION_TIMEOUT"`
	HeartbeatInterval duration `toml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
}

// duration accepts "500ms" style values from both TOML and the environment
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration: SQLite in memory, version 1
// UUIDs and the hardware node.
func Default() Config {
	return Config{
		LogLevel: "info",
		Version:  1,
		Database: Database{
			Dialect: string(dialect.SQLite),
			DSN:     "file::memory:",
		},
		Node: Node{
			Source: NodeHardware,
			ZooKeeper: ZooKeeper{
				Root:              "/binuuid",
				Service:           "binuuid",
				SessionTimeout:    duration{5 * time.Second},
				HeartbeatInterval: duration{3 * time.Second},
			},
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is not empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values and normalizes the dialect name and DSN
func (c *Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Version != 1 && c.Version != 7 {
		errs = append(errs, fmt.Errorf("version: must be 1 or 7, got %d", c.Version))
	}

	d, err := dialect.Parse(c.Database.Dialect)
	if err != nil {
		errs = append(errs, fmt.Errorf("database.dialect: %w", err))
	} else {
		c.Database.Dialect = string(d)
		if d == dialect.MySQL {
			dsn, err := normalizeMySQLDSN(c.Database.DSN)
			if err != nil {
				errs = append(errs, fmt.Errorf("database.dsn: %w", err))
			}
			c.Database.DSN = dsn
		}
	}

	switch c.Node.Source {
	case NodeHardware:
	case NodeStatic:
		if c.Node.Static == "" {
			errs = append(errs, errors.New("node.static: required for the static source"))
		}
	case NodeZooKeeper:
		zk := c.Node.ZooKeeper
		if len(zk.Servers) == 0 {
			errs = append(errs, errors.New("node.zookeeper.servers: required for the zookeeper source"))
		}
		if zk.Instance == "" {
			errs = append(errs, errors.New("node.zookeeper.instance: required for the zookeeper source"))
		}
	default:
		errs = append(errs, fmt.Errorf("node.source: unknown source %q", c.Node.Source))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the parsed log level
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// normalizeMySQLDSN checks dsn and forces parseTime so that timestamp
// columns scan into time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return dsn, err
	}
	parsed.ParseTime = true
	return parsed.FormatDSN(), nil
}
