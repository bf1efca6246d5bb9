// Package config loads docktree settings from a TOML file, a .env file and
// DOCKTREE_* environment variables, in increasing order of precedence.
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "docktree"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Snapshot stores.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// Config is the complete configuration.
type Config struct {
	Output   OutputConfig   `toml:"output"`
	Source   SourceConfig   `toml:"source"`
	Cache    CacheConfig    `toml:"cache"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Server   ServerConfig   `toml:"server"`
}

// OutputConfig holds rendering defaults.
type OutputConfig struct {
	Format       string `toml:"format"`
	Charset      string `toml:"charset"` // empty means ascii
	Intermediate bool   `toml:"intermediate"`
	Summary      bool   `toml:"summary"`
}

// SourceConfig names the default record source. File defaults to "-" for
// standard input, so a configured Tarball takes precedence over it.
type SourceConfig struct {
	File    string `toml:"file"`
	Tarball string `toml:"tarball"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Prefix        string   `toml:"prefix"`
}

// SnapshotConfig selects and configures the snapshot store.
type SnapshotConfig struct {
	Store         string `toml:"store"`
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ServerConfig configures `docktree serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string ("10m") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output:   OutputConfig{Format: "text", Summary: true},
		Source:   SourceConfig{File: "-"},
		Cache:    CacheConfig{Backend: CacheFile, TTL: Duration{10 * time.Minute}, Prefix: "docktree:"},
		Snapshot: SnapshotConfig{Store: StoreFile, MongoDatabase: appName},
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/docktree/config.toml, falling back
// to ~/.config/docktree/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config file at path over the defaults and applies
// environment overrides. An empty path reads [DefaultPath], which may be
// absent; an explicit path must exist. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, fmt.Errorf("locate config: %w", err)
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadDotenv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required for the redis backend")
	}
	switch c.Snapshot.Store {
	case StoreFile, StoreMongo:
	default:
		return fmt.Errorf("snapshot.store: unknown store %q (want file or mongo)", c.Snapshot.Store)
	}
	if c.Snapshot.Store == StoreMongo && c.Snapshot.MongoURI == "" {
		return errors.New("snapshot.mongo_uri is required for the mongo store")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	return nil
}

// envOverride binds one environment variable to a config field.
type envOverride struct {
	name string
	set  func(c *Config, v string) error
}

func stringVar(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func boolVar(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var envOverrides = []envOverride{
	{"DOCKTREE_FORMAT", stringVar(func(c *Config) *string { return &c.Output.Format })},
	{"DOCKTREE_CHARSET", stringVar(func(c *Config) *string { return &c.Output.Charset })},
	{"DOCKTREE_INTERMEDIATE", boolVar(func(c *Config) *bool { return &c.Output.Intermediate })},
	{"DOCKTREE_FILE", stringVar(func(c *Config) *string { return &c.Source.File })},
	{"DOCKTREE_TARBALL", stringVar(func(c *Config) *string { return &c.Source.Tarball })},
	{"DOCKTREE_CACHE", stringVar(func(c *Config) *string { return &c.Cache.Backend })},
	{"DOCKTREE_CACHE_DIR", stringVar(func(c *Config) *string { return &c.Cache.Dir })},
	{"DOCKTREE_CACHE_TTL", func(c *Config, v string) error { return c.Cache.TTL.UnmarshalText([]byte(v)) }},
	{"DOCKTREE_REDIS_ADDR", stringVar(func(c *Config) *string { return &c.Cache.RedisAddr })},
	{"DOCKTREE_REDIS_PASSWORD", stringVar(func(c *Config) *string { return &c.Cache.RedisPassword })},
	{"DOCKTREE_REDIS_DB", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Cache.RedisDB = n
		return err
	}},
	{"DOCKTREE_SNAPSHOT_STORE", stringVar(func(c *Config) *string { return &c.Snapshot.Store })},
	{"DOCKTREE_SNAPSHOT_DIR", stringVar(func(c *Config) *string { return &c.Snapshot.Dir })},
	{"DOCKTREE_MONGO_URI", stringVar(func(c *Config) *string { return &c.Snapshot.MongoURI })},
	{"DOCKTREE_ADDR", stringVar(func(c *Config) *string { return &c.Server.Addr })},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		v, ok := lookup(o.name)
		if !ok {
			continue
		}
		if err := o.set(c, v); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return nil
}
