// Package config loads persistent codeflow settings.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, by default $XDG_CONFIG_HOME/codeflow/config.toml
//  3. environment variables, after loading a .env file from the working
//     directory if one exists
//
// Example file:
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	scope = "staging"
//
//	[gemini]
//	model = "gemini-2.5-pro"
//
//	[session]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//	ttl = "12h"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "codeflow"

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionFile   = "file"
	SessionMongo  = "mongo"
)

// Environment variables that override the file.
const (
	EnvGeminiKey      = "GEMINI_API_KEY"
	EnvGeminiModel    = "CODEFLOW_GEMINI_MODEL"
	EnvCacheBackend   = "CODEFLOW_CACHE_BACKEND"
	EnvRedisAddr      = "CODEFLOW_REDIS_ADDR"
	EnvRedisPassword  = "CODEFLOW_REDIS_PASSWORD"
	EnvSessionBackend = "CODEFLOW_SESSION_BACKEND"
	EnvMongoURI       = "CODEFLOW_MONGO_URI"
	EnvAddr           = "CODEFLOW_ADDR"
	EnvAllowedOrigins = "CODEFLOW_ALLOWED_ORIGINS"
	EnvPort           = "PORT"
)

// Duration is a time.Duration written as a string ("90s", "12h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds every persistent setting.
type Config struct {
	Cache   CacheConfig   `toml:"cache"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	Entries       int    `toml:"entries"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
	// Scope namespaces every cache key, so deployments can share one
	// Redis database without reading each other's entries.
	Scope string `toml:"scope"`
}

// GeminiConfig configures the trace provider.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ServerConfig configures `codeflow serve`.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	// AllowedOrigins are the browser origins, besides the server's own
	// host, allowed to open session streams.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// SessionConfig selects and configures the session store.
type SessionConfig struct {
	Backend    string   `toml:"backend"`
	Dir        string   `toml:"dir"`
	MongoURI   string   `toml:"mongo_uri"`
	Database   string   `toml:"database"`
	Collection string   `toml:"collection"`
	TTL        Duration `toml:"ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: CacheFile,
			Entries: 1024,
			Prefix:  appName + ":",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: Duration{2 * time.Minute},
		},
		Session: SessionConfig{
			Backend:    SessionMemory,
			Database:   appName,
			Collection: "sessions",
			TTL:        Duration{24 * time.Hour},
		},
	}
}

// DefaultPath returns the config file location (XDG standard).
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

// Load reads settings. An empty path reads the default location, where a
// missing file is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := cfg.decodeFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Gemini.APIKey, EnvGeminiKey)
	setString(&c.Gemini.Model, EnvGeminiModel)
	setString(&c.Cache.Backend, EnvCacheBackend)
	setString(&c.Cache.RedisAddr, EnvRedisAddr)
	setString(&c.Cache.RedisPassword, EnvRedisPassword)
	setString(&c.Session.Backend, EnvSessionBackend)
	setString(&c.Session.MongoURI, EnvMongoURI)
	setString(&c.Server.Addr, EnvAddr)
	if v := strings.TrimSpace(os.Getenv(EnvAllowedOrigins)); v != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}

	if port := strings.TrimSpace(os.Getenv(EnvPort)); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Server.Addr = ":" + port
		}
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend redis requires redis_addr or %s", EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unknown cache backend %q (must be one of: file, memory, redis, none)", c.Cache.Backend)
	}

	switch c.Session.Backend {
	case SessionMemory, SessionFile:
	case SessionMongo:
		if c.Session.MongoURI == "" {
			return fmt.Errorf("session backend mongo requires mongo_uri or %s", EnvMongoURI)
		}
	default:
		return fmt.Errorf("unknown session backend %q (must be one of: memory, file, mongo)", c.Session.Backend)
	}

	if c.Session.TTL.Duration <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("server request_timeout must be positive")
	}
	return nil
}
