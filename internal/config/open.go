package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/cache"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/trace/gemini"
)

// CacheDir returns the file cache directory: the configured one, or
// $XDG_CACHE_HOME/codeflow (~/.cache/codeflow).
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// OpenCache opens the configured cache backend. Caching is disabled
// (a null cache) when disabled is true or the backend is "none".
func (c *Config) OpenCache(ctx context.Context, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	switch c.Cache.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheMemory:
		return cache.NewMemoryCache(c.Cache.Entries)
	case CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   c.Cache.Prefix,
		})
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// Keyer returns the cache keyer for the configured scope, or nil for the
// default keyer.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.Scope == "" {
		return nil
	}
	return cache.NewScopedKeyer(nil, c.Cache.Scope+":")
}

// OpenSessions opens the configured session store.
func (c *Config) OpenSessions(ctx context.Context) (session.Store, error) {
	switch c.Session.Backend {
	case SessionFile:
		return session.NewFileStore(c.Session.Dir)
	case SessionMongo:
		return session.NewMongoStore(ctx, session.MongoConfig{
			URI:        c.Session.MongoURI,
			Database:   c.Session.Database,
			Collection: c.Session.Collection,
		})
	case SessionMemory:
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
}

// OpenProvider creates the Gemini trace provider.
func (c *Config) OpenProvider(ctx context.Context, logger *log.Logger) (*gemini.Provider, error) {
	return gemini.New(ctx, gemini.Config{
		APIKey: c.Gemini.APIKey,
		Model:  c.Gemini.Model,
		Logger: logger,
	})
}
