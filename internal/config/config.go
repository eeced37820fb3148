// Package config manages backend configuration from the environment.
//
// Configuration sources:
//   - process environment (MSE_* variables)
//   - optional .env file in the working directory or MSE_ENV_FILE
//
// The runtime holds configuration behind a Provider so a reload swaps the
// whole object atomically instead of mutating shared fields in place.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all backend configuration
type Config struct {
	ListenAddr      string        // HTTP listen address
	DataDir         string        // directory for the database and encryption key
	LogLevel        string        // zerolog level
	LogFormat       string        // "json", "console", or "auto"
	RemoteTimeout   time.Duration // per-request timeout against the Mist API
	SiteConcurrency int           // per-site fan-out limit inside device checks
}

const (
	defaultListenAddr      = "127.0.0.1:8510"
	defaultDataDir         = "/var/lib/mist-security-extension"
	defaultRemoteTimeout   = 10 * time.Second
	defaultSiteConcurrency = 5
)

// Load reads configuration from the environment, consulting an optional
// .env file first.
func Load() (*Config, error) {
	envFile := os.Getenv("MSE_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		log.Debug().Str("file", envFile).Msg("Loaded environment file")
	}

	cfg := &Config{
		ListenAddr:      envOr("MSE_LISTEN_ADDR", defaultListenAddr),
		DataDir:         envOr("MSE_DATA_DIR", defaultDataDir),
		LogLevel:        envOr("MSE_LOG_LEVEL", "info"),
		LogFormat:       envOr("MSE_LOG_FORMAT", "auto"),
		RemoteTimeout:   defaultRemoteTimeout,
		SiteConcurrency: defaultSiteConcurrency,
	}

	if v := os.Getenv("MSE_REMOTE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MSE_REMOTE_TIMEOUT %q: %w", v, err)
		}
		cfg.RemoteTimeout = d
	}

	if v := os.Getenv("MSE_SITE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MSE_SITE_CONCURRENCY %q", v)
		}
		cfg.SiteConcurrency = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values for consistency
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}
	if c.SiteConcurrency < 1 {
		return fmt.Errorf("site concurrency must be at least 1")
	}
	return nil
}

// DatabasePath returns the SQLite file path under the data directory
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "assessments.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Provider hands out the current configuration and supports atomic
// replacement. Consumers call Current on each use instead of caching
// the pointer across runs.
type Provider struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewProvider wraps an initial configuration
func NewProvider(cfg *Config) *Provider {
	return &Provider{cfg: cfg}
}

// Current returns the active configuration
func (p *Provider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Swap atomically replaces the active configuration
func (p *Provider) Swap(cfg *Config) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

// Watch reloads the configuration whenever the env file changes. It returns
// a stop function. Reload failures keep the previous configuration.
func (p *Provider) Watch(envFile string) (func(), error) {
	if envFile == "" {
		envFile = ".env"
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	// Watch the directory: editors replace the file on save, which drops
	// a watch registered on the file itself.
	dir := filepath.Dir(envFile)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(envFile)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load()
				if err != nil {
					log.Warn().Err(err).Msg("Config reload failed, keeping previous configuration")
					continue
				}
				p.Swap(cfg)
				log.Info().Str("file", target).Msg("Configuration reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Config watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
