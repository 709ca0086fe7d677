package types

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	CacheModeBadger = "badger"
	CacheModeMemory = "memory"
)

// Config holds the prover configuration
type Config struct {
	RootDir string

	// ProvingKeyURL is the stable location of the proving key; it is also the cache key.
	ProvingKeyURL string
	// CircuitPath points at the compiled constraint system (.ccs).
	CircuitPath string

	// CacheDir is where the persistent key cache lives when CacheMode is "badger".
	CacheDir string
	// CacheName namespaces cache entries. Bump its version suffix whenever the key artifact changes.
	CacheName string
	CacheMode string

	ListenAddr  string
	HTTPTimeout time.Duration

	LogLevel string
	LogFile  string
}

func NewConfig() *Config {
	root := getEnv("ROOT", ".")
	return &Config{
		RootDir:       root,
		ProvingKeyURL: getEnv("PROVING_KEY_URL", filepath.Join(root, ".build/KnightsCircuit.pk")),
		CircuitPath:   getEnv("CIRCUIT_PATH", filepath.Join(root, ".build/KnightsCircuit.ccs")),
		CacheDir:      getEnv("CACHE_DIR", filepath.Join(root, ".cache")),
		CacheName:     getEnv("CACHE_NAME", "knights-proving-key-v1"),
		CacheMode:     getEnv("CACHE_MODE", CacheModeBadger),
		ListenAddr:    getEnv("LISTEN_ADDR", ":3000"),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 5*time.Minute),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ProvingKeyURL == "" {
		return fmt.Errorf("config: proving key url is required")
	}
	if c.CircuitPath == "" {
		return fmt.Errorf("config: circuit path is required")
	}
	if c.CacheName == "" {
		return fmt.Errorf("config: cache name is required")
	}
	switch c.CacheMode {
	case CacheModeBadger:
		if c.CacheDir == "" {
			return fmt.Errorf("config: cache dir is required for %s cache", CacheModeBadger)
		}
	case CacheModeMemory:
	default:
		return fmt.Errorf("config: unknown cache mode %q", c.CacheMode)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: http timeout must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
