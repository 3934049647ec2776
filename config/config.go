package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	NetworkVar      = "ABISCOPE_NETWORK"
	NodeVar         = "ABISCOPE_NODE"
	APIKeyVar       = "ETHERSCAN_API_KEY"
	SignatureDBVar  = "ABISCOPE_SIGNATURE_DB"
	CacheDirVar     = "ABISCOPE_CACHE_DIR"
	DSNVar          = "ABISCOPE_DSN"
	RPSVar          = "ABISCOPE_RPS"
	ConcurrencyVar  = "ABISCOPE_CONCURRENCY"
	DebugVar        = "ABISCOPE_DEBUG"
	defaultNetwork  = "mainnet"
	defaultRPS      = 5
	defaultParallel = 8
)

type Config struct {
	Network string
	// Node overrides the network's own node variable and default nodes.
	Node   string
	APIKey string
	// SignatureDB is the bleve index directory, empty keeps it in memory.
	SignatureDB string
	CacheDir    string
	DSN         string
	RPS         float64
	Concurrency int
	Debug       bool
	// ABIFile is a local abi used instead of the explorer for the target
	// contract.
	ABIFile string
}

// Load reads .env from the working directory when present, then the
// environment. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("couldn't load %s: %w", f, err)
		}
	}

	c := &Config{
		Network:     getenv(NetworkVar, defaultNetwork),
		Node:        strings.TrimSpace(os.Getenv(NodeVar)),
		APIKey:      strings.TrimSpace(os.Getenv(APIKeyVar)),
		SignatureDB: os.Getenv(SignatureDBVar),
		CacheDir:    getenv(CacheDirVar, defaultCacheDir()),
		DSN:         os.Getenv(DSNVar),
		RPS:         defaultRPS,
		Concurrency: defaultParallel,
	}
	var err error
	if v := os.Getenv(RPSVar); v != "" {
		if c.RPS, err = strconv.ParseFloat(v, 64); err != nil || c.RPS <= 0 {
			return nil, fmt.Errorf("%s must be a positive number, got %q", RPSVar, v)
		}
	}
	if v := os.Getenv(ConcurrencyVar); v != "" {
		if c.Concurrency, err = strconv.Atoi(v); err != nil || c.Concurrency < 1 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", ConcurrencyVar, v)
		}
	}
	if v := os.Getenv(DebugVar); v != "" {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("%s must be a boolean, got %q", DebugVar, v)
		}
	}
	return c, nil
}

// CacheFile is where explorer responses are kept between runs, empty
// when caching to disk is disabled.
func (c *Config) CacheFile() string {
	if c.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.CacheDir, "cache.json")
}

// AddressBookFile names addresses the explorers don't, see package db.
func (c *Config) AddressBookFile() string {
	if c.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.CacheDir, "addresses.json")
}

func (c *Config) NetworksDir() string {
	if c.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.CacheDir, "networks")
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".abiscope")
}
