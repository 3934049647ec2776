package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cache is a small string to string store persisted as one JSON file.
// Keys are case insensitive. An empty path keeps it in memory.
type Cache struct {
	path string
	mu   sync.Mutex
	Data map[string]string `json:"Data"`
}

// Open loads the cache at path. A missing or unreadable file gives an
// empty cache, it is rewritten on the next Set.
func Open(path string) *Cache {
	c := &Cache{
		path: path,
		Data: map[string]string{},
	}
	if path == "" {
		return c
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(content, c); err != nil || c.Data == nil {
		c.Data = map[string]string{}
	}
	return c
}

func (c *Cache) persist() error {
	if c.path == "" {
		return nil
	}
	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, jsonData, 0o644)
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, found := c.Data[strings.ToLower(key)]
	return value, found
}

func (c *Cache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Data[strings.ToLower(key)] = value
	return c.persist()
}

func (c *Cache) Path() string {
	return c.path
}
