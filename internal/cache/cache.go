package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const entryExt = ".json"

// Entry is one cached completion.
type Entry struct {
	Key       string    `json:"key"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a directory of JSON entries. A disabled Cache never hits and
// never writes.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// New opens the cache in dir, creating it when needed. An empty dir selects
// the default location. A ttl of zero keeps entries forever.
func New(enabled bool, dir string, ttl time.Duration) (*Cache, error) {
	if !enabled {
		return &Cache{now: time.Now}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, enabled: true, now: time.Now}, nil
}

// Get returns the cached response for key. Expired entries are removed and
// reported as a miss.
func (c *Cache) Get(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil {
		return "", false
	}
	if entry.expired(c.now()) {
		os.Remove(path)
		return "", false
	}
	return entry.Response, true
}

// Put stores response under key. The write goes through a temp file so a
// concurrent reader never sees a partial entry.
func (c *Cache) Put(key, response string) error {
	if !c.enabled {
		return nil
	}
	now := c.now()
	entry := Entry{Key: HashKey(key), Response: response, CreatedAt: now}
	if c.ttl > 0 {
		entry.ExpiresAt = now.Add(c.ttl)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.entryPath(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (c *Cache) Clear() (int, error) {
	return c.sweep(func(string) bool { return true })
}

// Prune removes only expired or unreadable entries.
func (c *Cache) Prune() (int, error) {
	now := c.now()
	return c.sweep(func(path string) bool {
		entry, err := readEntry(path)
		return err != nil || entry.expired(now)
	})
}

func (c *Cache) sweep(remove func(path string) bool) (int, error) {
	if !c.enabled || c.dir == "" {
		return 0, nil
	}
	paths, err := c.entryPaths()
	if err != nil {
		return 0, err
	}
	var removed int
	for _, p := range paths {
		if !remove(p) {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Stats describes the cache contents.
type Stats struct {
	Dir        string `json:"dir"`
	Enabled    bool   `json:"enabled"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// GetStats walks the cache directory.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Dir: c.dir, Enabled: c.enabled}
	if !c.enabled || c.dir == "" {
		return stats, nil
	}
	paths, err := c.entryPaths()
	if err != nil {
		return stats, err
	}
	now := c.now()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
		if entry, err := readEntry(p); err == nil && entry.expired(now) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashKey returns the hex SHA-256 of key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// BuildCacheKey joins the provider, model and request payload into one key.
func BuildCacheKey(provider, model, payload string) string {
	return HashKey(strings.Join([]string{provider, model, payload}, "\x00"))
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, HashKey(key)+entryExt)
}

func (c *Cache) entryPaths() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != entryExt {
			continue
		}
		paths = append(paths, filepath.Join(c.dir, e.Name()))
	}
	return paths, nil
}

func readEntry(path string) (Entry, error) {
	var entry Entry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, fmt.Errorf("decoding cache entry %s: %w", filepath.Base(path), err)
	}
	return entry, nil
}

// DefaultDir returns the platform cache directory for code-sherpa.
func DefaultDir() (string, error) {
	const app = "code-sherpa"
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, app), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", app), nil
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, app, "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", app, "cache"), nil
	default:
		return filepath.Join(home, ".cache", app), nil
	}
}
