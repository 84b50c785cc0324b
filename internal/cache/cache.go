// Package cache stores extracted file facts on disk so files whose content
// has not changed are not re-extracted on the next run.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/zeebo/blake3"
)

// formatVersion is mixed into every key; bump it when FileFacts changes shape.
const formatVersion = "facts/v1"

// Cache is a directory of JSON entries, one per source file. A disabled
// Cache misses on every Get and ignores every Put.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Entry is one cached extraction.
type Entry struct {
	Hash      string           `json:"hash"`
	Timestamp time.Time        `json:"timestamp"`
	Facts     *facts.FileFacts `json:"facts"`
}

// New creates a cache rooted at dir. A zero ttl never expires entries.
func New(dir string, ttl time.Duration, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false, now: time.Now}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     ttl,
		enabled: true,
		now:     time.Now,
	}, nil
}

// Disabled returns a cache that never stores anything.
func Disabled() *Cache {
	c, _ := New("", 0, false)
	return c
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get returns the facts cached for relPath if they were extracted from
// content with the given hash and have not expired.
func (c *Cache) Get(relPath, hash string) (*facts.FileFacts, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(relPath)
	data, err := os.ReadFile(path)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Facts == nil {
		c.misses.Add(1)
		return nil, false
	}

	if entry.Hash != hash {
		c.misses.Add(1)
		return nil, false
	}

	if c.ttl > 0 && c.now().Sub(entry.Timestamp) > c.ttl {
		os.Remove(path)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.Facts, true
}

// Put stores the facts extracted from content with the given hash.
func (c *Cache) Put(relPath, hash string, ff *facts.FileFacts) error {
	if !c.enabled {
		return nil
	}

	entryData, err := json.Marshal(Entry{
		Hash:      hash,
		Timestamp: c.now(),
		Facts:     ff,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(relPath), entryData, 0o600)
}

// Invalidate removes the entry for relPath.
func (c *Cache) Invalidate(relPath string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(relPath))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a relative path to an entry file name.
func (c *Cache) keyPath(relPath string) string {
	hash := blake3.Sum256([]byte(formatVersion + "\x00" + relPath))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats describes cache usage.
type Stats struct {
	Entries   int   `json:"entries" toon:"entries"`
	TotalSize int64 `json:"totalSize" toon:"totalSize"`
	Hits      int64 `json:"hits" toon:"hits"`
	Misses    int64 `json:"misses" toon:"misses"`
}

// GetStats counts the entries on disk and the lookups since New.
func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if !c.enabled {
		return stats, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}
