// Package cache implements the content-addressed compile cache (spec
// §4.J): keyed on SHA-256 of the synthesized source, not timestamps or
// paths, so a user iterating on the bench harness rather than the
// benchmark code doesn't pay compile costs repeatedly.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

// TTL is how long a cached outcome stays valid before a lookup treats it
// as a miss (spec §4.J: "TTL: 24 hours").
const TTL = 24 * time.Hour

// Key identifies one compile outcome.
type Key struct {
	BenchmarkName string
	Lang          dsl.Lang
	Hash          string // SHA-256 of the synthesized source, hex-encoded
}

// Entry is a recorded compile outcome (spec §4.J: "success_bool,
// optional_error_message, timestamp").
type Entry struct {
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e Entry) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > TTL
}

// HashSource returns the hex-encoded SHA-256 of src, the cache key
// component spec §4.J mandates in place of timestamps or paths.
func HashSource(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// record is the on-disk shape of one cache entry, Key and Entry
// flattened into one JSON object; the file holds a JSON array of these
// (the in-memory map's composite-string key is not written).
type record struct {
	BenchmarkName string    `json:"benchmark_name"`
	Lang          string    `json:"lang"`
	Hash          string    `json:"hash"`
	Success       bool      `json:"success"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Cache is a persistent, JSON-backed compile-outcome cache at one path
// (spec §7: `.polybench/compile-cache.json`). Safe for concurrent use —
// the scheduler consults it from every worker in its pool.
type Cache struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	entries map[string]record
	loaded  bool
}

// New returns a Cache backed by path on fs. The file is read lazily on
// first Get/Put so constructing a Cache never fails on a missing file.
func New(fs afero.Fs, path string) *Cache {
	return &Cache{fs: fs, path: path, entries: map[string]record{}}
}

func compositeKey(k Key) string {
	return k.BenchmarkName + "\x00" + string(k.Lang) + "\x00" + k.Hash
}

// Get returns the cached outcome for key if present and not expired.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(); err != nil {
		return Entry{}, false
	}
	r, ok := c.entries[compositeKey(key)]
	if !ok {
		return Entry{}, false
	}
	entry := Entry{Success: r.Success, ErrorMessage: r.ErrorMessage, Timestamp: r.Timestamp}
	if entry.expired(time.Now()) {
		return Entry{}, false
	}
	return entry, true
}

// Put records outcome for key and persists the cache to disk.
func (c *Cache) Put(key Key, outcome Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.entries[compositeKey(key)] = record{
		BenchmarkName: key.BenchmarkName,
		Lang:          string(key.Lang),
		Hash:          key.Hash,
		Success:       outcome.Success,
		ErrorMessage:  outcome.ErrorMessage,
		Timestamp:     outcome.Timestamp,
	}
	return c.persist()
}

// Prune drops every expired entry and persists the result. The scheduler
// calls this once per run so the file doesn't grow unbounded across many
// edit cycles.
func (c *Cache) Prune() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(); err != nil {
		return err
	}
	now := time.Now()
	for k, r := range c.entries {
		entry := Entry{Timestamp: r.Timestamp}
		if entry.expired(now) {
			delete(c.entries, k)
		}
	}
	return c.persist()
}

func (c *Cache) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	c.loaded = true

	exists, err := afero.Exists(c.fs, c.path)
	if err != nil {
		return fmt.Errorf("checking compile cache %s: %w", c.path, err)
	}
	if !exists {
		return nil
	}
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return fmt.Errorf("reading compile cache %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing compile cache %s: %w", c.path, err)
	}
	for _, r := range records {
		c.entries[r.BenchmarkName+"\x00"+r.Lang+"\x00"+r.Hash] = r
	}
	return nil
}

func (c *Cache) persist() error {
	records := make([]record, 0, len(c.entries))
	for _, r := range c.entries {
		records = append(records, r)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding compile cache: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing compile cache %s: %w", c.path, err)
	}
	return nil
}
