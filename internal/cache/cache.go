// Package cache persists the set of items shown in a destination's most
// recent issue, so the next run can suppress repeats.
package cache

import (
	"strings"

	"gazette/internal/blob"
)

// Cache reads and writes per-destination cache records. A record is the
// newline-joined raw (pre-edit) item texts from the previous run; it is
// overwritten wholesale after each successful run, never merged.
type Cache struct {
	store blob.Store
}

// New wraps an object store.
func New(store blob.Store) *Cache {
	return &Cache{store: store}
}

// EnsurePlaceholder creates an empty cache object when none exists, so the
// first run's save has a target and loads never error on a fresh path.
func (c *Cache) EnsurePlaceholder(path string) error {
	ok, err := c.store.Exists(path)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return c.store.Write(path, []byte(""))
}

// Load returns the previous run's items. A missing object is a first run,
// not an error: it reads as empty.
func (c *Cache) Load(path string) ([]string, error) {
	ok, err := c.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	data, err := c.store.Read(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Save replaces the record with this run's items.
func (c *Cache) Save(path string, items []string) error {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item)
		b.WriteString("\n")
	}
	return c.store.Write(path, []byte(b.String()))
}
