package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/plc-diagram/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ResultCache persists generated diagram results so re-opening a file from
// "recent files" does not re-run the pipeline. One msgpack file per
// (file id, grammar, tag) combination.
type ResultCache struct {
	dir string
	mu  sync.Mutex
}

// NewResultCache creates a cache rooted at dir.
func NewResultCache(dir string) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating result cache directory: %w", err)
	}
	return &ResultCache{dir: dir}, nil
}

func (c *ResultCache) path(fileID, grammar, tag string) string {
	key := fileID + "_" + grammar
	if tag != "" {
		key += "_" + tag
	}
	// Tag names can carry characters unfit for filenames.
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(c.dir, "result_"+key+".msgpack")
}

// Put stores a result.
func (c *ResultCache) Put(fileID, grammar, tag string, result *models.DiagramResult) error {
	data, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding cached result: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.WriteFile(c.path(fileID, grammar, tag), data, 0644); err != nil {
		return fmt.Errorf("writing cached result: %w", err)
	}
	return nil
}

// Get returns a previously stored result, or false when none exists or the
// stored blob can no longer be decoded (a stale cache entry is treated as
// a miss, never an error).
func (c *ResultCache) Get(fileID, grammar, tag string) (*models.DiagramResult, bool) {
	c.mu.Lock()
	data, err := os.ReadFile(c.path(fileID, grammar, tag))
	c.mu.Unlock()
	if err != nil {
		return nil, false
	}

	var result models.DiagramResult
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// Invalidate removes every cached result for a file id. Called when the
// underlying upload is deleted.
func (c *ResultCache) Invalidate(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(c.dir, "result_"+fileID+"_*.msgpack"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}
