package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/patrickmn/go-cache"
)

// KeyValueRepository keeps device preferences in go-cache. With a snapshot
// path every write is flushed to disk so values survive restarts.
type KeyValueRepository struct {
	cache        *cache.Cache
	snapshotPath string
	mu           sync.Mutex // serialises snapshot writes
}

func NewKeyValueRepository(snapshotPath string) (*KeyValueRepository, error) {
	// No expiration and no janitor: these values live until overwritten
	c := cache.New(cache.NoExpiration, 0)

	if snapshotPath != "" {
		if err := c.LoadFile(snapshotPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load kv snapshot %s: %w", snapshotPath, err)
		}
	}

	return &KeyValueRepository{
		cache:        c,
		snapshotPath: snapshotPath,
	}, nil
}

func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		value, ok := x.(string)
		return value, ok, nil
	}
	return "", false, nil
}

func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	r.cache.Set(key, value, cache.NoExpiration)
	return r.flush()
}

func (r *KeyValueRepository) Delete(ctx context.Context, key string) error {
	r.cache.Delete(key)
	return r.flush()
}

func (r *KeyValueRepository) flush() error {
	if r.snapshotPath == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if err := r.cache.SaveFile(r.snapshotPath); err != nil {
		return fmt.Errorf("failed to write kv snapshot: %w", err)
	}
	return nil
}
