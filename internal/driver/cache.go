package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/project"
)

// Bump when CachedUnit changes shape.
const cacheSchemaVersion uint16 = 1

// DiskCache stores per-module check verdicts keyed by ModuleHash, so a
// rebuild with unchanged units and dependencies skips re-checking.
// Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedUnit is the serialized verdict for one module.
type CachedUnit struct {
	Schema uint16

	Name        string
	Path        string
	ImportPaths []string

	ContentHash project.Digest
	ModuleHash  project.Digest

	Broken bool
}

// OpenDiskCache initializes a cache under the user cache directory.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt initializes a cache under an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(key[:])+".mp")
}

// Put writes a verdict atomically.
func (c *DiskCache) Put(key project.Digest, payload *CachedUnit) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a verdict; ok is false on a miss or a stale schema.
func (c *DiskCache) Get(key project.Digest, out *CachedUnit) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != cacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll deletes every cached verdict.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "units"))
}

func cachedUnitFrom(meta *project.ModuleMeta, broken bool) *CachedUnit {
	payload := &CachedUnit{
		Schema:      cacheSchemaVersion,
		Name:        meta.Name,
		Path:        meta.Path,
		ContentHash: meta.ContentHash,
		ModuleHash:  meta.ModuleHash,
		Broken:      broken,
	}
	for _, imp := range meta.Imports {
		payload.ImportPaths = append(payload.ImportPaths, imp.Path)
	}
	return payload
}
