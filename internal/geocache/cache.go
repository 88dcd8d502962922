package geocache

import (
	"errors"
	"os"
	"sync"
)

// KeyedFile is a map of nullable values stored in a single file. Each Load
// and Store reads the whole file; Store rewrites it.
type KeyedFile[K any, V any] struct {
	store Storage
	name  string
	key   func(K) string
	opts  options

	mu sync.Mutex
}

// NewKeyedFile returns a cache persisted as name, with keys encoded by key.
func NewKeyedFile[K any, V any](store Storage, name string, key func(K) string, opts ...Option) *KeyedFile[K, V] {
	return &KeyedFile[K, V]{
		store: store,
		name:  name,
		key:   key,
		opts:  newOptions(opts),
	}
}

// Load returns the cached value for k. ok reports whether the key is present;
// a present key may hold a nil value, which is a cached absence.
func (c *KeyedFile[K, V]) Load(k K) (value *V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.read()
	value, ok = entries[c.key(k)]
	c.opts.observe(c.name, ok)
	return value, ok
}

// Store records v (possibly nil) for k and rewrites the file.
func (c *KeyedFile[K, V]) Store(k K, v *V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.read()
	entries[c.key(k)] = v
	c.write(entries)
}

// Entries returns a snapshot of the whole file.
func (c *KeyedFile[K, V]) Entries() map[string]*V {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *KeyedFile[K, V]) read() map[string]*V {
	entries := make(map[string]*V)
	data, err := c.store.Read(c.name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.opts.logger.Warn("cache read failed, starting empty", "cache", c.name, "error", err)
		}
		return entries
	}
	if err := c.opts.codec.Unmarshal(data, &entries); err != nil {
		c.opts.logger.Warn("cache file corrupt, starting empty", "cache", c.name, "error", err)
		return make(map[string]*V)
	}
	if entries == nil {
		entries = make(map[string]*V)
	}
	return entries
}

func (c *KeyedFile[K, V]) write(entries map[string]*V) {
	data, err := c.opts.codec.Marshal(entries)
	if err != nil {
		c.opts.logger.Warn("cache encode failed", "cache", c.name, "error", err)
		return
	}
	if err := c.store.Write(c.name, data); err != nil {
		c.opts.logger.Warn("cache write failed", "cache", c.name, "error", err)
	}
}

// FilePerKey stores one value per file, with the file name derived from the key.
type FilePerKey[K any, V any] struct {
	store Storage
	cache string
	name  func(K) string
	opts  options
}

// NewFilePerKey returns a cache whose files are named by name(k). cache labels
// log lines and metrics.
func NewFilePerKey[K any, V any](store Storage, cache string, name func(K) string, opts ...Option) *FilePerKey[K, V] {
	return &FilePerKey[K, V]{
		store: store,
		cache: cache,
		name:  name,
		opts:  newOptions(opts),
	}
}

// Load returns the value stored for k. A missing or corrupt file is a miss.
func (c *FilePerKey[K, V]) Load(k K) (V, bool) {
	var v V
	name := c.name(k)
	data, err := c.store.Read(name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.opts.logger.Warn("cache read failed", "cache", c.cache, "file", name, "error", err)
		}
		c.opts.observe(c.cache, false)
		return v, false
	}
	if err := c.opts.codec.Unmarshal(data, &v); err != nil {
		c.opts.logger.Warn("cache file corrupt, ignoring", "cache", c.cache, "file", name, "error", err)
		c.opts.observe(c.cache, false)
		var zero V
		return zero, false
	}
	c.opts.observe(c.cache, true)
	return v, true
}

// Store writes v as the file for k. Failures are logged.
func (c *FilePerKey[K, V]) Store(k K, v V) {
	name := c.name(k)
	data, err := c.opts.codec.Marshal(v)
	if err != nil {
		c.opts.logger.Warn("cache encode failed", "cache", c.cache, "file", name, "error", err)
		return
	}
	if err := c.store.Write(name, data); err != nil {
		c.opts.logger.Warn("cache write failed", "cache", c.cache, "file", name, "error", err)
	}
}

// File is a single value stored in one file.
type File[V any] struct {
	inner *FilePerKey[struct{}, V]
}

// NewFile returns a single-value cache persisted as name.
func NewFile[V any](store Storage, name string, opts ...Option) *File[V] {
	return &File[V]{
		inner: NewFilePerKey[struct{}, V](store, name, func(struct{}) string { return name }, opts...),
	}
}

// Load returns the stored value, if the file exists and decodes.
func (f *File[V]) Load() (V, bool) {
	return f.inner.Load(struct{}{})
}

// Save replaces the stored value.
func (f *File[V]) Save(v V) {
	f.inner.Store(struct{}{}, v)
}
