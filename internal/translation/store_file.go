package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"horse.fit/parley/internal/payloadschema"
)

// FileStore persists the cache as one JSON blob:
// {"en_es_hello": {"translation": "hola", "timestamp": 1760000000000}}.
// Writes go through a temp file and rename so readers never see a partial blob.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]payloadschema.CacheBlobEntry
	loaded  bool
	log     zerolog.Logger
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path:    filepath.Clean(path),
		entries: make(map[string]payloadschema.CacheBlobEntry),
		log:     log.With().Str("component", "cache_file").Str("path", path).Logger(),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the blob. A missing file is an empty cache; a corrupt file is an error
// the caller is expected to discard.
func (s *FileStore) Load(context.Context) (map[string]StoredEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (map[string]StoredEntry, error) {
	s.entries = make(map[string]payloadschema.CacheBlobEntry)
	s.loaded = true

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]StoredEntry{}, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	blob, err := payloadschema.ValidateCacheBlob(raw)
	if err != nil {
		return nil, fmt.Errorf("cache file %s: %w", s.path, err)
	}

	out := make(map[string]StoredEntry, len(blob))
	for key, item := range blob {
		source, target, _, ok := splitCacheKey(key)
		if !ok {
			continue
		}
		s.entries[key] = item
		out[key] = StoredEntry{
			SourceLang:  source,
			TargetLang:  target,
			Translation: item.Translation,
			CreatedAt:   time.UnixMilli(item.Timestamp).UTC(),
		}
	}
	return out, nil
}

// ensureLoadedLocked keeps a write before the first Load from clobbering the blob.
func (s *FileStore) ensureLoadedLocked() {
	if s.loaded {
		return
	}
	if _, err := s.loadLocked(); err != nil {
		s.log.Debug().Err(err).Msg("discarding unreadable cache file")
	}
}

func (s *FileStore) Put(_ context.Context, key string, entry StoredEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	s.entries[key] = payloadschema.CacheBlobEntry{
		Translation: entry.Translation,
		Timestamp:   entry.CreatedAt.UnixMilli(),
	}
	return s.flushLocked()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]payloadschema.CacheBlobEntry)
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (s *FileStore) DeleteExpired(_ context.Context, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	removed := 0
	for key, item := range s.entries {
		if !now.Before(time.UnixMilli(item.Timestamp).Add(ttl)) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshal cache blob: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Watch calls onRemoved whenever the blob is deleted or moved away by
// something other than this store. It blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, onRemoved func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create cache watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close cache watcher failed")
		}
	}()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	// Watch the directory: the file itself is replaced on every write.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch cache dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if s.forgetIfGone() {
					s.log.Info().Str("op", event.Op.String()).Msg("cache file removed; clearing cache")
					if onRemoved != nil {
						onRemoved()
					}
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("cache watcher error")
		}
	}
}

// forgetIfGone drops the in-memory blob when the file no longer exists.
func (s *FileStore) forgetIfGone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); !errors.Is(err, os.ErrNotExist) {
		return false
	}
	s.entries = make(map[string]payloadschema.CacheBlobEntry)
	s.loaded = true
	return true
}
