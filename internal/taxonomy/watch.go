package taxonomy

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store publishes the current taxonomy snapshot. Readers never block and
// always see a complete snapshot.
type Store struct {
	cur atomic.Pointer[Taxonomy]
}

func NewStore(t *Taxonomy) *Store {
	if t == nil {
		t = Default()
	}
	s := &Store{}
	s.cur.Store(t)
	return s
}

func (s *Store) Current() *Taxonomy { return s.cur.Load() }

func (s *Store) Set(t *Taxonomy) {
	if t != nil {
		s.cur.Store(t)
	}
}

// Watcher reloads a taxonomy file into a Store whenever it changes on disk.
type Watcher struct {
	path   string
	store  *Store
	logger *zap.Logger
	fsw    *fsnotify.Watcher
}

// NewWatcher watches the directory holding path, so editors that replace the
// file by rename are picked up too.
func NewWatcher(path string, store *Store, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create taxonomy watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, store: store, logger: logger, fsw: fsw}, nil
}

// Reload reads the file and publishes it. On error the previous snapshot
// stays in place.
func (w *Watcher) Reload() error {
	t, err := Load(w.path)
	if err != nil {
		return err
	}
	w.store.Set(t)
	return nil
}

// Run processes file events until ctx is cancelled, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("taxonomy reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("taxonomy reloaded", zap.String("path", w.path))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("taxonomy watcher error", zap.Error(err))
		}
	}
}
