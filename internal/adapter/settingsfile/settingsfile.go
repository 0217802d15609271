// Package settingsfile keeps clock settings in a local TOML file and reloads
// them when the file is edited.
package settingsfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// Store reads and writes a flat TOML table of setting IDs:
//
//	military_time = true
//	date_format = "DD/MM/YYYY"
type Store struct {
	path   string
	logger *slog.Logger

	mu          sync.Mutex
	lastWritten []byte
}

// New returns a Store backed by path. The file need not exist yet.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// ReadSettings returns the file's settings, or nil when the file is missing.
func (s *Store) ReadSettings(_ context.Context) (map[string]any, error) {
	settings, _, err := s.read()
	return settings, err
}

func (s *Store) read() (map[string]any, []byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read settings file: %w", err)
	}
	var settings map[string]any
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, data, fmt.Errorf("parse settings file %s: %w", s.path, err)
	}
	return settings, data, nil
}

// SaveSettings replaces the file atomically via a temp file and rename.
func (s *Store) SaveSettings(_ context.Context, settings map[string]any) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	s.lastWritten = data
	return nil
}

// Watch calls apply with the file's settings each time it changes on disk,
// until ctx is done. Changes written by SaveSettings are not echoed back.
// The parent directory is watched so editors that replace the file by
// rename are still seen.
func (s *Store) Watch(ctx context.Context, apply func(context.Context, map[string]any)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch settings directory: %w", err)
	}
	s.logger.Info("watching settings file", "path", s.path)

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			s.reload(ctx, apply)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("settings watcher error", "error", watchErr)
		}
	}
}

func (s *Store) reload(ctx context.Context, apply func(context.Context, map[string]any)) {
	settings, data, err := s.read()
	if err != nil {
		s.logger.Warn("settings file reload failed", "path", s.path, "error", err)
		return
	}
	if settings == nil {
		return
	}

	s.mu.Lock()
	own := bytes.Equal(data, s.lastWritten)
	s.mu.Unlock()
	if own {
		return
	}

	s.logger.Info("settings file changed", "path", s.path, "keys", len(settings))
	apply(ctx, settings)
}
