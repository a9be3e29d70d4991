package store

import (
	"fmt"
	"log/slog"
)

// Store is a file-backed key/value store with local-storage semantics:
// every Set or Delete rewrites the whole document.
type Store struct {
	path   string
	data   Data
	logger *slog.Logger
}

// Open loads path (recovering from backup when it is corrupt) and takes the
// per-session rotating snapshot. The returned status is non-empty when a
// recovery happened.
func Open(path string, logger *slog.Logger) (*Store, string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	data, status, err := LoadWithRecovery(path)
	if err != nil {
		return nil, "", fmt.Errorf("load state %s: %w", path, err)
	}
	if status != "" {
		logger.Warn("state recovered", "path", path, "status", status)
	}
	if err := Snapshot(path); err != nil {
		logger.Warn("snapshot state", "path", path, "err", err)
	}
	return &Store{path: path, data: data, logger: logger}, status, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key and writes the document.
func (s *Store) Set(key, value string) error {
	if cur, ok := s.data[key]; ok && cur == value {
		return nil
	}
	s.data[key] = value
	return s.flush()
}

// Delete removes key and writes the document. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

func (s *Store) flush() error {
	if err := Autosave(s.path, s.data); err != nil {
		return fmt.Errorf("autosave %s: %w", s.path, err)
	}
	return nil
}
