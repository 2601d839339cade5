// Package state persists the canonical rule set fingerprint between runs and
// decides whether artefacts must be regenerated.
package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store holds the last seen fingerprint.
type Store interface {
	// Load returns the stored fingerprint. found is false when nothing was stored yet.
	Load(ctx context.Context) (fingerprint string, found bool, err error)
	Save(ctx context.Context, fingerprint string) error
	Close() error
}

// FileStore keeps the fingerprint as a single line in a text file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read fingerprint %s: %w", s.path, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

func (s *FileStore) Save(_ context.Context, fingerprint string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create fingerprint dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(fingerprint), 0o644); err != nil {
		return fmt.Errorf("write fingerprint %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
