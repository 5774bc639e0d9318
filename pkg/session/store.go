package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/pairgate/internal/logging"
	"github.com/aretw0/pairgate/pkg/domain"
)

// Store implements session directories on the local filesystem.
type Store struct {
	Root   string
	logger *slog.Logger
}

// NewStore creates a Store rooted at root.
// If root is empty, directories are created in the working directory.
func NewStore(root string, logger *slog.Logger) *Store {
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{Root: root, logger: logger}
}

// Path returns the directory used for the named session.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// Create ensures a clean directory exists for the named session, removing any
// previous contents.
func (s *Store) Create(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	path := s.Path(name)
	s.Remove(path)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return path, nil
}

// Remove deletes the directory tree if present.
// Cleanup is best-effort: failures are logged, never returned.
func (s *Store) Remove(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		s.logger.Error("Failed to remove session directory", "path", path, "err", err)
		return
	}
	s.logger.Debug("Session directory removed", "path", path)
}

// WriteCredentials persists creds as creds.json inside dir atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) WriteCredentials(dir string, creds domain.Credentials) error {
	data, err := marshalCredentials(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-creds-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename replaces the destination on POSIX systems.
	if err := os.Rename(tmpPath, filepath.Join(dir, domain.CredentialsFile)); err != nil {
		return fmt.Errorf("failed to rename temp file to credentials: %w", err)
	}
	return nil
}

// ReadCredentials returns the raw contents of creds.json inside dir.
func (s *Store) ReadCredentials(dir string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, domain.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return data, nil
}
