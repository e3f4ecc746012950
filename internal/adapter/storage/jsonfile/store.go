// Package jsonfile persists the user collection as a pretty-printed JSON
// array in a single file.
//
// Every Load reads the whole file and every Save rewrites it. Save writes a
// temporary file next to the target and renames it into place, so readers see
// either the previous or the new content in full.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	domain "user-file-service/internal/domain/user"
	"user-file-service/pkg/logger"
)

// Store implements the user collection store on top of an afero filesystem.
type Store struct {
	fs   afero.Fs
	path string
	log  *zap.Logger
}

// New creates a Store for the file at path on the given filesystem.
func New(fsys afero.Fs, path string, log *zap.Logger) *Store {
	return &Store{fs: fsys, path: path, log: log}
}

// NewOS creates a Store backed by the operating system filesystem.
func NewOS(path string, log *zap.Logger) *Store {
	return New(afero.NewOsFs(), path, log)
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full collection. A missing file yields an empty collection;
// an unreadable file, invalid JSON or a top-level value other than an array
// is logged and also yields an empty collection. Elements of a well-formed
// array are returned as stored, whatever their fields hold. Load never
// returns an error.
func (s *Store) Load(ctx context.Context) (domain.Collection, error) {
	log := logger.WithContext(ctx, s.log)

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("users file does not exist, starting empty", zap.String("path", s.path))
		} else {
			log.Error("failed to read users file", zap.String("path", s.path), zap.Error(err))
		}
		return domain.Collection{}, nil
	}

	users, err := decode(data)
	if err != nil {
		log.Error("failed to parse users file", zap.String("path", s.path), zap.Error(err))
		return domain.Collection{}, nil
	}

	return users, nil
}

func decode(data []byte) (domain.Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("users file does not contain a JSON array")
	}

	var users domain.Collection
	if err := json.Unmarshal(trimmed, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = domain.Collection{}
	}
	return users, nil
}

// Save serializes the full collection and atomically replaces the file.
func (s *Store) Save(ctx context.Context, users domain.Collection) error {
	if users == nil {
		users = domain.Collection{}
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	if err := s.writeAtomic(data); err != nil {
		logger.WithContext(ctx, s.log).Error("failed to write users file", zap.String("path", s.path), zap.Error(err))
		return err
	}

	logger.WithContext(ctx, s.log).Debug("users file written", zap.String("path", s.path), zap.Int("count", len(users)))
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = s.fs.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
