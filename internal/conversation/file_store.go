package conversation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps each session as an indented JSON file <dir>/<session>.json
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(session string) (string, error) {
	if err := validateSession(session); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, session+".json"), nil
}

// Save writes the history atomically through a temp file and rename
func (s *FileStore) Save(ctx context.Context, session string, messages []Message) error {
	path, err := s.path(session)
	if err != nil {
		return err
	}

	data, err := Encode(messages)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, session+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Load reads the history; a missing file is an empty history
func (s *FileStore) Load(ctx context.Context, session string) ([]Message, error) {
	path, err := s.path(session)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return DecodeMessages(data)
}

// Delete removes the session file
func (s *FileStore) Delete(ctx context.Context, session string) error {
	path, err := s.path(session)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
