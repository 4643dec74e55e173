// Package credfile persists the session credential as a single opaque text
// blob on disk.
package credfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yumeka/bili2tg/internal/domain"
	"github.com/yumeka/bili2tg/internal/ports"
)

const (
	credentialDirMode  = 0o700
	credentialFileMode = 0o600
)

type Store struct {
	path string
	mu   sync.RWMutex
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

func (s *Store) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("load credential from %q: %w", s.path, domain.ErrNoCredential)
		}
		return "", fmt.Errorf("load credential from %q: %w", s.path, err)
	}

	return string(data), nil
}

func (s *Store) Save(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), credentialDirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(credential), credentialFileMode); err != nil {
		return fmt.Errorf("write credential to %q: %w", s.path, err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear credential at %q: %w", s.path, err)
	}

	return nil
}
