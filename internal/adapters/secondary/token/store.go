package token

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// DefaultPath returns the token file location under the user config directory
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "slidectl", "token.toml")
}

type tokenFile struct {
	Token     string    `toml:"token"`
	CreatedAt time.Time `toml:"created_at"`
}

// FileStore keeps the token in a TOML file readable only by the owner
type FileStore struct {
	path      string
	generator ports.TokenGenerator
	mu        sync.RWMutex
	current   string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string, generator ports.TokenGenerator) *FileStore {
	if generator == nil {
		generator = NewRandomGenerator()
	}
	return &FileStore{path: path, generator: generator}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// GetOrCreate loads the persisted token, creating and saving one if none exists
func (s *FileStore) GetOrCreate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored tokenFile
	_, err := toml.DecodeFile(s.path, &stored)
	switch {
	case err == nil && stored.Token != "":
		s.current = stored.Token
		return s.current, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("reading token file %s: %w", s.path, err)
	}

	return s.regenerateLocked()
}

// Regenerate replaces the token and persists it
func (s *FileStore) Regenerate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regenerateLocked()
}

// Current returns the token loaded or generated last
func (s *FileStore) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *FileStore) regenerateLocked() (string, error) {
	tok, err := s.generator.Generate()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", s.path, err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 - path is the configured token file
	if err != nil {
		return "", fmt.Errorf("writing token file %s: %w", s.path, err)
	}
	defer func() { _ = file.Close() }()

	if err := toml.NewEncoder(file).Encode(tokenFile{Token: tok, CreatedAt: time.Now().UTC()}); err != nil {
		return "", fmt.Errorf("encoding token file %s: %w", s.path, err)
	}

	s.current = tok
	return tok, nil
}

// MemoryStore keeps the token in memory only
type MemoryStore struct {
	generator ports.TokenGenerator
	mu        sync.RWMutex
	current   string
}

// NewMemoryStore creates an in-memory store seeded with initial (may be empty)
func NewMemoryStore(initial string, generator ports.TokenGenerator) *MemoryStore {
	if generator == nil {
		generator = NewRandomGenerator()
	}
	return &MemoryStore{generator: generator, current: initial}
}

// GetOrCreate returns the token, generating one when empty
func (s *MemoryStore) GetOrCreate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" {
		return s.current, nil
	}
	tok, err := s.generator.Generate()
	if err != nil {
		return "", err
	}
	s.current = tok
	return tok, nil
}

// Regenerate replaces the token
func (s *MemoryStore) Regenerate() (string, error) {
	tok, err := s.generator.Generate()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.current = tok
	s.mu.Unlock()
	return tok, nil
}

// Current returns the active token
func (s *MemoryStore) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

var (
	_ ports.TokenStore = (*FileStore)(nil)
	_ ports.TokenStore = (*MemoryStore)(nil)
)
