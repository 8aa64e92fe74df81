package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sparknexora/backoffice/internal/domain/session"
)

// fileStore keeps {"<key>": <credential>} in a single 0600 JSON file
type fileStore struct {
	mu   sync.Mutex
	path string
	key  string
}

// NewFile stores the credential in the JSON file at path
func NewFile(path, key string) (Store, error) {
	if path == "" {
		return nil, errors.New("file token store requires a path")
	}
	if key == "" {
		return nil, errors.New("file token store requires a key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token store dir: %w", err)
	}
	return &fileStore{path: path, key: key}, nil
}

func (s *fileStore) Load(context.Context) (session.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return session.Credential{}, err
	}
	raw, ok := doc[s.key]
	if !ok {
		return session.Credential{}, ErrNotFound
	}
	return decode(raw)
}

func (s *fileStore) Save(_ context.Context, cred session.Credential) error {
	raw, err := encode(cred)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrCorrupt) {
		return err
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	doc[s.key] = raw
	return s.write(doc)
}

func (s *fileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case errors.Is(err, ErrCorrupt):
		return os.Remove(s.path)
	case err != nil:
		return err
	}
	delete(doc, s.key)
	if len(doc) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return s.write(doc)
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

// write replaces the file atomically so a crash never leaves half a credential
func (s *fileStore) write(doc map[string]json.RawMessage) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credential-*")
	if err != nil {
		return fmt.Errorf("write token store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
