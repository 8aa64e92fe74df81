package tokenstore

import (
	"context"
	"sync"

	"github.com/sparknexora/backoffice/internal/domain/session"
)

type memoryStore struct {
	mu  sync.Mutex
	raw []byte
}

// NewMemory keeps the credential in process memory; it does not survive a restart
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Load(context.Context) (session.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return session.Credential{}, ErrNotFound
	}
	return decode(s.raw)
}

func (s *memoryStore) Save(_ context.Context, cred session.Credential) error {
	raw, err := encode(cred)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
