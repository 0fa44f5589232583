package repository

import (
	"context"
	"sync"

	"chatcal/modules/calendar/entity"
)

// memoryCredentialStore is an in-process slot used by tests and local
// development without redis.
type memoryCredentialStore struct {
	mu   sync.Mutex
	cred *entity.Credential
}

func NewMemoryCredentialStore() CredentialStore {
	return &memoryCredentialStore{}
}

func (s *memoryCredentialStore) Save(_ context.Context, cred *entity.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cred
	s.cred = &copied
	return nil
}

func (s *memoryCredentialStore) Load(_ context.Context) (*entity.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, ErrNoCredential
	}
	copied := *s.cred
	return &copied, nil
}

func (s *memoryCredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
