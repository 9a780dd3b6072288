package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

type recordKey struct {
	userID string
	appID  string
}

// CredentialStore is an in-memory implementation of driven.CredentialStore.
// It backs fake mode and tests.
type CredentialStore struct {
	mu      sync.RWMutex
	records map[recordKey]domain.CredentialRecord
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		records: make(map[recordKey]domain.CredentialRecord),
	}
}

// Get retrieves the record for a user and app.
func (s *CredentialStore) Get(_ context.Context, userID, appID string) (*domain.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{userID, appID}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put stores or updates a record.
func (s *CredentialStore) Put(_ context.Context, rec domain.CredentialRecord) error {
	if rec.UserID == "" || rec.AppID == "" {
		return domain.ErrInvalidInput
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{rec.UserID, rec.AppID}] = rec
	return nil
}

// Delete removes the record for a user and app.
func (s *CredentialStore) Delete(_ context.Context, userID, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey{userID, appID})
	return nil
}

// Len returns the number of stored records.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
