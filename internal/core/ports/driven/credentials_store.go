package driven

import (
	"context"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// CredentialStore persists OAuth tokens keyed by (user, app).
//
// It is the only mutable state shared between concurrent requests.
// Implementations must be safe for concurrent use, and writing the same
// record twice must be harmless.
type CredentialStore interface {
	// Get retrieves the record for a user and app.
	// Returns nil, nil if no record exists.
	Get(ctx context.Context, userID, appID string) (*domain.CredentialRecord, error)

	// Put stores a record. Creates if new, updates if exists.
	Put(ctx context.Context, record domain.CredentialRecord) error

	// Delete removes the record for a user and app.
	// Deleting a missing record is not an error.
	Delete(ctx context.Context, userID, appID string) error
}
