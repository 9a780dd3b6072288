package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driving"
)

// Ensure AccessService implements the interface.
var _ driving.AccessChecker = (*AccessService)(nil)

// AccessService answers whether a user has granted an app access.
type AccessService struct {
	config driven.ConfigResolver
	store  driven.CredentialStore
}

// NewAccessService creates a new access service.
func NewAccessService(config driven.ConfigResolver, store driven.CredentialStore) *AccessService {
	return &AccessService{config: config, store: store}
}

// IsAccessGranted returns true if the app is in fake mode or a non-empty
// access token is stored for (user, app).
func (s *AccessService) IsAccessGranted(ctx context.Context, userID, appID string) (bool, error) {
	if s.config == nil {
		return false, domain.ErrNotImplemented
	}
	app, err := s.config.AppConfig(appID)
	if err != nil {
		return false, fmt.Errorf("resolve app %q: %w", appID, err)
	}
	if app.Fake {
		return true, nil
	}
	if s.store == nil || userID == "" {
		return false, nil
	}

	rec, err := s.store.Get(ctx, userID, app.ID)
	if err != nil {
		return false, fmt.Errorf("get credentials: %w", err)
	}
	return rec.HasAccessToken(), nil
}
