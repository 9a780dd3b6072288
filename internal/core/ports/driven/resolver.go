package driven

import (
	"context"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// ResourceResolver maps a logical (api, version, resource, method) tuple
// to an invocable remote operation.
type ResourceResolver interface {
	// Resolve returns the method or a *domain.UnknownResourceError.
	Resolve(ctx context.Context, api, version, resource, method string) (*domain.ResourceMethod, error)
}
