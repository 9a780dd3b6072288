package driven

import "context"

// FixtureProvider returns canned response bodies keyed by name.
// Missing fixtures are reported with domain.ErrFixtureNotFound.
type FixtureProvider interface {
	Fixture(ctx context.Context, name string) ([]byte, error)
}
