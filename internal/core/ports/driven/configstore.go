package driven

import "github.com/custodia-labs/campusbridge/internal/core/domain"

// ConfigResolver provides the environment-specific configuration of an app.
type ConfigResolver interface {
	// AppConfig returns the configuration of appID, or of the default app
	// when appID is empty. Unknown apps fail with domain.ErrUnknownApp.
	AppConfig(appID string) (domain.AppConfig, error)

	// AppIDs lists the configured app identities.
	AppIDs() []string
}
