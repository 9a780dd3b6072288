package driven

import (
	"context"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// InstrumentationSink receives one event per HTTP call.
// Observe must not block the caller for long and must not fail.
type InstrumentationSink interface {
	Observe(ctx context.Context, event domain.Event)
}
