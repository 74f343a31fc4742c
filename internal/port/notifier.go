package port

import (
	"context"

	"github.com/google/uuid"
)

// Notifier delivers a best-effort completion notification. Failures are
// retried by the caller and then logged; they never affect financial state.
type Notifier interface {
	Send(ctx context.Context, withdrawalID uuid.UUID) error
}
