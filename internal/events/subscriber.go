package events

import (
	"context"

	"memberhub-backend/internal/domain"
)

// Subscriber reacts to membership lifecycle events. Delivery is
// at-least-once and in sequence order per membership, so handlers must be
// idempotent; the event ID is the dedup key. A handler error stops the
// subscriber's cursor at the failed row and the dispatcher retries later.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event domain.MembershipEvent) error
}
