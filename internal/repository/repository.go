package repository

import (
	"context"

	"memberhub-backend/internal/domain"
)

type MembershipRepository interface {
	// Create inserts a Draft aggregate and fills in its id.
	Create(ctx context.Context, m *domain.Membership) error
	GetByID(ctx context.Context, id int64) (*domain.Membership, error)
	// Save persists the aggregate, its pending history entries and its
	// pending events in one transaction guarded by the version the
	// aggregate was read at. A stale version yields
	// domain.ErrConcurrentModification and nothing is written.
	Save(ctx context.Context, m *domain.Membership) error
	ListStatusHistory(ctx context.Context, membershipID int64) ([]domain.StatusChange, error)
	// ListTextTier returns non-terminated memberships whose geography is
	// still free text, across all tenants, ordered by id starting after
	// afterID, for resumable batch runs.
	ListTextTier(ctx context.Context, afterID int64, limit int32) ([]domain.Membership, error)
	// NextMembershipNumber reserves the next number from the per-tenant
	// sequence. Reserved numbers may be burned by failed transactions;
	// they are never reused.
	NextMembershipNumber(ctx context.Context, orgID int32) (int64, error)
}

type GeographyRepository interface {
	// CreateNode inserts the node and its materialized path in one
	// transaction and fills in the node's id and path.
	CreateNode(ctx context.Context, node *domain.GeographyNode) error
	GetNode(ctx context.Context, id int32) (*domain.GeographyNode, error)
	ListChildren(ctx context.Context, parentID int32) ([]domain.GeographyNode, error)
	// ListActive returns all non-retired nodes for a tenant, optionally
	// restricted to descendants of an ancestor node.
	ListActive(ctx context.Context, orgID int32, withinAncestorID *int32) ([]domain.GeographyNode, error)
	RetireNode(ctx context.Context, id int32) error
}

// OutboxRow pairs a stored event with its dispatch ordering key.
type OutboxRow struct {
	RowID int64
	Event domain.MembershipEvent
}

type OutboxRepository interface {
	// ListAfter returns outbox rows with id greater than afterID in id
	// order. Id order preserves per-membership sequence order because
	// events are appended in sequence inside the owning transaction.
	ListAfter(ctx context.Context, afterID int64, limit int32) ([]OutboxRow, error)
	GetCursor(ctx context.Context, subscriber string) (int64, error)
	SetCursor(ctx context.Context, subscriber string, rowID int64) error
}

type ReviewQueueRepository interface {
	// Enqueue records a membership whose location text could not be
	// matched confidently. Re-enqueueing the same membership is a no-op.
	Enqueue(ctx context.Context, item *domain.ReviewItem) error
	ListOpen(ctx context.Context, orgID int32, limit int32) ([]domain.ReviewItem, error)
	Resolve(ctx context.Context, membershipID int64, resolvedBy string) error
}
