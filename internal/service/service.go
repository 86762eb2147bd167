package service

import (
	"context"

	"memberhub-backend/internal/domain"
)

// MembershipService is the command surface of the lifecycle engine. Every
// command returns the updated membership snapshot or a typed failure;
// concurrent-modification conflicts are retried a bounded number of times
// with a fresh read before being surfaced.
type MembershipService interface {
	CreateMembership(ctx context.Context, orgID int32, externalRef string, sponsorID *int64, notifyEmail, locationText string) (*domain.Membership, error)
	GetMembership(ctx context.Context, id int64) (*domain.Membership, error)
	GetStatusHistory(ctx context.Context, id int64) ([]domain.StatusChange, error)
	Submit(ctx context.Context, id int64, actor string) (*domain.Membership, error)
	Verify(ctx context.Context, id int64, verifiedBy string) (*domain.Membership, error)
	RequestPayment(ctx context.Context, id int64, actor string) (*domain.Membership, error)
	ConfirmPayment(ctx context.Context, id int64, actor, paymentRef string) (*domain.Membership, error)
	Suspend(ctx context.Context, id int64, actor, reason string) (*domain.Membership, error)
	Reinstate(ctx context.Context, id int64, actor string) (*domain.Membership, error)
	Terminate(ctx context.Context, id int64, terminatedBy string) (*domain.Membership, error)
	EnrichGeography(ctx context.Context, id int64, actor string, assignment domain.GeographyAssignment) (*domain.Membership, error)
}

// GeoCandidate is one fuzzy-match result, ordered by descending confidence
// then ascending node id so batch decisions are reproducible.
type GeoCandidate struct {
	Node       domain.GeographyNode `json:"node"`
	Confidence float64              `json:"confidence"`
}

type GeographyService interface {
	CreateNode(ctx context.Context, orgID int32, name string, level domain.GeoLevel, parentID *int32) (*domain.GeographyNode, error)
	GetNode(ctx context.Context, id int32) (*domain.GeographyNode, error)
	ListChildren(ctx context.Context, id int32) ([]domain.GeographyNode, error)
	RetireNode(ctx context.Context, id int32) error
	IsDescendantOf(ctx context.Context, nodeID, ancestorID int32) (bool, error)
	FindByApproximateName(ctx context.Context, orgID int32, text string, withinAncestorID *int32) ([]GeoCandidate, error)
	// ListReviewQueue returns memberships the enrichment batch parked for
	// manual resolution; ResolveReviewItem closes one once a person has
	// assigned the geography out of band.
	ListReviewQueue(ctx context.Context, orgID int32, limit int32) ([]domain.ReviewItem, error)
	ResolveReviewItem(ctx context.Context, membershipID int64, resolvedBy string) error
}

type EmailService interface {
	SendLifecycleNotification(ctx context.Context, to, membershipNumber, subject, body string) error
}
