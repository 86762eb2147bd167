package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/repository"
)

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, ms *domain.Membership) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}

func (m *MockMembershipRepository) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Save(ctx context.Context, ms *domain.Membership) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}

func (m *MockMembershipRepository) ListStatusHistory(ctx context.Context, membershipID int64) ([]domain.StatusChange, error) {
	args := m.Called(ctx, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusChange), args.Error(1)
}

func (m *MockMembershipRepository) ListTextTier(ctx context.Context, afterID int64, limit int32) ([]domain.Membership, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Membership), args.Error(1)
}

func (m *MockMembershipRepository) NextMembershipNumber(ctx context.Context, orgID int32) (int64, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).(int64), args.Error(1)
}

type MockGeographyRepository struct {
	mock.Mock
}

func (m *MockGeographyRepository) CreateNode(ctx context.Context, node *domain.GeographyNode) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockGeographyRepository) GetNode(ctx context.Context, id int32) (*domain.GeographyNode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeographyNode), args.Error(1)
}

func (m *MockGeographyRepository) ListChildren(ctx context.Context, parentID int32) ([]domain.GeographyNode, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GeographyNode), args.Error(1)
}

func (m *MockGeographyRepository) ListActive(ctx context.Context, orgID int32, withinAncestorID *int32) ([]domain.GeographyNode, error) {
	args := m.Called(ctx, orgID, withinAncestorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GeographyNode), args.Error(1)
}

func (m *MockGeographyRepository) RetireNode(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReviewQueueRepository struct {
	mock.Mock
}

func (m *MockReviewQueueRepository) Enqueue(ctx context.Context, item *domain.ReviewItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockReviewQueueRepository) ListOpen(ctx context.Context, orgID int32, limit int32) ([]domain.ReviewItem, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewItem), args.Error(1)
}

func (m *MockReviewQueueRepository) Resolve(ctx context.Context, membershipID int64, resolvedBy string) error {
	args := m.Called(ctx, membershipID, resolvedBy)
	return args.Error(0)
}

var _ repository.MembershipRepository = (*MockMembershipRepository)(nil)
var _ repository.GeographyRepository = (*MockGeographyRepository)(nil)
var _ repository.ReviewQueueRepository = (*MockReviewQueueRepository)(nil)
