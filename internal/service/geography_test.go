package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memberhub-backend/internal/domain"
)

func int32Ptr(v int32) *int32 { return &v }

// nepalTree is the fixture for name resolution: one region with two
// subregions, each owning a ward named "Ward 7".
func nepalTree() []domain.GeographyNode {
	return []domain.GeographyNode{
		{ID: 1, OrgID: 1, Name: "Bagmati", Level: domain.GeoLevelRegion, Path: []int32{1}},
		{ID: 5, OrgID: 1, Name: "Kathmandu", Level: domain.GeoLevelSubregion, ParentID: int32Ptr(1), Path: []int32{1, 5}},
		{ID: 6, OrgID: 1, Name: "Lalitpur", Level: domain.GeoLevelSubregion, ParentID: int32Ptr(1), Path: []int32{1, 6}},
		{ID: 23, OrgID: 1, Name: "Ward 7", Level: domain.GeoLevelWard, ParentID: int32Ptr(5), Path: []int32{1, 5, 23}},
		{ID: 30, OrgID: 1, Name: "Ward 7", Level: domain.GeoLevelWard, ParentID: int32Ptr(6), Path: []int32{1, 6, 30}},
	}
}

func TestCreateNodeRootMustBeRegion(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	_, err := svc.CreateNode(context.Background(), 1, "Ward 7", domain.GeoLevelWard, nil)
	var hErr *domain.InvalidHierarchyError
	require.ErrorAs(t, err, &hErr)
	repo.AssertNotCalled(t, "CreateNode", mock.Anything, mock.Anything)
}

func TestCreateNodeRejectsLevelSkip(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	region := &domain.GeographyNode{ID: 1, OrgID: 1, Name: "Bagmati", Level: domain.GeoLevelRegion, Path: []int32{1}}
	repo.On("GetNode", mock.Anything, int32(1)).Return(region, nil)

	// a ward directly under a region skips the subregion level
	_, err := svc.CreateNode(context.Background(), 1, "Ward 7", domain.GeoLevelWard, int32Ptr(1))
	var hErr *domain.InvalidHierarchyError
	require.ErrorAs(t, err, &hErr)
	repo.AssertNotCalled(t, "CreateNode", mock.Anything, mock.Anything)
}

func TestCreateNodeRejectsCrossTenantParent(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	region := &domain.GeographyNode{ID: 1, OrgID: 2, Name: "Bagmati", Level: domain.GeoLevelRegion, Path: []int32{1}}
	repo.On("GetNode", mock.Anything, int32(1)).Return(region, nil)

	_, err := svc.CreateNode(context.Background(), 1, "Kathmandu", domain.GeoLevelSubregion, int32Ptr(1))
	var hErr *domain.InvalidHierarchyError
	require.ErrorAs(t, err, &hErr)
}

func TestCreateNodeValidChild(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	region := &domain.GeographyNode{ID: 1, OrgID: 1, Name: "Bagmati", Level: domain.GeoLevelRegion, Path: []int32{1}}
	repo.On("GetNode", mock.Anything, int32(1)).Return(region, nil)
	repo.On("CreateNode", mock.Anything, mock.MatchedBy(func(n *domain.GeographyNode) bool {
		return n.Name == "Kathmandu" && n.Level == domain.GeoLevelSubregion && n.ParentID != nil && *n.ParentID == 1
	})).Return(nil)

	node, err := svc.CreateNode(context.Background(), 1, "Kathmandu", domain.GeoLevelSubregion, int32Ptr(1))
	require.NoError(t, err)
	assert.Equal(t, domain.GeoLevelSubregion, node.Level)
	repo.AssertExpectations(t)
}

func TestIsDescendantOfUsesPathContainment(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	ward := &domain.GeographyNode{ID: 23, OrgID: 1, Name: "Ward 7", Level: domain.GeoLevelWard, Path: []int32{1, 5, 23}}
	repo.On("GetNode", mock.Anything, int32(23)).Return(ward, nil)

	ok, err := svc.IsDescendantOf(context.Background(), 23, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsDescendantOf(context.Background(), 23, 6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByApproximateNameDisambiguatesByAncestor(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	repo.On("ListActive", mock.Anything, int32(1), (*int32)(nil)).Return(nepalTree(), nil)

	candidates, err := svc.FindByApproximateName(context.Background(), 1, "Ward 7, Kathmandu", nil)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	// the ward under Kathmandu wins because its ancestor name occurs in
	// the text; the ward under Lalitpur only gets the bare name score
	top := candidates[0]
	assert.Equal(t, int32(23), top.Node.ID)
	assert.InDelta(t, 0.85, top.Confidence, 1e-9)

	for _, c := range candidates[1:] {
		assert.Less(t, c.Confidence, top.Confidence)
		if c.Node.ID == 30 {
			assert.InDelta(t, 0.70, c.Confidence, 1e-9)
		}
	}
}

func TestFindByApproximateNameDeterministicOrder(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	repo.On("ListActive", mock.Anything, int32(1), (*int32)(nil)).Return(nepalTree(), nil)

	first, err := svc.FindByApproximateName(context.Background(), 1, "Ward 7", nil)
	require.NoError(t, err)
	second, err := svc.FindByApproximateName(context.Background(), 1, "Ward 7", nil)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))

	for i := range first {
		assert.Equal(t, first[i].Node.ID, second[i].Node.ID)
		if i > 0 {
			prev, cur := first[i-1], first[i]
			better := prev.Confidence > cur.Confidence ||
				(prev.Confidence == cur.Confidence && prev.Node.ID < cur.Node.ID)
			assert.True(t, better, "candidates out of order at %d", i)
		}
	}

	// equal-confidence wards are ordered by id
	assert.Equal(t, int32(23), first[0].Node.ID)
	assert.Equal(t, int32(30), first[1].Node.ID)
}

func TestFindByApproximateNameToleratesMisspelling(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	repo.On("ListActive", mock.Anything, int32(1), (*int32)(nil)).Return(nepalTree(), nil)

	candidates, err := svc.FindByApproximateName(context.Background(), 1, "Kathmndu", nil)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, int32(5), candidates[0].Node.ID)
}

func TestFindByApproximateNameScopedToAncestor(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	// the repository is expected to pre-filter by the ancestor's path
	scoped := []domain.GeographyNode{
		{ID: 5, OrgID: 1, Name: "Kathmandu", Level: domain.GeoLevelSubregion, ParentID: int32Ptr(1), Path: []int32{1, 5}},
		{ID: 23, OrgID: 1, Name: "Ward 7", Level: domain.GeoLevelWard, ParentID: int32Ptr(5), Path: []int32{1, 5, 23}},
	}
	repo.On("ListActive", mock.Anything, int32(1), int32Ptr(5)).Return(scoped, nil)
	repo.On("GetNode", mock.Anything, int32(1)).
		Return(&domain.GeographyNode{ID: 1, OrgID: 1, Name: "Bagmati", Level: domain.GeoLevelRegion, Path: []int32{1}}, nil)

	candidates, err := svc.FindByApproximateName(context.Background(), 1, "Ward 7", int32Ptr(5))
	require.NoError(t, err)
	for _, c := range candidates {
		assert.True(t, c.Node.IsDescendantOf(5))
	}
}

func TestFindByApproximateNameResolvesAncestorsAboveScope(t *testing.T) {
	repo := new(MockGeographyRepository)
	svc := NewGeographyService(repo, new(MockReviewQueueRepository))

	// Bagmati is above the scope root, so the listing never contains it;
	// its name in the text must still count toward the ancestor bonus
	scoped := []domain.GeographyNode{
		{ID: 23, OrgID: 1, Name: "Ward 7", Level: domain.GeoLevelWard, ParentID: int32Ptr(5), Path: []int32{1, 5, 23}},
	}
	repo.On("ListActive", mock.Anything, int32(1), int32Ptr(5)).Return(scoped, nil)
	repo.On("GetNode", mock.Anything, int32(1)).
		Return(&domain.GeographyNode{ID: 1, OrgID: 1, Name: "Bagmati", Level: domain.GeoLevelRegion, Path: []int32{1}}, nil)
	repo.On("GetNode", mock.Anything, int32(5)).
		Return(&domain.GeographyNode{ID: 5, OrgID: 1, Name: "Kathmandu", Level: domain.GeoLevelSubregion, ParentID: int32Ptr(1), Path: []int32{1, 5}}, nil)

	candidates, err := svc.FindByApproximateName(context.Background(), 1, "Ward 7, Bagmati", int32Ptr(5))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	// 0.7 name match + 0.3 * (1 of 2 ancestor names in the text)
	assert.InDelta(t, 0.85, candidates[0].Confidence, 1e-9)
}

func TestListReviewQueueDefaultsLimit(t *testing.T) {
	reviewRepo := new(MockReviewQueueRepository)
	svc := NewGeographyService(new(MockGeographyRepository), reviewRepo)

	parked := []domain.ReviewItem{{ID: 1, MembershipID: 100, OrgID: 1, LocationText: "somewhere vague"}}
	reviewRepo.On("ListOpen", mock.Anything, int32(1), int32(50)).Return(parked, nil)

	items, err := svc.ListReviewQueue(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(100), items[0].MembershipID)
	reviewRepo.AssertExpectations(t)
}

func TestResolveReviewItemRequiresActor(t *testing.T) {
	reviewRepo := new(MockReviewQueueRepository)
	svc := NewGeographyService(new(MockGeographyRepository), reviewRepo)

	var vErr *domain.ValidationError
	require.ErrorAs(t, svc.ResolveReviewItem(context.Background(), 100, ""), &vErr)
	reviewRepo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)

	reviewRepo.On("Resolve", mock.Anything, int64(100), "staff-alice").Return(nil)
	require.NoError(t, svc.ResolveReviewItem(context.Background(), 100, "staff-alice"))
	reviewRepo.AssertExpectations(t)
}
