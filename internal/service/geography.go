package service

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/repository"
)

type geographyService struct {
	geoRepo    repository.GeographyRepository
	reviewRepo repository.ReviewQueueRepository
}

func NewGeographyService(geoRepo repository.GeographyRepository, reviewRepo repository.ReviewQueueRepository) GeographyService {
	return &geographyService{geoRepo: geoRepo, reviewRepo: reviewRepo}
}

func (s *geographyService) CreateNode(ctx context.Context, orgID int32, name string, level domain.GeoLevel, parentID *int32) (*domain.GeographyNode, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "node name is required"}
	}
	if level.Depth() < 0 {
		return nil, &domain.InvalidHierarchyError{Reason: "unknown level " + string(level)}
	}
	if parentID == nil {
		if level != domain.GeoLevelRegion {
			return nil, &domain.InvalidHierarchyError{Reason: "root nodes must be " + string(domain.GeoLevelRegion)}
		}
	} else {
		parent, err := s.geoRepo.GetNode(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.OrgID != orgID {
			return nil, &domain.InvalidHierarchyError{Reason: "parent belongs to a different tenant"}
		}
		if !level.ChildOf(parent.Level) {
			return nil, &domain.InvalidHierarchyError{
				Reason: string(level) + " is not directly below " + string(parent.Level),
			}
		}
	}

	node := &domain.GeographyNode{
		OrgID:    orgID,
		Name:     name,
		Level:    level,
		ParentID: parentID,
	}
	if err := s.geoRepo.CreateNode(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *geographyService) GetNode(ctx context.Context, id int32) (*domain.GeographyNode, error) {
	return s.geoRepo.GetNode(ctx, id)
}

func (s *geographyService) ListChildren(ctx context.Context, id int32) ([]domain.GeographyNode, error) {
	if _, err := s.geoRepo.GetNode(ctx, id); err != nil {
		return nil, err
	}
	return s.geoRepo.ListChildren(ctx, id)
}

func (s *geographyService) RetireNode(ctx context.Context, id int32) error {
	return s.geoRepo.RetireNode(ctx, id)
}

// IsDescendantOf is a containment check over the child's materialized
// path; no recursive walk.
func (s *geographyService) IsDescendantOf(ctx context.Context, nodeID, ancestorID int32) (bool, error) {
	node, err := s.geoRepo.GetNode(ctx, nodeID)
	if err != nil {
		return false, err
	}
	return node.IsDescendantOf(ancestorID), nil
}

// FindByApproximateName scores every active node of the tenant against the
// free-form text. A node's own name is matched against the comma-separated
// segments of the text (exact, containment, then edit distance), and nodes
// whose ancestor names also occur in the text score higher, which is what
// lets "Ward 7, Kathmandu" resolve to the ward under Kathmandu rather
// than some other Ward 7. Ordering is confidence descending then node id
// ascending so batch decisions are reproducible.
func (s *geographyService) FindByApproximateName(ctx context.Context, orgID int32, text string, withinAncestorID *int32) ([]GeoCandidate, error) {
	nodes, err := s.geoRepo.ListActive(ctx, orgID, withinAncestorID)
	if err != nil {
		return nil, err
	}

	names := make(map[int32]string, len(nodes))
	for _, n := range nodes {
		names[n.ID] = n.Name
	}
	// a scoped listing omits ancestors above the scope root (and retired
	// ancestors in general); resolve their names so the ancestor bonus
	// still sees them
	for _, n := range nodes {
		for _, id := range n.Path {
			if _, ok := names[id]; ok {
				continue
			}
			ancestor, err := s.geoRepo.GetNode(ctx, id)
			if err != nil {
				return nil, err
			}
			names[id] = ancestor.Name
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	segments := splitSegments(normalized)

	var candidates []GeoCandidate
	for _, n := range nodes {
		nameScore := bestSegmentScore(segments, strings.ToLower(n.Name))
		if nameScore <= 0 {
			continue
		}
		conf := 0.7*nameScore + 0.3*ancestorFraction(n, names, normalized)
		candidates = append(candidates, GeoCandidate{Node: n, Confidence: conf})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Node.ID < candidates[j].Node.ID
	})
	return candidates, nil
}

func (s *geographyService) ListReviewQueue(ctx context.Context, orgID int32, limit int32) ([]domain.ReviewItem, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.reviewRepo.ListOpen(ctx, orgID, limit)
}

func (s *geographyService) ResolveReviewItem(ctx context.Context, membershipID int64, resolvedBy string) error {
	if resolvedBy == "" {
		return &domain.ValidationError{Field: "resolved_by", Reason: "resolving actor is required"}
	}
	return s.reviewRepo.Resolve(ctx, membershipID, resolvedBy)
}

func splitSegments(text string) []string {
	parts := strings.Split(text, ",")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// bestSegmentScore returns the best match of name against any text
// segment: 1.0 exact, 0.85 containment, otherwise edit distance scaled to
// segment length with anything below 0.5 discarded as noise.
func bestSegmentScore(segments []string, name string) float64 {
	best := 0.0
	for _, seg := range segments {
		var score float64
		switch {
		case seg == name:
			score = 1.0
		case strings.Contains(seg, name) || strings.Contains(name, seg):
			score = 0.85
		default:
			longest := len(seg)
			if len(name) > longest {
				longest = len(name)
			}
			if longest == 0 {
				continue
			}
			score = 1.0 - float64(levenshtein.ComputeDistance(seg, name))/float64(longest)
			if score < 0.5 {
				score = 0
			}
		}
		if score > best {
			best = score
		}
	}
	return best
}

// ancestorFraction is the share of the node's proper ancestors whose
// names occur in the text. A root node has no ancestors to contradict the
// text, so it scores the full fraction.
func ancestorFraction(n domain.GeographyNode, names map[int32]string, text string) float64 {
	total := 0
	matched := 0
	for _, id := range n.Path {
		if id == n.ID {
			continue
		}
		total++
		if name, ok := names[id]; ok && strings.Contains(text, strings.ToLower(name)) {
			matched++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(matched) / float64(total)
}
