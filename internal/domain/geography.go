package domain

type GeoLevel string

const (
	GeoLevelRegion    GeoLevel = "REGION"
	GeoLevelSubregion GeoLevel = "SUBREGION"
	GeoLevelWard      GeoLevel = "WARD"
)

// geoLevelDepth maps each level to its depth in the hierarchy.
// A node's depth is always len(Path)-1.
var geoLevelDepth = map[GeoLevel]int{
	GeoLevelRegion:    0,
	GeoLevelSubregion: 1,
	GeoLevelWard:      2,
}

// Depth returns the hierarchy depth of the level, or -1 for an unknown level.
func (l GeoLevel) Depth() int {
	d, ok := geoLevelDepth[l]
	if !ok {
		return -1
	}
	return d
}

// ChildOf reports whether l is exactly one level below parent.
func (l GeoLevel) ChildOf(parent GeoLevel) bool {
	return l.Depth() == parent.Depth()+1 && l.Depth() > 0
}

// GeographyNode is one administrative unit in the immutable hierarchy.
// Nodes are created once by a seeding process and never edited in place;
// boundary changes retire old nodes and create new ones so that historical
// membership assignments stay referentially intact.
type GeographyNode struct {
	ID        int32    `json:"id"`
	OrgID     int32    `json:"org_id"`
	Name      string   `json:"name"`
	Level     GeoLevel `json:"level"`
	ParentID  *int32   `json:"parent_id,omitempty"`
	Path      []int32  `json:"path"` // ancestor ids, root first, including the node itself
	Retired   bool     `json:"retired"`
	CreatedOn string   `json:"created_on"`
}

// IsDescendantOf reports whether ancestorID appears in the node's
// materialized path. A node is considered its own descendant.
func (n *GeographyNode) IsDescendantOf(ancestorID int32) bool {
	for _, id := range n.Path {
		if id == ancestorID {
			return true
		}
	}
	return false
}

type GeographyTier string

const (
	GeoTierNone     GeographyTier = "NONE"
	GeoTierText     GeographyTier = "TEXT"
	GeoTierVerified GeographyTier = "VERIFIED"
)

var geoTierRank = map[GeographyTier]int{
	GeoTierNone:     0,
	GeoTierText:     1,
	GeoTierVerified: 2,
}

// Rank returns the ordering of the tier (NONE < TEXT < VERIFIED).
func (t GeographyTier) Rank() int {
	return geoTierRank[t]
}

// GeographyAssignment is the location value embedded in a Membership.
// When Tier is VERIFIED the path and names are a snapshot captured at
// assignment time; they are never re-resolved, so reports stay stable
// even after the referenced node is retired.
type GeographyAssignment struct {
	Tier         GeographyTier `json:"tier"`
	LocationText string        `json:"location_text,omitempty"`
	NodeID       *int32        `json:"node_id,omitempty"`
	PathIDs      []int32       `json:"path_ids,omitempty"`
	PathNames    []string      `json:"path_names,omitempty"`
}

// NoGeography is the zero assignment for a freshly created membership.
func NoGeography() GeographyAssignment {
	return GeographyAssignment{Tier: GeoTierNone}
}

// TextGeography builds a TEXT-tier assignment from free-form location text.
func TextGeography(text string) GeographyAssignment {
	return GeographyAssignment{Tier: GeoTierText, LocationText: text}
}

// VerifiedGeography builds a VERIFIED-tier assignment with the resolved
// node's path snapshot. The original free text is retained for audit.
func VerifiedGeography(text string, nodeID int32, pathIDs []int32, pathNames []string) GeographyAssignment {
	return GeographyAssignment{
		Tier:         GeoTierVerified,
		LocationText: text,
		NodeID:       &nodeID,
		PathIDs:      pathIDs,
		PathNames:    pathNames,
	}
}
