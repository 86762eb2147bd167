package domain

// ReviewItem is one entry in the manual-review queue. The enrichment batch
// parks memberships here when no geography candidate clears the confidence
// threshold; a human collaborator resolves them out of band.
type ReviewItem struct {
	ID            int64   `json:"id"`
	MembershipID  int64   `json:"membership_id"`
	OrgID         int32   `json:"org_id"`
	LocationText  string  `json:"location_text"`
	BestNodeID    *int32  `json:"best_node_id,omitempty"`
	BestScore     float64 `json:"best_score"`
	ResolvedBy    string  `json:"resolved_by,omitempty"`
	ResolvedOn    *string `json:"resolved_on,omitempty"`
	CreatedOn     string  `json:"created_on"`
}
