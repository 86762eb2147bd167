package domain

import "fmt"

type MembershipStatus string

const (
	StatusDraft           MembershipStatus = "DRAFT"
	StatusSubmitted       MembershipStatus = "SUBMITTED"
	StatusVerified        MembershipStatus = "VERIFIED"
	StatusAwaitingPayment MembershipStatus = "AWAITING_PAYMENT"
	StatusActive          MembershipStatus = "ACTIVE"
	StatusSuspended       MembershipStatus = "SUSPENDED"
	StatusTerminated      MembershipStatus = "TERMINATED"
)

// legalTransitions is the complete edge set of the lifecycle state machine.
// Any requested edge not listed here fails with IllegalTransitionError;
// edges are never coerced or skipped.
var legalTransitions = map[MembershipStatus][]MembershipStatus{
	StatusDraft:           {StatusSubmitted},
	StatusSubmitted:       {StatusVerified},
	StatusVerified:        {StatusAwaitingPayment},
	StatusAwaitingPayment: {StatusActive},
	StatusActive:          {StatusSuspended, StatusTerminated},
	StatusSuspended:       {StatusActive, StatusTerminated},
	StatusTerminated:      {},
}

// LegalSuccessors returns the states reachable from s by a single edge.
func LegalSuccessors(s MembershipStatus) []MembershipStatus {
	succ := legalTransitions[s]
	out := make([]MembershipStatus, len(succ))
	copy(out, succ)
	return out
}

// IsTerminal reports whether no edge leaves s.
func IsTerminal(s MembershipStatus) bool {
	return len(legalTransitions[s]) == 0
}

// StatusChange is one append-only history entry. Every mutating operation
// produces exactly one entry, including geography enrichment (recorded as
// a self-edge with a note).
type StatusChange struct {
	ID           int64            `json:"id"`
	MembershipID int64            `json:"membership_id"`
	FromStatus   MembershipStatus `json:"from_status"`
	ToStatus     MembershipStatus `json:"to_status"`
	Actor        string           `json:"actor"`
	Note         string           `json:"note,omitempty"`
	CreatedOn    string           `json:"created_on"`
}

// Membership is the aggregate root. It is mutated exclusively through the
// command methods below; each successful command appends one history entry,
// emits zero or more events and leaves the aggregate dirty for the
// repository to persist under an optimistic version check.
type Membership struct {
	ID                  int64               `json:"id"`
	OrgID               int32               `json:"org_id"`
	ExternalIdentityRef string              `json:"external_identity_ref"`
	MembershipNumber    string              `json:"membership_number,omitempty"`
	Status              MembershipStatus    `json:"status"`
	Geography           GeographyAssignment `json:"geography"`
	SponsorID           *int64              `json:"sponsor_id,omitempty"`
	NotifyEmail         string              `json:"notify_email,omitempty"`
	PaymentRef          string              `json:"payment_ref,omitempty"`
	Version             int64               `json:"version"`
	EventSeq            int64               `json:"event_seq"`
	CreatedOn           string              `json:"created_on"`
	UpdatedOn           string              `json:"updated_on"`

	pendingHistory []StatusChange
	pendingEvents  []MembershipEvent
}

// NewMembership creates a Draft aggregate. The sponsor link is set here and
// never repointed, which keeps the sponsor graph acyclic by construction.
func NewMembership(orgID int32, externalRef string, sponsorID *int64, notifyEmail string, geo GeographyAssignment) *Membership {
	if geo.Tier == "" {
		geo = NoGeography()
	}
	return &Membership{
		OrgID:               orgID,
		ExternalIdentityRef: externalRef,
		Status:              StatusDraft,
		Geography:           geo,
		SponsorID:           sponsorID,
		NotifyEmail:         notifyEmail,
		Version:             1,
	}
}

// PendingEvents returns the events emitted since the last persist.
func (m *Membership) PendingEvents() []MembershipEvent { return m.pendingEvents }

// PendingHistory returns the history entries appended since the last persist.
func (m *Membership) PendingHistory() []StatusChange { return m.pendingHistory }

// Dirty reports whether the aggregate has uncommitted changes. Idempotent
// no-op commands (a retried confirmPayment) leave the aggregate clean.
func (m *Membership) Dirty() bool { return len(m.pendingHistory) > 0 }

// ClearPending is called by the repository after a successful persist.
func (m *Membership) ClearPending() {
	m.pendingHistory = nil
	m.pendingEvents = nil
}

func (m *Membership) transition(to MembershipStatus, actor, note string) error {
	for _, legal := range legalTransitions[m.Status] {
		if legal == to {
			m.pendingHistory = append(m.pendingHistory, StatusChange{
				MembershipID: m.ID,
				FromStatus:   m.Status,
				ToStatus:     to,
				Actor:        actor,
				Note:         note,
			})
			m.Status = to
			return nil
		}
	}
	return &IllegalTransitionError{From: m.Status, Requested: to, Legal: LegalSuccessors(m.Status)}
}

func (m *Membership) emit(typ EventType, payload map[string]string) {
	m.EventSeq++
	m.pendingEvents = append(m.pendingEvents, newEvent(m, typ, payload))
}

// Submit moves Draft to Submitted. It requires at least a TEXT-tier
// geography and assigns the membership number on first use; the number is
// reserved by the caller from the per-tenant sequence.
func (m *Membership) Submit(actor, membershipNumber string) error {
	if m.Geography.Tier == GeoTierNone {
		return &ValidationError{Field: "geography", Reason: "membership needs at least a free-text location before submission"}
	}
	if m.Geography.Tier == GeoTierText && m.Geography.LocationText == "" {
		return &ValidationError{Field: "geography", Reason: "free-text location is empty"}
	}
	if err := m.transition(StatusSubmitted, actor, ""); err != nil {
		return err
	}
	if m.MembershipNumber == "" {
		m.MembershipNumber = membershipNumber
	}
	m.emit(EventSubmitted, map[string]string{
		"geography_tier": string(m.Geography.Tier),
	})
	return nil
}

// Verify moves Submitted to Verified. Identity/document verification and
// geography verification are independent concerns, so no geography tier is
// required here.
func (m *Membership) Verify(verifiedBy string) error {
	if err := m.transition(StatusVerified, verifiedBy, ""); err != nil {
		return err
	}
	m.emit(EventVerified, map[string]string{"verified_by": verifiedBy})
	return nil
}

// RequestPayment moves Verified to AwaitingPayment.
func (m *Membership) RequestPayment(actor string) error {
	return m.transition(StatusAwaitingPayment, actor, "")
}

// ConfirmPayment moves AwaitingPayment to Active. Payment collaborators
// retry confirmations, so confirming an already-Active membership with the
// same payment ref is a no-op success, not an error.
func (m *Membership) ConfirmPayment(actor, paymentRef string) error {
	if paymentRef == "" {
		return &ValidationError{Field: "payment_ref", Reason: "payment reference is required"}
	}
	if m.Status == StatusActive && m.PaymentRef == paymentRef {
		return nil
	}
	if err := m.transition(StatusActive, actor, fmt.Sprintf("payment %s", paymentRef)); err != nil {
		return err
	}
	m.PaymentRef = paymentRef
	m.emit(EventActivated, map[string]string{"payment_ref": paymentRef})
	return nil
}

// Suspend moves Active to Suspended. A reason is mandatory.
func (m *Membership) Suspend(actor, reason string) error {
	if reason == "" {
		return &ValidationError{Field: "reason", Reason: "suspension requires a reason"}
	}
	if err := m.transition(StatusSuspended, actor, reason); err != nil {
		return err
	}
	m.emit(EventSuspended, map[string]string{"reason": reason})
	return nil
}

// Reinstate moves Suspended back to Active.
func (m *Membership) Reinstate(actor string) error {
	if err := m.transition(StatusActive, actor, "reinstated"); err != nil {
		return err
	}
	m.emit(EventReinstated, nil)
	return nil
}

// Terminate moves Active or Suspended to the terminal state. No edge
// leaves Terminated; "undo" does not exist, audit history is permanent.
func (m *Membership) Terminate(terminatedBy string) error {
	if err := m.transition(StatusTerminated, terminatedBy, ""); err != nil {
		return err
	}
	m.emit(EventTerminated, map[string]string{"terminated_by": terminatedBy})
	return nil
}

// EnrichGeography replaces the geography assignment with one of equal or
// higher tier. Downgrades are rejected; lowering a tier is an explicit,
// separately audited administrative correction, not an enrichment.
func (m *Membership) EnrichGeography(actor string, next GeographyAssignment) error {
	if IsTerminal(m.Status) {
		return &ValidationError{Field: "status", Reason: "membership is terminated"}
	}
	cur := m.Geography
	if next.Tier.Rank() < cur.Tier.Rank() {
		return &GeographyDowngradeError{From: cur.Tier, To: next.Tier}
	}
	if next.Tier == GeoTierVerified && next.NodeID == nil {
		return &ValidationError{Field: "geography", Reason: "verified assignment needs a node reference"}
	}
	m.Geography = next
	m.pendingHistory = append(m.pendingHistory, StatusChange{
		MembershipID: m.ID,
		FromStatus:   m.Status,
		ToStatus:     m.Status,
		Actor:        actor,
		Note:         fmt.Sprintf("geography %s -> %s", cur.Tier, next.Tier),
	})
	if next.Tier != cur.Tier {
		m.emit(EventGeographyEnriched, map[string]string{
			"from_tier": string(cur.Tier),
			"to_tier":   string(next.Tier),
		})
	}
	return nil
}
