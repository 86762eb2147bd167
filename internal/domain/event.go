package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSubmitted         EventType = "SUBMITTED"
	EventVerified          EventType = "VERIFIED"
	EventActivated         EventType = "ACTIVATED"
	EventSuspended         EventType = "SUSPENDED"
	EventReinstated        EventType = "REINSTATED"
	EventTerminated        EventType = "TERMINATED"
	EventGeographyEnriched EventType = "GEOGRAPHY_ENRICHED"
)

// MembershipEvent is an immutable record of one lifecycle transition.
// Events are written to the outbox in the same transaction as the state
// change they document and delivered to subscribers at least once, in
// sequence order per membership. Subscribers dedupe on ID.
type MembershipEvent struct {
	ID           string            `json:"id"`
	MembershipID int64             `json:"membership_id"`
	OrgID        int32             `json:"org_id"`
	Seq          int64             `json:"seq"`
	Type         EventType         `json:"type"`
	Payload      map[string]string `json:"payload"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// newEvent is called by the aggregate while applying a transition; the
// sequence number comes from the aggregate's own counter so ordering is
// decided inside the transaction, not by the dispatcher.
func newEvent(m *Membership, typ EventType, payload map[string]string) MembershipEvent {
	if payload == nil {
		payload = map[string]string{}
	}
	return MembershipEvent{
		ID:           uuid.NewString(),
		MembershipID: m.ID,
		OrgID:        m.OrgID,
		Seq:          m.EventSeq,
		Type:         typ,
		Payload:      payload,
		OccurredAt:   time.Now().UTC(),
	}
}
