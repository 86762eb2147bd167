package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/repository"
)

type membershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

const membershipColumns = `id, org_id, external_identity_ref, membership_number, status,
	geo_tier, geo_text, geo_node_id, geo_path, geo_path_names,
	sponsor_id, notify_email, payment_ref, version, event_seq, created_on, updated_on`

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	query := `INSERT INTO memberships (org_id, external_identity_ref, membership_number, status,
	            geo_tier, geo_text, geo_node_id, geo_path, geo_path_names,
	            sponsor_id, notify_email, payment_ref, version, event_seq, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15) RETURNING id`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		m.OrgID, m.ExternalIdentityRef, m.MembershipNumber, m.Status,
		m.Geography.Tier, m.Geography.LocationText, m.Geography.NodeID,
		pq.Array(m.Geography.PathIDs), pq.Array(m.Geography.PathNames),
		m.SponsorID, m.NotifyEmail, m.PaymentRef, m.Version, m.EventSeq, now,
	).Scan(&m.ID)
	if err != nil {
		return err
	}
	m.CreatedOn = now.Format(time.RFC3339)
	m.UpdatedOn = m.CreatedOn
	return nil
}

func (r *membershipRepository) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return m, err
}

// Save applies the optimistic write: the UPDATE is guarded by the version
// the aggregate was read at, and the history and outbox rows ride in the
// same transaction. Zero rows affected means either a concurrent writer
// won or the row is gone; both cases roll everything back.
func (r *membershipRepository) Save(ctx context.Context, m *domain.Membership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE memberships
		SET membership_number = $1, status = $2,
		    geo_tier = $3, geo_text = $4, geo_node_id = $5, geo_path = $6, geo_path_names = $7,
		    payment_ref = $8, version = version + 1, event_seq = $9, updated_on = $10
		WHERE id = $11 AND version = $12`,
		m.MembershipNumber, m.Status,
		m.Geography.Tier, m.Geography.LocationText, m.Geography.NodeID,
		pq.Array(m.Geography.PathIDs), pq.Array(m.Geography.PathNames),
		m.PaymentRef, m.EventSeq, now, m.ID, m.Version,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM memberships WHERE id = $1)`, m.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConcurrentModification
	}

	for _, h := range m.PendingHistory() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO membership_status_history (membership_id, from_status, to_status, actor, note, created_on)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, h.FromStatus, h.ToStatus, h.Actor, h.Note, now,
		)
		if err != nil {
			return err
		}
	}

	for _, ev := range m.PendingEvents() {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO membership_outbox (event_id, membership_id, org_id, seq, event_type, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			ev.ID, ev.MembershipID, ev.OrgID, ev.Seq, ev.Type, payload, ev.OccurredAt,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	m.Version++
	m.UpdatedOn = now.Format(time.RFC3339)
	m.ClearPending()
	return nil
}

func (r *membershipRepository) ListStatusHistory(ctx context.Context, membershipID int64) ([]domain.StatusChange, error) {
	query := `SELECT id, membership_id, from_status, to_status, actor, note, created_on
	          FROM membership_status_history WHERE membership_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, membershipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var h domain.StatusChange
		var createdOn time.Time
		if err := rows.Scan(&h.ID, &h.MembershipID, &h.FromStatus, &h.ToStatus, &h.Actor, &h.Note, &createdOn); err != nil {
			return nil, err
		}
		h.CreatedOn = createdOn.Format(time.RFC3339)
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *membershipRepository) ListTextTier(ctx context.Context, afterID int64, limit int32) ([]domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships
	          WHERE geo_tier = $1 AND id > $2 AND status <> $3
	          ORDER BY id LIMIT $4`
	rows, err := r.db.QueryContext(ctx, query, domain.GeoTierText, afterID, domain.StatusTerminated, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, *m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepository) NextMembershipNumber(ctx context.Context, orgID int32) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO org_member_seq (org_id, next_number) VALUES ($1, 2)
		ON CONFLICT (org_id) DO UPDATE SET next_number = org_member_seq.next_number + 1
		RETURNING next_number - 1`, orgID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(row rowScanner) (*domain.Membership, error) {
	m := &domain.Membership{}
	var (
		pathIDs   pq.Int32Array
		pathNames pq.StringArray
		createdOn time.Time
		updatedOn time.Time
	)
	err := row.Scan(
		&m.ID, &m.OrgID, &m.ExternalIdentityRef, &m.MembershipNumber, &m.Status,
		&m.Geography.Tier, &m.Geography.LocationText, &m.Geography.NodeID, &pathIDs, &pathNames,
		&m.SponsorID, &m.NotifyEmail, &m.PaymentRef, &m.Version, &m.EventSeq, &createdOn, &updatedOn,
	)
	if err != nil {
		return nil, err
	}
	m.Geography.PathIDs = pathIDs
	m.Geography.PathNames = pathNames
	m.CreatedOn = createdOn.Format(time.RFC3339)
	m.UpdatedOn = updatedOn.Format(time.RFC3339)
	return m, nil
}
