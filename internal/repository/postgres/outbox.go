package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"memberhub-backend/internal/repository"
)

type outboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

// Outbox rows are appended by membershipRepository.Save inside the
// aggregate's transaction; this repository only reads them and tracks
// per-subscriber cursors.

func (r *outboxRepository) ListAfter(ctx context.Context, afterID int64, limit int32) ([]repository.OutboxRow, error) {
	query := `SELECT id, event_id, membership_id, org_id, seq, event_type, payload, occurred_at
	          FROM membership_outbox WHERE id > $1 ORDER BY id LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.OutboxRow
	for rows.Next() {
		var (
			row     repository.OutboxRow
			payload []byte
		)
		err := rows.Scan(&row.RowID, &row.Event.ID, &row.Event.MembershipID, &row.Event.OrgID,
			&row.Event.Seq, &row.Event.Type, &payload, &row.Event.OccurredAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &row.Event.Payload); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *outboxRepository) GetCursor(ctx context.Context, subscriber string) (int64, error) {
	var rowID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_row_id FROM outbox_cursors WHERE subscriber = $1`, subscriber).Scan(&rowID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return rowID, err
}

func (r *outboxRepository) SetCursor(ctx context.Context, subscriber string, rowID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_cursors (subscriber, last_row_id, updated_on) VALUES ($1, $2, NOW())
		ON CONFLICT (subscriber) DO UPDATE SET last_row_id = $2, updated_on = NOW()`,
		subscriber, rowID)
	return err
}
