package postgres

import (
	"context"
	"database/sql"
	"time"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/repository"
)

type reviewQueueRepository struct {
	db *sql.DB
}

func NewReviewQueueRepository(db *sql.DB) repository.ReviewQueueRepository {
	return &reviewQueueRepository{db: db}
}

func (r *reviewQueueRepository) Enqueue(ctx context.Context, item *domain.ReviewItem) error {
	// one open item per membership; re-running the batch must not pile up duplicates
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO geo_review_queue (membership_id, org_id, location_text, best_node_id, best_score, created_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (membership_id) DO NOTHING`,
		item.MembershipID, item.OrgID, item.LocationText, item.BestNodeID, item.BestScore, time.Now())
	return err
}

func (r *reviewQueueRepository) ListOpen(ctx context.Context, orgID int32, limit int32) ([]domain.ReviewItem, error) {
	query := `SELECT id, membership_id, org_id, location_text, best_node_id, best_score, created_on
	          FROM geo_review_queue WHERE org_id = $1 AND resolved_on IS NULL ORDER BY id LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		var (
			item      domain.ReviewItem
			createdOn time.Time
		)
		if err := rows.Scan(&item.ID, &item.MembershipID, &item.OrgID, &item.LocationText, &item.BestNodeID, &item.BestScore, &createdOn); err != nil {
			return nil, err
		}
		item.CreatedOn = createdOn.Format(time.RFC3339)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *reviewQueueRepository) Resolve(ctx context.Context, membershipID int64, resolvedBy string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE geo_review_queue SET resolved_by = $1, resolved_on = NOW()
		WHERE membership_id = $2 AND resolved_on IS NULL`,
		resolvedBy, membershipID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
