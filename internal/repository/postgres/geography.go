package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/repository"
)

type geographyRepository struct {
	db *sql.DB
}

func NewGeographyRepository(db *sql.DB) repository.GeographyRepository {
	return &geographyRepository{db: db}
}

// CreateNode inserts the node and materializes its path in one transaction.
// The path needs the generated id, so the row is inserted first and the
// path written before commit; no reader outside the transaction ever sees
// a node without a path.
func (r *geographyRepository) CreateNode(ctx context.Context, node *domain.GeographyNode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO geo_nodes (org_id, name, level, parent_id, path, retired, created_on)
		VALUES ($1, $2, $3, $4, '{}', false, $5) RETURNING id`,
		node.OrgID, node.Name, node.Level, node.ParentID, now,
	).Scan(&node.ID)
	if err != nil {
		return err
	}

	path := []int32{node.ID}
	if node.ParentID != nil {
		var parentPath pq.Int32Array
		err = tx.QueryRowContext(ctx, `SELECT path FROM geo_nodes WHERE id = $1`, *node.ParentID).Scan(&parentPath)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		path = append(append([]int32{}, parentPath...), node.ID)
	}

	_, err = tx.ExecContext(ctx, `UPDATE geo_nodes SET path = $1 WHERE id = $2`, pq.Array(path), node.ID)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	node.Path = path
	node.CreatedOn = now.Format(time.RFC3339)
	return nil
}

const geoNodeColumns = `id, org_id, name, level, parent_id, path, retired, created_on`

func (r *geographyRepository) GetNode(ctx context.Context, id int32) (*domain.GeographyNode, error) {
	query := `SELECT ` + geoNodeColumns + ` FROM geo_nodes WHERE id = $1`
	n, err := scanGeoNode(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *geographyRepository) ListChildren(ctx context.Context, parentID int32) ([]domain.GeographyNode, error) {
	query := `SELECT ` + geoNodeColumns + ` FROM geo_nodes WHERE parent_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGeoNodes(rows)
}

func (r *geographyRepository) ListActive(ctx context.Context, orgID int32, withinAncestorID *int32) ([]domain.GeographyNode, error) {
	query := `SELECT ` + geoNodeColumns + ` FROM geo_nodes WHERE org_id = $1 AND NOT retired`
	args := []interface{}{orgID}
	if withinAncestorID != nil {
		// ancestry via the materialized path, no recursive walk
		query += ` AND path @> ARRAY[$2::integer]`
		args = append(args, *withinAncestorID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGeoNodes(rows)
}

func (r *geographyRepository) RetireNode(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `UPDATE geo_nodes SET retired = true WHERE id = $1`, id)
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

func scanGeoNode(row rowScanner) (*domain.GeographyNode, error) {
	n := &domain.GeographyNode{}
	var (
		path      pq.Int32Array
		createdOn time.Time
	)
	err := row.Scan(&n.ID, &n.OrgID, &n.Name, &n.Level, &n.ParentID, &path, &n.Retired, &createdOn)
	if err != nil {
		return nil, err
	}
	n.Path = path
	n.CreatedOn = createdOn.Format(time.RFC3339)
	return n, nil
}

func collectGeoNodes(rows *sql.Rows) ([]domain.GeographyNode, error) {
	var nodes []domain.GeographyNode
	for rows.Next() {
		n, err := scanGeoNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}
