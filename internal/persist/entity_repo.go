package persist

import (
	"context"
	"fmt"
)

// EntitySnapshotRow is one entity's spatial state as saved per persist
// interval.
type EntitySnapshotRow struct {
	EntityID int64
	Name     string
	MapID    int16
	GridID   int64
	PosX     float64
	PosY     float64
	Anchored bool
}

type EntityRepo struct {
	db *DB
}

func NewEntityRepo(db *DB) *EntityRepo {
	return &EntityRepo{db: db}
}

// SaveBatch upserts a batch of entity snapshots in a single transaction.
func (r *EntityRepo) SaveBatch(ctx context.Context, rows []EntitySnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO entity_snapshots (entity_id, name, map_id, grid_id, pos_x, pos_y, anchored, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			 ON CONFLICT (entity_id) DO UPDATE SET
			   name = EXCLUDED.name,
			   map_id = EXCLUDED.map_id,
			   grid_id = EXCLUDED.grid_id,
			   pos_x = EXCLUDED.pos_x,
			   pos_y = EXCLUDED.pos_y,
			   anchored = EXCLUDED.anchored,
			   updated_at = now()`,
			row.EntityID, row.Name, row.MapID, row.GridID, row.PosX, row.PosY, row.Anchored,
		); err != nil {
			return fmt.Errorf("snapshot upsert entity %d: %w", row.EntityID, err)
		}
	}

	return tx.Commit(ctx)
}

// DeleteBatch removes snapshot rows for destroyed entities.
func (r *EntityRepo) DeleteBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM entity_snapshots WHERE entity_id = ANY($1)`, ids,
	); err != nil {
		return fmt.Errorf("snapshot delete: %w", err)
	}
	return nil
}
