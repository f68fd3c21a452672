package persist

import (
	"context"
	"fmt"
)

// TraversalEntry is one grid-crossing audit record.
type TraversalEntry struct {
	EntityID int64
	OldGrid  int64
	NewGrid  int64
}

type TraversalLogRepo struct {
	db *DB
}

func NewTraversalLogRepo(db *DB) *TraversalLogRepo {
	return &TraversalLogRepo{db: db}
}

// Append atomically writes a batch of traversal entries in a single
// transaction. The audit trail is append-only; readers are offline tooling.
func (r *TraversalLogRepo) Append(ctx context.Context, entries []TraversalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("traversal log begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO traversal_log (entity_id, old_grid, new_grid)
			 VALUES ($1, $2, $3)`,
			e.EntityID, e.OldGrid, e.NewGrid,
		); err != nil {
			return fmt.Errorf("traversal log insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}
