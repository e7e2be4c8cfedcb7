package repository

import (
	"context"
	"fmt"
)

type postgresSequenceRepository struct {
	db DBTX
}

func NewSequenceRepository(db DBTX) SequenceRepository {
	return &postgresSequenceRepository{db: db}
}

// Next increments the single counter row and returns the new value. The row
// lock taken by UPDATE serializes concurrent callers, so values are strictly
// increasing and never repeated. An allocated value whose enclosing
// transaction rolls back leaves a gap, which consumers tolerate.
func (r *postgresSequenceRepository) Next(ctx context.Context, tx DBTX) (int64, error) {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	var seq int64
	err := execDB.QueryRowContext(ctx, `
        UPDATE poll_sequence SET seq = seq + 1 WHERE id = 1 RETURNING seq
    `).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate server seq: %w", err)
	}
	return seq, nil
}
