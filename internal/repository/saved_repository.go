package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	pollstream_errors "pollstream/pkg/errors"
)

type postgresSavedPollRepository struct {
	db DBTX
}

func NewSavedPollRepository(db DBTX) SavedPollRepository {
	return &postgresSavedPollRepository{db: db}
}

// Save keeps the saved-set row and the likes counter consistent by updating
// both in one transaction. Counting on the conflict-free insert makes the
// operation idempotent: repeated saves never bump the counter twice.
func (r *postgresSavedPollRepository) Save(ctx context.Context, userID, pollID uuid.UUID) (int, error) {
	var likes int
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
            INSERT INTO saved_polls (user_id, poll_id, saved_at)
            VALUES ($1,$2,$3)
            ON CONFLICT (user_id, poll_id) DO NOTHING
        `, userID, pollID, time.Now())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if n == 0 {
			return tx.QueryRowContext(ctx, `
                SELECT likes_count FROM polls WHERE id = $1
            `, pollID).Scan(&likes)
		}
		return tx.QueryRowContext(ctx, `
            UPDATE polls SET likes_count = likes_count + 1
            WHERE id = $1
            RETURNING likes_count
        `, pollID).Scan(&likes)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, pollstream_errors.ErrNotFound
		}
		return 0, err
	}
	return likes, nil
}

func (r *postgresSavedPollRepository) Unsave(ctx context.Context, userID, pollID uuid.UUID) (int, error) {
	var likes int
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
            DELETE FROM saved_polls WHERE user_id = $1 AND poll_id = $2
        `, userID, pollID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		// Only a removal that actually happened may decrement, and the
		// counter is floored at zero.
		if n == 0 {
			return tx.QueryRowContext(ctx, `
                SELECT likes_count FROM polls WHERE id = $1
            `, pollID).Scan(&likes)
		}
		return tx.QueryRowContext(ctx, `
            UPDATE polls SET likes_count = GREATEST(likes_count - 1, 0)
            WHERE id = $1
            RETURNING likes_count
        `, pollID).Scan(&likes)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, pollstream_errors.ErrNotFound
		}
		return 0, err
	}
	return likes, nil
}

func (r *postgresSavedPollRepository) ListSaved(ctx context.Context, userID uuid.UUID) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT p.id, p.question, p.creator_id, p.likes_count, p.created_at, p.expires_at, p.server_seq
        FROM polls p
        JOIN saved_polls s ON s.poll_id = p.id
        WHERE s.user_id = $1
        ORDER BY p.created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []poll.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		if err := loadPollOptions(ctx, r.db, &polls[i]); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func loadPollOptions(ctx context.Context, db DBTX, p *poll.Poll) error {
	rows, err := db.QueryContext(ctx, `
        SELECT text, votes FROM poll_options
        WHERE poll_id = $1
        ORDER BY position ASC
    `, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	p.Options = nil
	for rows.Next() {
		var opt poll.Option
		if err := rows.Scan(&opt.Text, &opt.Votes); err != nil {
			return err
		}
		p.Options = append(p.Options, opt)
	}
	return rows.Err()
}
