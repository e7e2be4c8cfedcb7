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

type postgresPollRepository struct {
	db   DBTX
	seqs SequenceRepository
}

func NewPollRepository(db DBTX, seqs SequenceRepository) PollRepository {
	return &postgresPollRepository{db: db, seqs: seqs}
}

func (r *postgresPollRepository) Create(ctx context.Context, p *poll.Poll) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		seq, err := r.seqs.Next(ctx, tx)
		if err != nil {
			return err
		}
		p.ServerSeq = seq

		_, err = tx.ExecContext(ctx, `
            INSERT INTO polls (id, question, creator_id, likes_count, created_at, expires_at, server_seq)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
        `, p.ID, p.Question, p.CreatorID, p.LikesCount, p.CreatedAt, p.ExpiresAt, p.ServerSeq)
		if err != nil {
			return err
		}

		for i, opt := range p.Options {
			_, err = tx.ExecContext(ctx, `
                INSERT INTO poll_options (poll_id, position, text, votes)
                VALUES ($1,$2,$3,$4)
            `, p.ID, i, opt.Text, opt.Votes)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresPollRepository) GetByID(ctx context.Context, id uuid.UUID) (poll.Poll, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, question, creator_id, likes_count, created_at, expires_at, server_seq
        FROM polls WHERE id = $1
    `, id)

	p, err := scanPoll(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return poll.Poll{}, pollstream_errors.ErrNotFound
		}
		return poll.Poll{}, err
	}
	if err := loadPollOptions(ctx, r.db, &p); err != nil {
		return poll.Poll{}, err
	}
	return p, nil
}

func (r *postgresPollRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, question, creator_id, likes_count, created_at, expires_at, server_seq
        FROM polls WHERE creator_id = $1
        ORDER BY created_at DESC
    `, creatorID)
	if err != nil {
		return nil, err
	}
	return r.collectPolls(ctx, rows)
}

func (r *postgresPollRepository) ListRecent(ctx context.Context, now time.Time, limit int) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, question, creator_id, likes_count, created_at, expires_at, server_seq
        FROM polls WHERE expires_at > $1
        ORDER BY created_at DESC
        LIMIT $2
    `, now, limit)
	if err != nil {
		return nil, err
	}
	return r.collectPolls(ctx, rows)
}

func (r *postgresPollRepository) ListAfterSeq(ctx context.Context, after int64) ([]poll.Poll, error) {
	// Expired polls are kept: reconnect backfill must not drop polls that
	// expired while the viewer was away.
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, question, creator_id, likes_count, created_at, expires_at, server_seq
        FROM polls WHERE server_seq > $1
        ORDER BY server_seq ASC
    `, after)
	if err != nil {
		return nil, err
	}
	return r.collectPolls(ctx, rows)
}

func (r *postgresPollRepository) RecordBallot(ctx context.Context, pollID uuid.UUID, b poll.Ballot) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		// The (poll_id, voter_id) primary key closes the race between two
		// concurrent votes by the same user: the second insert fails and
		// the tally increment below never runs for it.
		_, err := tx.ExecContext(ctx, `
            INSERT INTO ballots (poll_id, voter_id, option_index, voted_at)
            VALUES ($1,$2,$3,$4)
        `, pollID, b.VoterID, b.OptionIndex, b.VotedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return pollstream_errors.ErrAlreadyVoted
			}
			return err
		}

		res, err := tx.ExecContext(ctx, `
            UPDATE poll_options SET votes = votes + 1
            WHERE poll_id = $1 AND position = $2
        `, pollID, b.OptionIndex)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return pollstream_errors.ErrInvalidOption
		}
		return nil
	})
}

func (r *postgresPollRepository) HasBallot(ctx context.Context, pollID, voterID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (SELECT 1 FROM ballots WHERE poll_id = $1 AND voter_id = $2)
    `, pollID, voterID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresPollRepository) ListBallotsByVoter(ctx context.Context, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT poll_id, option_index FROM ballots WHERE voter_id = $1
    `, voterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := make(map[uuid.UUID]int)
	for rows.Next() {
		var pollID uuid.UUID
		var optionIndex int
		if err := rows.Scan(&pollID, &optionIndex); err != nil {
			return nil, err
		}
		ballots[pollID] = optionIndex
	}
	return ballots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPoll(row rowScanner) (poll.Poll, error) {
	var p poll.Poll
	err := row.Scan(&p.ID, &p.Question, &p.CreatorID, &p.LikesCount, &p.CreatedAt, &p.ExpiresAt, &p.ServerSeq)
	return p, err
}

func (r *postgresPollRepository) collectPolls(ctx context.Context, rows *sql.Rows) ([]poll.Poll, error) {
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
