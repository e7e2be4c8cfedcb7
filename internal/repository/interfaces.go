package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
)

// SequenceRepository issues the globally monotonic creation sequence. Next is
// an atomic increment-and-fetch against a single durable counter row; no two
// callers ever receive the same value, even across server processes.
type SequenceRepository interface {
	Next(ctx context.Context, tx DBTX) (int64, error)
}

type PollRepository interface {
	// Create persists the poll and its options and allocates ServerSeq,
	// all in one transaction. A counter failure aborts the whole create.
	Create(ctx context.Context, p *poll.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (poll.Poll, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]poll.Poll, error)

	// ListRecent returns up to limit non-expired polls, newest first.
	ListRecent(ctx context.Context, now time.Time, limit int) ([]poll.Poll, error)
	// ListAfterSeq returns every poll with server_seq > after, expired
	// ones included, ordered by server_seq ascending.
	ListAfterSeq(ctx context.Context, after int64) ([]poll.Poll, error)

	// RecordBallot appends the ballot and increments the option tally as
	// one indivisible update. A ballot already present for the voter
	// yields ErrAlreadyVoted.
	RecordBallot(ctx context.Context, pollID uuid.UUID, b poll.Ballot) error
	HasBallot(ctx context.Context, pollID, voterID uuid.UUID) (bool, error)
	// ListBallotsByVoter maps poll id to the voter's chosen option index.
	ListBallotsByVoter(ctx context.Context, voterID uuid.UUID) (map[uuid.UUID]int, error)
}

type SavedPollRepository interface {
	// Save adds the poll to the user's saved set and bumps the likes
	// counter only when the set actually grew. Returns the current count.
	Save(ctx context.Context, userID, pollID uuid.UUID) (int, error)
	// Unsave removes the poll from the saved set; the counter is only
	// decremented when the poll was present, and never below zero.
	Unsave(ctx context.Context, userID, pollID uuid.UUID) (int, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]poll.Poll, error)
}
