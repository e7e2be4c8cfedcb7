package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	"pollstream/internal/repository"
	pollstream_errors "pollstream/pkg/errors"
)

// SaveService keeps the per-user saved collection and the aggregate likes
// counter in step. likesCount is defined as the number of distinct users whose
// saved set contains the poll; the repository updates both facts in one
// transaction.
type SaveService struct {
	polls repository.PollRepository
	saved repository.SavedPollRepository
	now   func() time.Time
}

func NewSaveService(polls repository.PollRepository, saved repository.SavedPollRepository) *SaveService {
	return &SaveService{polls: polls, saved: saved, now: time.Now}
}

func (s *SaveService) Save(ctx context.Context, userID, pollID uuid.UUID) (int, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return 0, err
	}
	if p.CreatorID == userID {
		return 0, pollstream_errors.ErrForbidden
	}
	return s.saved.Save(ctx, userID, pollID)
}

func (s *SaveService) Unsave(ctx context.Context, userID, pollID uuid.UUID) (int, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return 0, err
	}
	if p.CreatorID == userID {
		return 0, pollstream_errors.ErrForbidden
	}
	return s.saved.Unsave(ctx, userID, pollID)
}

// ListSaved returns the caller's collection newest first, each poll flagged
// with its expiry state and the caller's own ballot choice if any. Expired
// polls stay listed; only voting is frozen.
func (s *SaveService) ListSaved(ctx context.Context, userID uuid.UUID) ([]poll.Saved, error) {
	polls, err := s.saved.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}

	ballots, err := s.polls.ListBallotsByVoter(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]poll.Saved, len(polls))
	for i, p := range polls {
		entry := poll.Saved{Poll: p, Expired: p.Expired(now)}
		if idx, ok := ballots[p.ID]; ok {
			optionIndex := idx
			entry.MyOptionIndex = &optionIndex
		}
		out[i] = entry
	}
	return out, nil
}
