package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	"pollstream/internal/repository"
)

// FeedService resolves the explore feed: a recency window for fresh viewers,
// or an incremental backfill keyed on the server sequence for reconnecting
// ones.
type FeedService struct {
	polls repository.PollRepository
	now   func() time.Time
}

func NewFeedService(polls repository.PollRepository) *FeedService {
	return &FeedService{polls: polls, now: time.Now}
}

// Explore returns the client-visible poll window annotated for the viewer.
// With no cursor: the most recent non-expired polls, newest first. With a
// cursor: every poll with a higher server sequence, ascending, expired ones
// included — the client filters expiry itself, and dropping them here would
// lose polls that expired while the viewer was disconnected.
// A nil viewerID is not an error; annotations are simply false.
func (s *FeedService) Explore(ctx context.Context, viewerID *uuid.UUID, after *int64) ([]poll.Annotated, error) {
	var (
		polls []poll.Poll
		err   error
	)
	if after != nil {
		polls, err = s.polls.ListAfterSeq(ctx, *after)
	} else {
		polls, err = s.polls.ListRecent(ctx, s.now(), poll.ExploreWindowSize)
	}
	if err != nil {
		return nil, err
	}

	var ballots map[uuid.UUID]int
	if viewerID != nil {
		ballots, err = s.polls.ListBallotsByVoter(ctx, *viewerID)
		if err != nil {
			return nil, err
		}
	}

	out := make([]poll.Annotated, len(polls))
	for i, p := range polls {
		a := poll.Annotated{Poll: p}
		if viewerID != nil {
			a.IsMine = p.CreatorID == *viewerID
			_, a.HasVoted = ballots[p.ID]
		}
		out[i] = a
	}
	return out, nil
}
