package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	"pollstream/internal/repository"
	"pollstream/internal/transport/httpdto"
	pollstream_errors "pollstream/pkg/errors"
	"pollstream/pkg/events"
	"pollstream/pkg/logger"
)

// PollService owns the poll lifecycle: creation with sequence allocation,
// single-vote enforcement and the real-time notifications both emit.
type PollService struct {
	polls     repository.PollRepository
	publisher events.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewPollService(polls repository.PollRepository, publisher events.Publisher, log *logger.Logger) *PollService {
	return &PollService{
		polls:     polls,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *PollService) Create(ctx context.Context, creatorID uuid.UUID, question string, options []string) (poll.Poll, error) {
	p, err := poll.New(question, options, creatorID, s.now())
	if err != nil {
		return poll.Poll{}, err
	}

	if err := s.polls.Create(ctx, p); err != nil {
		return poll.Poll{}, err
	}

	s.publish(events.TypePollCreated, *p)
	return *p, nil
}

// CastVote enforces the vote preconditions in a fixed order, each a distinct
// failure: existence, ownership, expiry, prior ballot, option index. The
// pre-checks give deterministic errors; the ballot primary key inside
// RecordBallot closes the remaining race between concurrent duplicates.
func (s *PollService) CastVote(ctx context.Context, pollID, voterID uuid.UUID, optionIndex int) (poll.Poll, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return poll.Poll{}, err
	}
	if p.CreatorID == voterID {
		return poll.Poll{}, pollstream_errors.ErrForbidden
	}
	if p.Expired(s.now()) {
		return poll.Poll{}, pollstream_errors.ErrPollExpired
	}
	voted, err := s.polls.HasBallot(ctx, pollID, voterID)
	if err != nil {
		return poll.Poll{}, err
	}
	if voted {
		return poll.Poll{}, pollstream_errors.ErrAlreadyVoted
	}
	if !p.ValidOptionIndex(optionIndex) {
		return poll.Poll{}, pollstream_errors.ErrInvalidOption
	}

	ballot := poll.Ballot{VoterID: voterID, OptionIndex: optionIndex, VotedAt: s.now()}
	if err := s.polls.RecordBallot(ctx, pollID, ballot); err != nil {
		return poll.Poll{}, err
	}

	updated, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return poll.Poll{}, err
	}

	s.publish(events.TypePollUpdated, updated)
	return updated, nil
}

func (s *PollService) ListMine(ctx context.Context, creatorID uuid.UUID) ([]poll.Poll, error) {
	return s.polls.ListByCreator(ctx, creatorID)
}

// publish is fire-and-forget: a broadcast failure never rolls back or fails
// the mutation that triggered it. Disconnected viewers reconcile through the
// explore backfill cursor instead.
func (s *PollService) publish(eventType string, p poll.Poll) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	event := events.Event{
		Type:      eventType,
		Payload:   httpdto.NewPollResponse(p),
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.publisher.Publish(ctx, events.ChannelPolls, event); err != nil && s.log != nil {
		s.log.Errorf("failed to publish %s for poll %s: %v", eventType, p.ID, err)
	}
}
