// Package testutil provides in-memory repository implementations and helpers
// shared by service and handler tests. The fakes honor the same conditional
// update semantics as the Postgres repositories so concurrency tests mean
// something.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	"pollstream/internal/repository"
	pollstream_errors "pollstream/pkg/errors"
)

// MakeToken signs an access token the way the auth collaborator would.
func MakeToken(secret string, userID uuid.UUID) string {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// MemorySequence is an in-memory stand-in for the durable counter row.
type MemorySequence struct {
	mu  sync.Mutex
	seq int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{}
}

func (s *MemorySequence) Next(ctx context.Context, tx repository.DBTX) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

// MemoryStore backs both the poll and saved-poll repositories so likes
// accounting can see the polls, mirroring the single database underneath the
// real repositories.
type MemoryStore struct {
	mu      sync.Mutex
	seqs    *MemorySequence
	polls   map[uuid.UUID]*poll.Poll
	ballots map[uuid.UUID]map[uuid.UUID]int // pollID -> voterID -> optionIndex
	saved   map[uuid.UUID]map[uuid.UUID]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seqs:    NewMemorySequence(),
		polls:   make(map[uuid.UUID]*poll.Poll),
		ballots: make(map[uuid.UUID]map[uuid.UUID]int),
		saved:   make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (s *MemoryStore) Polls() repository.PollRepository      { return (*memoryPollRepository)(s) }
func (s *MemoryStore) Saved() repository.SavedPollRepository { return (*memorySavedRepository)(s) }

func (s *MemoryStore) clonePoll(p *poll.Poll) poll.Poll {
	out := *p
	out.Options = make([]poll.Option, len(p.Options))
	copy(out.Options, p.Options)
	return out
}

type memoryPollRepository MemoryStore

func (r *memoryPollRepository) Create(ctx context.Context, p *poll.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq, err := r.seqs.Next(ctx, nil)
	if err != nil {
		return err
	}
	p.ServerSeq = seq
	stored := (*MemoryStore)(r).clonePoll(p)
	r.polls[p.ID] = &stored
	r.ballots[p.ID] = make(map[uuid.UUID]int)
	return nil
}

func (r *memoryPollRepository) GetByID(ctx context.Context, id uuid.UUID) (poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return poll.Poll{}, pollstream_errors.ErrNotFound
	}
	return (*MemoryStore)(r).clonePoll(p), nil
}

func (r *memoryPollRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []poll.Poll
	for _, p := range r.polls {
		if p.CreatorID == creatorID {
			out = append(out, (*MemoryStore)(r).clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryPollRepository) ListRecent(ctx context.Context, now time.Time, limit int) ([]poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []poll.Poll
	for _, p := range r.polls {
		if p.ExpiresAt.After(now) {
			out = append(out, (*MemoryStore)(r).clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryPollRepository) ListAfterSeq(ctx context.Context, after int64) ([]poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []poll.Poll
	for _, p := range r.polls {
		if p.ServerSeq > after {
			out = append(out, (*MemoryStore)(r).clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerSeq < out[j].ServerSeq })
	return out, nil
}

func (r *memoryPollRepository) RecordBallot(ctx context.Context, pollID uuid.UUID, b poll.Ballot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[pollID]
	if !ok {
		return pollstream_errors.ErrNotFound
	}
	if _, voted := r.ballots[pollID][b.VoterID]; voted {
		return pollstream_errors.ErrAlreadyVoted
	}
	if b.OptionIndex < 0 || b.OptionIndex >= len(p.Options) {
		return pollstream_errors.ErrInvalidOption
	}
	r.ballots[pollID][b.VoterID] = b.OptionIndex
	p.Options[b.OptionIndex].Votes++
	return nil
}

func (r *memoryPollRepository) HasBallot(ctx context.Context, pollID, voterID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, voted := r.ballots[pollID][voterID]
	return voted, nil
}

func (r *memoryPollRepository) ListBallotsByVoter(ctx context.Context, voterID uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]int)
	for pollID, voters := range r.ballots {
		if idx, ok := voters[voterID]; ok {
			out[pollID] = idx
		}
	}
	return out, nil
}

type memorySavedRepository MemoryStore

func (r *memorySavedRepository) Save(ctx context.Context, userID, pollID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[pollID]
	if !ok {
		return 0, pollstream_errors.ErrNotFound
	}
	if r.saved[userID] == nil {
		r.saved[userID] = make(map[uuid.UUID]time.Time)
	}
	if _, already := r.saved[userID][pollID]; !already {
		r.saved[userID][pollID] = time.Now()
		p.LikesCount++
	}
	return p.LikesCount, nil
}

func (r *memorySavedRepository) Unsave(ctx context.Context, userID, pollID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[pollID]
	if !ok {
		return 0, pollstream_errors.ErrNotFound
	}
	if _, present := r.saved[userID][pollID]; present {
		delete(r.saved[userID], pollID)
		if p.LikesCount > 0 {
			p.LikesCount--
		}
	}
	return p.LikesCount, nil
}

func (r *memorySavedRepository) ListSaved(ctx context.Context, userID uuid.UUID) ([]poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []poll.Poll
	for pollID := range r.saved[userID] {
		if p, ok := r.polls[pollID]; ok {
			out = append(out, (*MemoryStore)(r).clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
