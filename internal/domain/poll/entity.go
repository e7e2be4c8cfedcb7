package poll

import (
	"strings"
	"time"

	pollstream_errors "pollstream/pkg/errors"

	"github.com/google/uuid"
)

// Lifetime is the fixed voting window for every poll.
const Lifetime = 7 * 24 * time.Hour

// ExploreWindowSize caps the uncursored explore feed.
const ExploreWindowSize = 20

// Option is one answer of a poll. Text and position are fixed at creation.
type Option struct {
	Text  string
	Votes int
}

// Ballot is a single user's permanent vote record on one poll. Ballots are
// append-only and never leave the server.
type Ballot struct {
	VoterID     uuid.UUID
	OptionIndex int
	VotedAt     time.Time
}

// Poll represents polls
type Poll struct {
	ID         uuid.UUID
	Question   string
	Options    []Option
	CreatorID  uuid.UUID
	LikesCount int
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ServerSeq  int64
}

// New validates and builds a poll. Options are trimmed and empty entries
// dropped; at least two must remain. Duplicate option text is allowed.
func New(question string, optionTexts []string, creatorID uuid.UUID, now time.Time) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, pollstream_errors.ErrInvalidInput
	}

	texts := NormalizeOptions(optionTexts)
	if len(texts) < 2 {
		return nil, pollstream_errors.ErrInvalidInput
	}

	options := make([]Option, len(texts))
	for i, t := range texts {
		options[i] = Option{Text: t}
	}

	return &Poll{
		ID:        uuid.New(),
		Question:  question,
		Options:   options,
		CreatorID: creatorID,
		CreatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	}, nil
}

// NormalizeOptions trims each entry and drops the empty ones, preserving
// order.
func NormalizeOptions(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Expired reports whether voting is frozen. Expired polls stay visible,
// saveable and chartable.
func (p *Poll) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// ValidOptionIndex reports whether i addresses an existing option.
func (p *Poll) ValidOptionIndex(i int) bool {
	return i >= 0 && i < len(p.Options)
}
