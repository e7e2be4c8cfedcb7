package httpdto

import (
	"time"

	"pollstream/internal/domain/poll"
)

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type VoteRequest struct {
	OptionIndex *int `json:"optionIndex"`
}

type OptionResponse struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollResponse is the wire form of a poll. Ballots never appear here; this is
// also the payload broadcast on the real-time channel.
type PollResponse struct {
	ID         string           `json:"id"`
	Question   string           `json:"question"`
	Options    []OptionResponse `json:"options"`
	CreatorID  string           `json:"creatorId"`
	LikesCount int              `json:"likesCount"`
	CreatedAt  time.Time        `json:"createdAt"`
	ExpiresAt  time.Time        `json:"expiresAt"`
	ServerSeq  int64            `json:"serverSeq"`
}

// AnnotatedPollResponse adds the viewer-specific flags for the explore feed.
type AnnotatedPollResponse struct {
	PollResponse
	IsMine   bool `json:"isMine"`
	HasVoted bool `json:"hasVoted"`
}

// SavedPollResponse is an entry of the caller's saved collection.
type SavedPollResponse struct {
	PollResponse
	Expired       bool `json:"expired"`
	MyOptionIndex *int `json:"myOptionIndex"`
}

type SaveResponse struct {
	Saved      bool `json:"saved"`
	LikesCount int  `json:"likesCount"`
}

func NewPollResponse(p poll.Poll) PollResponse {
	options := make([]OptionResponse, len(p.Options))
	for i, opt := range p.Options {
		options[i] = OptionResponse{Text: opt.Text, Votes: opt.Votes}
	}
	return PollResponse{
		ID:         p.ID.String(),
		Question:   p.Question,
		Options:    options,
		CreatorID:  p.CreatorID.String(),
		LikesCount: p.LikesCount,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
		ServerSeq:  p.ServerSeq,
	}
}

func NewPollResponses(polls []poll.Poll) []PollResponse {
	out := make([]PollResponse, len(polls))
	for i, p := range polls {
		out[i] = NewPollResponse(p)
	}
	return out
}

func NewAnnotatedPollResponse(a poll.Annotated) AnnotatedPollResponse {
	return AnnotatedPollResponse{
		PollResponse: NewPollResponse(a.Poll),
		IsMine:       a.IsMine,
		HasVoted:     a.HasVoted,
	}
}

func NewSavedPollResponse(s poll.Saved) SavedPollResponse {
	return SavedPollResponse{
		PollResponse:  NewPollResponse(s.Poll),
		Expired:       s.Expired,
		MyOptionIndex: s.MyOptionIndex,
	}
}
