package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	"pollstream/internal/testutil"
	pollstream_errors "pollstream/pkg/errors"
)

func newSaveFixture(t *testing.T) (*PollService, *SaveService, poll.Poll, uuid.UUID) {
	t.Helper()
	store := testutil.NewMemoryStore()
	polls := NewPollService(store.Polls(), nil, nil)
	saves := NewSaveService(store.Polls(), store.Saved())

	creator := uuid.New()
	p, err := polls.Create(context.Background(), creator, "Q", []string{"A", "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return polls, saves, p, creator
}

func TestSaveIsIdempotent(t *testing.T) {
	_, saves, p, _ := newSaveFixture(t)
	ctx := context.Background()
	user := uuid.New()

	likes, err := saves.Save(ctx, user, p.ID)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if likes != 1 {
		t.Fatalf("expected likesCount 1, got %d", likes)
	}

	likes, err = saves.Save(ctx, user, p.ID)
	if err != nil {
		t.Fatalf("repeat save: %v", err)
	}
	if likes != 1 {
		t.Fatalf("repeat save must not double count, got %d", likes)
	}
}

func TestUnsaveOnlyDecrementsWhenSaved(t *testing.T) {
	_, saves, p, _ := newSaveFixture(t)
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	if _, err := saves.Save(ctx, user, p.ID); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := saves.Save(ctx, other, p.ID); err != nil {
		t.Fatalf("save: %v", err)
	}

	likes, err := saves.Unsave(ctx, user, p.ID)
	if err != nil {
		t.Fatalf("unsave: %v", err)
	}
	if likes != 1 {
		t.Fatalf("expected likesCount back to 1, got %d", likes)
	}

	// Repeated unsave leaves the counter alone
	likes, err = saves.Unsave(ctx, user, p.ID)
	if err != nil {
		t.Fatalf("repeat unsave: %v", err)
	}
	if likes != 1 {
		t.Fatalf("repeat unsave must not decrement, got %d", likes)
	}
}

func TestUnsaveWithoutSaveNeverGoesNegative(t *testing.T) {
	_, saves, p, _ := newSaveFixture(t)

	likes, err := saves.Unsave(context.Background(), uuid.New(), p.ID)
	if err != nil {
		t.Fatalf("unsave: %v", err)
	}
	if likes != 0 {
		t.Fatalf("expected likesCount 0, got %d", likes)
	}
}

func TestSaveOwnPollForbidden(t *testing.T) {
	_, saves, p, creator := newSaveFixture(t)
	ctx := context.Background()

	if _, err := saves.Save(ctx, creator, p.ID); !errors.Is(err, pollstream_errors.ErrForbidden) {
		t.Errorf("save own poll: got %v", err)
	}
	if _, err := saves.Unsave(ctx, creator, p.ID); !errors.Is(err, pollstream_errors.ErrForbidden) {
		t.Errorf("unsave own poll: got %v", err)
	}
}

func TestSaveMissingPoll(t *testing.T) {
	_, saves, _, _ := newSaveFixture(t)

	if _, err := saves.Save(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, pollstream_errors.ErrNotFound) {
		t.Errorf("missing poll: got %v", err)
	}
}

func TestListSavedAnnotations(t *testing.T) {
	polls, saves, p, _ := newSaveFixture(t)
	ctx := context.Background()
	user := uuid.New()

	if _, err := polls.CastVote(ctx, p.ID, user, 1); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := saves.Save(ctx, user, p.ID); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Expire the poll; it must stay listed, frozen but annotated.
	saves.now = func() time.Time { return p.ExpiresAt.Add(time.Hour) }

	saved, err := saves.ListSaved(ctx, user)
	if err != nil {
		t.Fatalf("list saved: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved poll, got %d", len(saved))
	}
	entry := saved[0]
	if !entry.Expired {
		t.Error("expected expired flag")
	}
	if entry.MyOptionIndex == nil || *entry.MyOptionIndex != 1 {
		t.Errorf("expected myOptionIndex 1, got %v", entry.MyOptionIndex)
	}
}

func TestListSavedWithoutBallot(t *testing.T) {
	_, saves, p, _ := newSaveFixture(t)
	ctx := context.Background()
	user := uuid.New()

	if _, err := saves.Save(ctx, user, p.ID); err != nil {
		t.Fatalf("save: %v", err)
	}

	saved, err := saves.ListSaved(ctx, user)
	if err != nil {
		t.Fatalf("list saved: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved poll, got %d", len(saved))
	}
	if saved[0].MyOptionIndex != nil {
		t.Errorf("expected no ballot choice, got %v", *saved[0].MyOptionIndex)
	}
	if saved[0].Expired {
		t.Error("fresh poll must not be expired")
	}
}
