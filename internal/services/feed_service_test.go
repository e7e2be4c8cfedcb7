package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"pollstream/internal/domain/poll"
	"pollstream/internal/testutil"
)

func newFeedFixture() (*PollService, *FeedService) {
	store := testutil.NewMemoryStore()
	return NewPollService(store.Polls(), nil, nil), NewFeedService(store.Polls())
}

func TestExploreWindowIsRecentAndActiveOnly(t *testing.T) {
	polls, feed := newFeedFixture()
	ctx := context.Background()
	creator := uuid.New()

	base := time.Now()
	// One poll created long enough ago to be expired by the time we look.
	polls.now = func() time.Time { return base.Add(-poll.Lifetime - time.Hour) }
	if _, err := polls.Create(ctx, creator, "old", []string{"A", "B"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	polls.now = func() time.Time { return base }
	for i := 0; i < poll.ExploreWindowSize+5; i++ {
		clock := base.Add(time.Duration(i) * time.Minute)
		polls.now = func() time.Time { return clock }
		if _, err := polls.Create(ctx, creator, "fresh", []string{"A", "B"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	feed.now = func() time.Time { return base.Add(time.Hour) }
	window, err := feed.Explore(ctx, nil, nil)
	if err != nil {
		t.Fatalf("explore: %v", err)
	}

	if len(window) != poll.ExploreWindowSize {
		t.Fatalf("expected window of %d, got %d", poll.ExploreWindowSize, len(window))
	}
	for i, a := range window {
		if a.Question == "old" {
			t.Errorf("expired poll leaked into the uncursored window")
		}
		if i > 0 && a.CreatedAt.After(window[i-1].CreatedAt) {
			t.Errorf("window must be newest first")
		}
		if a.IsMine || a.HasVoted {
			t.Errorf("anonymous viewer must get false flags")
		}
	}
}

func TestExploreBackfillKeepsExpiredPolls(t *testing.T) {
	polls, feed := newFeedFixture()
	ctx := context.Background()
	creator := uuid.New()

	base := time.Now()
	polls.now = func() time.Time { return base.Add(-poll.Lifetime - time.Hour) }
	expired, err := polls.Create(ctx, creator, "expired", []string{"A", "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	polls.now = func() time.Time { return base }
	fresh, err := polls.Create(ctx, creator, "fresh", []string{"A", "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	after := int64(0)
	backfill, err := feed.Explore(ctx, nil, &after)
	if err != nil {
		t.Fatalf("explore: %v", err)
	}

	if len(backfill) != 2 {
		t.Fatalf("backfill must include expired polls, got %d entries", len(backfill))
	}
	if backfill[0].ServerSeq != expired.ServerSeq || backfill[1].ServerSeq != fresh.ServerSeq {
		t.Fatalf("backfill must be server_seq ascending")
	}

	// Cursor past the first poll returns only the second.
	after = expired.ServerSeq
	backfill, err = feed.Explore(ctx, nil, &after)
	if err != nil {
		t.Fatalf("explore: %v", err)
	}
	if len(backfill) != 1 || backfill[0].ServerSeq != fresh.ServerSeq {
		t.Fatalf("expected only seq > %d, got %+v", after, backfill)
	}
}

func TestExploreAnnotatesViewer(t *testing.T) {
	polls, feed := newFeedFixture()
	ctx := context.Background()
	viewer := uuid.New()
	other := uuid.New()

	mine, err := polls.Create(ctx, viewer, "mine", []string{"A", "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	theirs, err := polls.Create(ctx, other, "theirs", []string{"A", "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := polls.CastVote(ctx, theirs.ID, viewer, 0); err != nil {
		t.Fatalf("vote: %v", err)
	}

	window, err := feed.Explore(ctx, &viewer, nil)
	if err != nil {
		t.Fatalf("explore: %v", err)
	}

	byID := make(map[uuid.UUID]poll.Annotated)
	for _, a := range window {
		byID[a.ID] = a
	}
	if a := byID[mine.ID]; !a.IsMine || a.HasVoted {
		t.Errorf("own poll flags wrong: %+v", a)
	}
	if a := byID[theirs.ID]; a.IsMine || !a.HasVoted {
		t.Errorf("voted poll flags wrong: %+v", a)
	}
}
