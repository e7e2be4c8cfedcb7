package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pollstream/internal/middleware"
	"pollstream/internal/services"
	"pollstream/internal/testutil"
	"pollstream/internal/transport/httpdto"
)

const testSecret = "test-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := testutil.NewMemoryStore()
	tokens := services.NewTokenService(testSecret)
	polls := services.NewPollService(store.Polls(), nil, nil)
	saves := services.NewSaveService(store.Polls(), store.Saved())
	feed := services.NewFeedService(store.Polls())
	h := NewPollHandler(polls, saves, feed)

	r := gin.New()
	group := r.Group("/v1/polls")
	group.GET("/explore", middleware.OptionalAuthMiddleware(tokens), h.Explore)
	authed := group.Group("", middleware.AuthMiddleware(tokens))
	authed.POST("", h.Create)
	authed.GET("/mine", h.Mine)
	authed.GET("/saved", h.Saved)
	authed.POST("/:id/vote", h.Vote)
	authed.POST("/:id/save", h.Save)
	authed.DELETE("/:id/save", h.Unsave)
	return r
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Code    string          `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("bad data payload: %v", err)
		}
	}
}

func TestCreatePoll(t *testing.T) {
	r := newTestRouter()
	token := testutil.MakeToken(testSecret, uuid.New())

	w := doJSON(r, http.MethodPost, "/v1/polls", token, httpdto.CreatePollRequest{
		Question: "Tabs or spaces?",
		Options:  []string{"Tabs", "Spaces"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created httpdto.PollResponse
	decodeData(t, w, &created)
	if created.ServerSeq != 1 || len(created.Options) != 2 || created.LikesCount != 0 {
		t.Fatalf("unexpected poll: %+v", created)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("ballots")) {
		t.Error("ballots must never be serialized")
	}
}

func TestCreatePollValidation(t *testing.T) {
	r := newTestRouter()
	token := testutil.MakeToken(testSecret, uuid.New())

	w := doJSON(r, http.MethodPost, "/v1/polls", token, httpdto.CreatePollRequest{
		Question: "Q",
		Options:  []string{"only one"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreatePollRequiresAuth(t *testing.T) {
	r := newTestRouter()

	w := doJSON(r, http.MethodPost, "/v1/polls", "", httpdto.CreatePollRequest{
		Question: "Q",
		Options:  []string{"A", "B"},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestVoteFlow(t *testing.T) {
	r := newTestRouter()
	creatorToken := testutil.MakeToken(testSecret, uuid.New())
	voterToken := testutil.MakeToken(testSecret, uuid.New())

	w := doJSON(r, http.MethodPost, "/v1/polls", creatorToken, httpdto.CreatePollRequest{
		Question: "Q", Options: []string{"A", "B"},
	})
	var created httpdto.PollResponse
	decodeData(t, w, &created)

	idx := 1
	w = doJSON(r, http.MethodPost, "/v1/polls/"+created.ID+"/vote", voterToken, httpdto.VoteRequest{OptionIndex: &idx})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated httpdto.PollResponse
	decodeData(t, w, &updated)
	if updated.Options[1].Votes != 1 {
		t.Fatalf("expected tally 1, got %+v", updated.Options)
	}

	// Duplicate vote is a conflict
	w = doJSON(r, http.MethodPost, "/v1/polls/"+created.ID+"/vote", voterToken, httpdto.VoteRequest{OptionIndex: &idx})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	// Creator voting on own poll is forbidden
	w = doJSON(r, http.MethodPost, "/v1/polls/"+created.ID+"/vote", creatorToken, httpdto.VoteRequest{OptionIndex: &idx})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// Missing body is a validation error
	w = doJSON(r, http.MethodPost, "/v1/polls/"+created.ID+"/vote", voterToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestVoteMissingPoll(t *testing.T) {
	r := newTestRouter()
	token := testutil.MakeToken(testSecret, uuid.New())

	idx := 0
	w := doJSON(r, http.MethodPost, "/v1/polls/"+uuid.New().String()+"/vote", token, httpdto.VoteRequest{OptionIndex: &idx})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestExploreAnonymousAndAuthenticated(t *testing.T) {
	r := newTestRouter()
	creator := uuid.New()
	creatorToken := testutil.MakeToken(testSecret, creator)

	w := doJSON(r, http.MethodPost, "/v1/polls", creatorToken, httpdto.CreatePollRequest{
		Question: "Q", Options: []string{"A", "B"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	// Anonymous explore succeeds with false flags
	w = doJSON(r, http.MethodGet, "/v1/polls/explore", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var anon struct {
		Polls []httpdto.AnnotatedPollResponse `json:"polls"`
	}
	decodeData(t, w, &anon)
	if len(anon.Polls) != 1 || anon.Polls[0].IsMine || anon.Polls[0].HasVoted {
		t.Fatalf("unexpected anonymous feed: %+v", anon.Polls)
	}

	// A garbage token degrades to anonymous instead of failing
	w = doJSON(r, http.MethodGet, "/v1/polls/explore", "not-a-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with bad token, got %d", w.Code)
	}

	// The creator sees isMine
	w = doJSON(r, http.MethodGet, "/v1/polls/explore", creatorToken, nil)
	var mine struct {
		Polls []httpdto.AnnotatedPollResponse `json:"polls"`
	}
	decodeData(t, w, &mine)
	if len(mine.Polls) != 1 || !mine.Polls[0].IsMine {
		t.Fatalf("expected isMine for creator: %+v", mine.Polls)
	}
}

func TestExploreAfterCursor(t *testing.T) {
	r := newTestRouter()
	token := testutil.MakeToken(testSecret, uuid.New())

	for i := 0; i < 3; i++ {
		w := doJSON(r, http.MethodPost, "/v1/polls", token, httpdto.CreatePollRequest{
			Question: fmt.Sprintf("Q%d", i), Options: []string{"A", "B"},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create failed: %d", w.Code)
		}
	}

	w := doJSON(r, http.MethodGet, "/v1/polls/explore?after=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var feed struct {
		Polls []httpdto.AnnotatedPollResponse `json:"polls"`
	}
	decodeData(t, w, &feed)
	if len(feed.Polls) != 2 {
		t.Fatalf("expected 2 polls after seq 1, got %d", len(feed.Polls))
	}
	if feed.Polls[0].ServerSeq != 2 || feed.Polls[1].ServerSeq != 3 {
		t.Fatalf("backfill must be seq ascending: %+v", feed.Polls)
	}

	w = doJSON(r, http.MethodGet, "/v1/polls/explore?after=abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad cursor, got %d", w.Code)
	}
}

func TestSaveUnsaveAndSavedListing(t *testing.T) {
	r := newTestRouter()
	creatorToken := testutil.MakeToken(testSecret, uuid.New())
	user := uuid.New()
	userToken := testutil.MakeToken(testSecret, user)

	w := doJSON(r, http.MethodPost, "/v1/polls", creatorToken, httpdto.CreatePollRequest{
		Question: "Q", Options: []string{"A", "B"},
	})
	var created httpdto.PollResponse
	decodeData(t, w, &created)

	w = doJSON(r, http.MethodPost, "/v1/polls/"+created.ID+"/save", userToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d", w.Code)
	}
	var saveResp httpdto.SaveResponse
	decodeData(t, w, &saveResp)
	if !saveResp.Saved || saveResp.LikesCount != 1 {
		t.Fatalf("unexpected save response: %+v", saveResp)
	}

	// Saving own poll is forbidden
	w = doJSON(r, http.MethodPost, "/v1/polls/"+created.ID+"/save", creatorToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/v1/polls/saved", userToken, nil)
	var listing struct {
		Polls []httpdto.SavedPollResponse `json:"polls"`
	}
	decodeData(t, w, &listing)
	if len(listing.Polls) != 1 || listing.Polls[0].Expired || listing.Polls[0].MyOptionIndex != nil {
		t.Fatalf("unexpected saved listing: %+v", listing.Polls)
	}

	w = doJSON(r, http.MethodDelete, "/v1/polls/"+created.ID+"/save", userToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unsave: expected 200, got %d", w.Code)
	}
	decodeData(t, w, &saveResp)
	if saveResp.Saved || saveResp.LikesCount != 0 {
		t.Fatalf("unexpected unsave response: %+v", saveResp)
	}
}

func TestMineListsOnlyOwnPolls(t *testing.T) {
	r := newTestRouter()
	aToken := testutil.MakeToken(testSecret, uuid.New())
	bToken := testutil.MakeToken(testSecret, uuid.New())

	for _, token := range []string{aToken, aToken, bToken} {
		w := doJSON(r, http.MethodPost, "/v1/polls", token, httpdto.CreatePollRequest{
			Question: "Q", Options: []string{"A", "B"},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create failed: %d", w.Code)
		}
	}

	w := doJSON(r, http.MethodGet, "/v1/polls/mine", aToken, nil)
	var mine struct {
		Polls []httpdto.PollResponse `json:"polls"`
	}
	decodeData(t, w, &mine)
	if len(mine.Polls) != 2 {
		t.Fatalf("expected 2 own polls, got %d", len(mine.Polls))
	}
}
