package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pollstream/internal/services"
	"pollstream/internal/transport/httpdto"
	pollstream_errors "pollstream/pkg/errors"
)

type PollHandler struct {
	polls *services.PollService
	saves *services.SaveService
	feed  *services.FeedService
}

func NewPollHandler(polls *services.PollService, saves *services.SaveService, feed *services.FeedService) *PollHandler {
	return &PollHandler{polls: polls, saves: saves, feed: feed}
}

func (h *PollHandler) Create(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	created, err := h.polls.Create(c.Request.Context(), userID, req.Question, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewPollResponse(created)))
}

func (h *PollHandler) Mine(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	polls, err := h.polls.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"polls": httpdto.NewPollResponses(polls)}))
}

func (h *PollHandler) Explore(c *gin.Context) {
	var viewerID *uuid.UUID
	if userID, ok := services.UserIDFromContext(c.Request.Context()); ok {
		viewerID = &userID
	}

	var after *int64
	if raw := c.Query("after"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid after cursor", "INVALID_REQUEST"))
			return
		}
		after = &seq
	}

	annotated, err := h.feed.Explore(c.Request.Context(), viewerID, after)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]httpdto.AnnotatedPollResponse, len(annotated))
	for i, a := range annotated {
		out[i] = httpdto.NewAnnotatedPollResponse(a)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"polls": out}))
}

func (h *PollHandler) Vote(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("poll not found", "NOT_FOUND"))
		return
	}

	var req httpdto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OptionIndex == nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing option index", "INVALID_REQUEST"))
		return
	}

	updated, err := h.polls.CastVote(c.Request.Context(), pollID, userID, *req.OptionIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewPollResponse(updated)))
}

func (h *PollHandler) Save(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("poll not found", "NOT_FOUND"))
		return
	}

	likes, err := h.saves.Save(c.Request.Context(), userID, pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SaveResponse{Saved: true, LikesCount: likes}))
}

func (h *PollHandler) Unsave(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("poll not found", "NOT_FOUND"))
		return
	}

	likes, err := h.saves.Unsave(c.Request.Context(), userID, pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SaveResponse{Saved: false, LikesCount: likes}))
}

func (h *PollHandler) Saved(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	saved, err := h.saves.ListSaved(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]httpdto.SavedPollResponse, len(saved))
	for i, s := range saved {
		out[i] = httpdto.NewSavedPollResponse(s)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"polls": out}))
}

// respondError maps service errors onto the HTTP surface. Business-rule
// rejections keep their detail; infrastructure failures stay opaque.
func respondError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
		return
	}
	c.JSON(status, httpdto.NewErrorResponse(err.Error(), errorCode(err)))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, pollstream_errors.ErrInvalidInput):
		return "INVALID_REQUEST"
	case errors.Is(err, pollstream_errors.ErrInvalidOption):
		return "INVALID_OPTION"
	case errors.Is(err, pollstream_errors.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, pollstream_errors.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, pollstream_errors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, pollstream_errors.ErrAlreadyVoted):
		return "ALREADY_VOTED"
	case errors.Is(err, pollstream_errors.ErrPollExpired):
		return "POLL_EXPIRED"
	case errors.Is(err, pollstream_errors.ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return "REQUEST_FAILED"
	}
}
