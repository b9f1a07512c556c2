package handlers

import (
	"net/http"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
)

type PollHandler struct {
	polls *services.PollService
}

func NewPollHandler(polls *services.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

type pollRequest struct {
	PostID          uint     `json:"post_id"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	AllowNewOptions bool     `json:"allow_new_options"`
}

type pollVoteRequest struct {
	UserID        uint   `json:"user_id" binding:"required"`
	OptionID      uint   `json:"option_id"`
	NewOptionText string `json:"new_option_text"`
}

type pollVotesRequest struct {
	PollIDs []uint `json:"poll_ids" binding:"required,min=1"`
}

func (h *PollHandler) Get(c *gin.Context) {
	pollID, ok := pathID(c, "id")
	if !ok {
		return
	}
	poll, err := h.polls.Get(c.Request.Context(), pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (h *PollHandler) Create(c *gin.Context) {
	var req pollRequest
	if !bindJSON(c, &req) {
		return
	}
	pollID, err := h.polls.Create(c.Request.Context(), req.PostID, req.Question, req.Options, req.AllowNewOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "poll created", "poll_id": pollID})
}

func (h *PollHandler) Update(c *gin.Context) {
	pollID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pollRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.polls.Update(c.Request.Context(), pollID, req.Question, req.Options, req.AllowNewOptions); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll updated"})
}

func (h *PollHandler) Delete(c *gin.Context) {
	pollID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.polls.Delete(c.Request.Context(), pollID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll deleted"})
}

// Vote 投票，可以选已有选项或者新增选项
func (h *PollHandler) Vote(c *gin.Context) {
	pollID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pollVoteRequest
	if !bindJSON(c, &req) {
		return
	}
	optionID, err := h.polls.Vote(c.Request.Context(), pollID, services.PollVoteInput{
		UserID:        req.UserID,
		OptionID:      req.OptionID,
		NewOptionText: req.NewOptionText,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote recorded", "option_id": optionID})
}

func (h *PollHandler) Unvote(c *gin.Context) {
	pollID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.polls.Unvote(c.Request.Context(), pollID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote removed"})
}

func (h *PollHandler) VotesForPolls(c *gin.Context) {
	var req pollVotesRequest
	if !bindJSON(c, &req) {
		return
	}
	rows, err := h.polls.VotesForPolls(c.Request.Context(), req.PollIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
