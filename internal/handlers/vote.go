package handlers

import (
	"net/http"
	"townhall/internal/services"
	"townhall/internal/utils"

	"github.com/gin-gonic/gin"
)

// VoteHandler serves the post vote ledger.
type VoteHandler struct {
	posts *services.PostService
}

func NewVoteHandler(posts *services.PostService) *VoteHandler {
	return &VoteHandler{posts: posts}
}

type castVoteRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	Value  *int `json:"value" binding:"omitempty,oneof=-1 0 1"`
}

// Cast handles POST /posts/:postId/vote with value 1, 0 or -1.
func (h *VoteHandler) Cast(c *gin.Context) {
	postID, ok := pathID(c, "postId")
	if !ok {
		return
	}
	var req castVoteRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Value == nil {
		badRequest(c, "value is required")
		return
	}

	result, err := h.posts.CastVote(c.Request.Context(), req.UserID, postID, *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *VoteHandler) Get(c *gin.Context) {
	postID, ok := pathID(c, "postId")
	if !ok {
		return
	}
	userID := utils.ParseID(c.Query("user_id"))
	if userID == 0 {
		badRequest(c, "user_id is required")
		return
	}

	vote, err := h.posts.GetVote(c.Request.Context(), userID, postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}
