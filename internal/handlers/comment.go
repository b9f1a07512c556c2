package handlers

import (
	"net/http"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	PostID  uint   `json:"post_id" binding:"required"`
	UserID  uint   `json:"user_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type updateCommentRequest struct {
	UserID  uint   `json:"user_id" binding:"required"`
	Content string `json:"content"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), req.PostID, req.UserID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) ListByPost(c *gin.Context) {
	postID, ok := pathID(c, "postId")
	if !ok {
		return
	}
	comments, err := h.comments.ListByPost(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) Vote(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.comments.Vote(c.Request.Context(), userID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote recorded"})
}

func (h *CommentHandler) Unvote(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.comments.Unvote(c.Request.Context(), userID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote removed"})
}

func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.comments.Update(c.Request.Context(), commentID, req.UserID, req.Content); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment updated"})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), commentID, userID, false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
