package handlers

import (
	"log"
	"net/http"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler 管理员操作，不做归属检查
type AdminHandler struct {
	posts    *services.PostService
	comments *services.CommentService
}

func NewAdminHandler(posts *services.PostService, comments *services.CommentService) *AdminHandler {
	return &AdminHandler{posts: posts, comments: comments}
}

func (h *AdminHandler) DeletePost(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), postID, 0, true); err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[admin] deleted post %d", postID)
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), commentID, 0, true); err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[admin] deleted comment %d", commentID)
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
