package handlers

import (
	"net/http"
	"strconv"
	"townhall/internal/services"
	"townhall/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
	feed  *services.FeedService
}

func NewPostHandler(posts *services.PostService, feed *services.FeedService) *PostHandler {
	return &PostHandler{posts: posts, feed: feed}
}

type createPostRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), req.UserID, req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// List 帖子列表 ?sortBy=date|votes&limit=&user_id=
func (h *PostHandler) List(c *gin.Context) {
	opts := services.ListOptions{SortBy: services.ParseSortKey(c.Query("sortBy"))}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("user_id"); raw != "" {
		opts.UserID = utils.ParseID(raw)
		if opts.UserID == 0 {
			badRequest(c, "invalid user_id")
			return
		}
	}

	posts, err := h.feed.ListPosts(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) Delete(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), postID, userID, false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}
