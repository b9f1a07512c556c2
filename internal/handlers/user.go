package handlers

import (
	"net/http"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// SignIn 首次登录时创建本地用户
func (h *UserHandler) SignIn(c *gin.Context) {
	var req services.SignInInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ProfileInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Posts(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.users.UserPosts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteAccount removes the caller's own account.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	requesterID, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.users.DeleteAccount(c.Request.Context(), userID, requesterID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
