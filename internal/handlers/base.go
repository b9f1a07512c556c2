package handlers

import (
	"errors"
	"log"
	"net/http"
	"townhall/internal/middleware"
	"townhall/internal/services"
	"townhall/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status. Storage failures are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) || se.Kind == services.KindStorage {
		log.Printf("[api] %s %s request=%s: %v", c.Request.Method, c.Request.URL.Path, c.GetString(middleware.RequestIDKey), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(statusFor(se.Kind), gin.H{"error": se.Message})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// bindJSON decodes the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id := utils.ParseID(c.Param(name))
	if id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

type actorRequest struct {
	UserID uint `json:"user_id"`
}

// actorID reads the acting user from ?user_id= or a {"user_id"} body.
func actorID(c *gin.Context) (uint, bool) {
	if raw := c.Query("user_id"); raw != "" {
		id := utils.ParseID(raw)
		if id == 0 {
			badRequest(c, "invalid user_id")
			return 0, false
		}
		return id, true
	}
	var req actorRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return 0, false
		}
	}
	if req.UserID == 0 {
		badRequest(c, "user_id is required")
		return 0, false
	}
	return req.UserID, true
}
