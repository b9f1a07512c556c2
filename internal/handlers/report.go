package handlers

import (
	"net/http"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type reportRequest struct {
	PostID    uint   `json:"post_id"`
	CommentID uint   `json:"comment_id"`
	UserID    uint   `json:"user_id" binding:"required"`
	Reason    string `json:"reason"`
}

func (h *ReportHandler) FlagPost(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.FlagPost(c.Request.Context(), req.PostID, req.UserID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) FlagComment(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.FlagComment(c.Request.Context(), req.CommentID, req.UserID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
