package handlers

import (
	"io"
	"net/http"
	"strings"
	"townhall/internal/services"
	"townhall/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	media    *services.MediaService
	maxBytes int64
}

func NewMediaHandler(media *services.MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// Upload handles POST /media/upload?post_id= with a multipart "file" field.
func (h *MediaHandler) Upload(c *gin.Context) {
	postID := utils.ParseID(c.Query("post_id"))
	if postID == 0 {
		badRequest(c, "missing post_id")
		return
	}

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = mimetype.Detect(data).String()
	}

	media, err := h.media.Upload(c.Request.Context(), postID, data, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

func (h *MediaHandler) Delete(c *gin.Context) {
	mediaID, ok := pathID(c, "mediaId")
	if !ok {
		return
	}
	if err := h.media.Delete(c.Request.Context(), mediaID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "media deleted"})
}
