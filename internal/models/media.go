package models

import (
	"strings"
	"time"
)

const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaPDF   = "pdf"
	MediaFile  = "file"
)

type Media struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Type      string    `gorm:"size:10;not null" json:"type"`
	URL       string    `gorm:"not null" json:"url"`
	ObjectKey string    `gorm:"size:191" json:"-"` // 对象存储中的 key
	CreatedAt time.Time `json:"created_at"`
}

func (Media) TableName() string {
	return "post_media"
}

// MediaTypeFor classifies an upload by its MIME type.
func MediaTypeFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "image"):
		return MediaImage
	case strings.Contains(mimeType, "video"):
		return MediaVideo
	case strings.Contains(mimeType, "pdf"):
		return MediaPDF
	}
	return MediaFile
}
