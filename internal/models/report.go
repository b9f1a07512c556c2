package models

import (
	"time"
)

// Report 举报记录，PostID 与 CommentID 二选一
type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    *uint     `gorm:"column:post_id_flagged;index" json:"post_id_flagged"`
	CommentID *uint     `gorm:"column:comment_id_flagged;index" json:"comment_id_flagged"`
	UserID    uint      `gorm:"column:flagged_by;not null;index" json:"flagged_by"`
	Reason    string    `gorm:"column:flagged_reason;size:500" json:"flagged_reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (Report) TableName() string {
	return "flagged_items"
}
