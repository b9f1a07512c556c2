package models

import (
	"time"
)

type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Score       int       `gorm:"not null;default:0" json:"score"` // 物化的投票分数，由 post_votes 推导
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
