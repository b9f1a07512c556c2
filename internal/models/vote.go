package models

import (
	"time"
)

// VoteValue is a user's standing on a post. The zero value is "no vote".
type VoteValue int

const (
	VoteDown VoteValue = -1
	VoteNone VoteValue = 0
	VoteUp   VoteValue = 1
)

// Stored vote_type values. Absence of a row means VoteNone.
const (
	VoteTypeUp   = "up"
	VoteTypeDown = "down"
)

// ParseVoteValue accepts only -1, 0 and 1.
func ParseVoteValue(v int) (VoteValue, bool) {
	switch VoteValue(v) {
	case VoteDown, VoteNone, VoteUp:
		return VoteValue(v), true
	}
	return VoteNone, false
}

// VoteType returns the stored column value, or "" for VoteNone.
func (v VoteValue) VoteType() string {
	switch v {
	case VoteUp:
		return VoteTypeUp
	case VoteDown:
		return VoteTypeDown
	}
	return ""
}

// VoteValueOf maps a stored vote_type back to its value.
func VoteValueOf(voteType string) VoteValue {
	switch voteType {
	case VoteTypeUp:
		return VoteUp
	case VoteTypeDown:
		return VoteDown
	}
	return VoteNone
}

type PostVote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_vote_user" json:"user_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_post_vote_user" json:"post_id"`
	VoteType  string    `gorm:"size:4;not null" json:"vote_type"` // up, down
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (v PostVote) Value() VoteValue {
	return VoteValueOf(v.VoteType)
}

type CommentVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_vote_user" json:"user_id"`
	CommentID uint      `gorm:"not null;index;uniqueIndex:idx_comment_vote_user" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}
