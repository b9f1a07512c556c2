package models

type Poll struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	PostID            uint         `gorm:"not null;uniqueIndex" json:"post_id"` // 每篇帖子最多一个投票
	Question          string       `gorm:"not null" json:"question"`
	IsEditable        bool         `gorm:"not null;default:true" json:"is_editable"`
	MoreOptionEnabled bool         `gorm:"not null;default:false" json:"more_option_enabled"`
	Options           []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`
}

type PollOption struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	PollID           uint   `gorm:"not null;index" json:"poll_id"`
	OptionText       string `gorm:"not null" json:"option_text"`
	VoteCount        int    `gorm:"not null;default:0" json:"vote_count"`
	AdditionalOption bool   `gorm:"not null;default:false" json:"additional_option"` // 用户投票时新增的选项，票数归零后删除
}

// PollVote carries poll_id so the one-ballot-per-poll rule is a unique
// index rather than only a pre-check.
type PollVote struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	UserID       uint `gorm:"not null;uniqueIndex:idx_poll_vote_option;uniqueIndex:idx_poll_vote_poll" json:"user_id"`
	PollOptionID uint `gorm:"not null;index;uniqueIndex:idx_poll_vote_option" json:"poll_option_id"`
	PollID       uint `gorm:"not null;index;uniqueIndex:idx_poll_vote_poll" json:"poll_id"`
}
