package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ExternalID   string    `gorm:"column:auth0_id;uniqueIndex;size:191;not null" json:"auth0_id"` // 身份提供方的用户 ID
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image"`
	Role         string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	Position     string    `json:"position"`
	LinkedinURL  string    `json:"linkedin_url"`
	FacebookURL  string    `json:"facebook_url"`
	InstagramURL string    `json:"instagram_url"`
	WebsiteURL   string    `json:"website_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
