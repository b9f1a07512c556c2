package services

import (
	"context"
	"strings"
	"time"
	"townhall/internal/models"

	"gorm.io/gorm"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

type Voter struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
}

// CommentView is a comment joined with its author and voters.
type CommentView struct {
	ID           uint      `json:"id"`
	PostID       uint      `json:"post_id"`
	UserID       uint      `json:"user_id"`
	Content      string    `json:"content"`
	VoteCount    int       `json:"vote_count"`
	CreatedAt    time.Time `json:"created_at"`
	UserName     string    `json:"user_name"`
	ProfileImage string    `json:"profile_image"`
	Voters       []Voter   `gorm:"-" json:"voters"`
}

func (s *CommentService) Create(ctx context.Context, postID, userID uint, content string) (*CommentView, error) {
	if postID == 0 || userID == 0 || strings.TrimSpace(content) == "" {
		return nil, validationError("missing required fields")
	}

	comment := models.Comment{PostID: postID, UserID: userID, Content: content}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return storageError("failed to load post", err)
		}
		if count == 0 {
			return notFoundError("post %d not found", postID)
		}
		if err := tx.Create(&comment).Error; err != nil {
			return storageError("failed to add comment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views, err := s.load(ctx, "c.id = ?", comment.ID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, notFoundError("comment %d not found", comment.ID)
	}
	return &views[0], nil
}

// ListByPost returns a post's comments oldest first, each with its voters.
func (s *CommentService) ListByPost(ctx context.Context, postID uint) ([]CommentView, error) {
	views, err := s.load(ctx, "c.post_id = ?", postID)
	if err != nil {
		return nil, err
	}

	type voterRow struct {
		CommentID uint
		UserID    uint
		UserName  string
	}
	var rows []voterRow
	err = s.db.WithContext(ctx).Table("comment_votes AS cv").
		Select("c.id AS comment_id, u.id AS user_id, u.name AS user_name").
		Joins("JOIN comments c ON cv.comment_id = c.id").
		Joins("JOIN users u ON cv.user_id = u.id").
		Where("c.post_id = ?", postID).
		Order("cv.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageError("failed to retrieve comment votes", err)
	}

	index := make(map[uint]int, len(views))
	for i := range views {
		index[views[i].ID] = i
	}
	for _, r := range rows {
		if i, ok := index[r.CommentID]; ok {
			views[i].Voters = append(views[i].Voters, Voter{UserID: r.UserID, Name: r.UserName})
		}
	}
	return views, nil
}

func (s *CommentService) load(ctx context.Context, where string, arg any) ([]CommentView, error) {
	var views []CommentView
	err := s.db.WithContext(ctx).Table("comments AS c").
		Select("c.id, c.post_id, c.user_id, c.content, c.vote_count, c.created_at, u.name AS user_name, u.profile_image").
		Joins("JOIN users u ON c.user_id = u.id").
		Where(where, arg).
		Order("c.created_at ASC, c.id ASC").
		Scan(&views).Error
	if err != nil {
		return nil, storageError("failed to retrieve comments", err)
	}
	for i := range views {
		views[i].Voters = []Voter{}
	}
	return views, nil
}

// Vote records userID's vote on a comment and bumps its vote_count.
func (s *CommentService) Vote(ctx context.Context, userID, commentID uint) error {
	if userID == 0 || commentID == 0 {
		return validationError("user_id is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockComment(tx, commentID); err != nil {
			return err
		}
		voted, err := hasCommentVote(tx, userID, commentID)
		if err != nil {
			return err
		}
		if voted {
			return conflictError("you already voted on this comment")
		}
		if err := tx.Create(&models.CommentVote{UserID: userID, CommentID: commentID}).Error; err != nil {
			return storageError("failed to vote on comment", err)
		}
		return bumpCommentVotes(tx, commentID, 1)
	})
}

// Unvote removes userID's vote on a comment and decrements its vote_count.
func (s *CommentService) Unvote(ctx context.Context, userID, commentID uint) error {
	if userID == 0 || commentID == 0 {
		return validationError("user_id is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockComment(tx, commentID); err != nil {
			return err
		}
		return unvoteCommentTx(tx, userID, commentID)
	})
}

func unvoteCommentTx(tx *gorm.DB, userID, commentID uint) error {
	res := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&models.CommentVote{})
	if res.Error != nil {
		return storageError("failed to remove vote", res.Error)
	}
	if res.RowsAffected == 0 {
		return conflictError("you have not voted on this comment")
	}
	return bumpCommentVotes(tx, commentID, -1)
}

func hasCommentVote(tx *gorm.DB, userID, commentID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.CommentVote{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error
	if err != nil {
		return false, storageError("failed to load comment vote", err)
	}
	return count > 0, nil
}

func bumpCommentVotes(tx *gorm.DB, commentID uint, delta int) error {
	err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta)).Error
	if err != nil {
		return storageError("failed to update comment vote count", err)
	}
	return nil
}

// Update replaces a comment's content. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, commentID, userID uint, content string) error {
	if strings.TrimSpace(content) == "" {
		return validationError("comment content is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := lockComment(tx, commentID)
		if err != nil {
			return err
		}
		if comment.UserID != userID {
			return forbiddenError("not authorized to edit this comment")
		}
		if err := tx.Model(comment).Update("content", content).Error; err != nil {
			return storageError("failed to update comment", err)
		}
		return nil
	})
}

// Delete removes a comment and its votes. The author or an admin may delete.
func (s *CommentService) Delete(ctx context.Context, commentID, userID uint, isAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := lockComment(tx, commentID)
		if err != nil {
			return err
		}
		if !isAdmin && comment.UserID != userID {
			return forbiddenError("not authorized to delete this comment")
		}
		return deleteCommentTx(tx, commentID)
	})
}
