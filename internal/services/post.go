package services

import (
	"context"
	"strings"
	"townhall/internal/models"

	"gorm.io/gorm"
)

type PostService struct {
	db    *gorm.DB
	media MediaStore
}

// NewPostService wires the post ledger. media may be nil, in which case
// stored objects are left in place when a post is deleted.
func NewPostService(db *gorm.DB, media MediaStore) *PostService {
	return &PostService{db: db, media: media}
}

// VoteResult is returned by every CastVote call, including no-op repeats.
type VoteResult struct {
	Delta    int              `json:"delta"`
	NewScore int              `json:"newScore"`
	UserVote models.VoteValue `json:"userVote"`
}

// UserVote is the caller's current vote on a post; VoteType is nil when
// the user has not voted.
type UserVote struct {
	PostID   uint    `json:"post_id"`
	UserID   uint    `json:"user_id"`
	VoteType *string `json:"vote_type"`
}

type voteWrite int

const (
	writeNothing voteWrite = iota
	writeInsert
	writeUpdate
	writeDelete
)

// planVote is the ledger's transition table: given the stored vote and the
// requested one it yields the score delta and the row operation.
func planVote(current, requested models.VoteValue) (int, voteWrite) {
	switch {
	case current == requested:
		return 0, writeNothing
	case current == models.VoteNone && requested == models.VoteUp:
		return 1, writeInsert
	case current == models.VoteNone && requested == models.VoteDown:
		return -1, writeInsert
	case current == models.VoteUp && requested == models.VoteNone:
		return -1, writeDelete
	case current == models.VoteDown && requested == models.VoteNone:
		return 1, writeDelete
	case current == models.VoteUp && requested == models.VoteDown:
		return -2, writeUpdate
	case current == models.VoteDown && requested == models.VoteUp:
		return 2, writeUpdate
	}
	return 0, writeNothing
}

func (s *PostService) Create(ctx context.Context, userID uint, title, description string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if userID == 0 || title == "" {
		return nil, validationError("user_id and title are required")
	}

	post := models.Post{UserID: userID, Title: title, Description: description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return storageError("failed to load user", err)
		}
		if count == 0 {
			return notFoundError("user %d not found", userID)
		}
		if err := tx.Create(&post).Error; err != nil {
			return storageError("failed to create post", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// CastVote moves userID's vote on postID to value (1, 0 or -1) and applies
// the resulting delta to the post's score in the same transaction.
func (s *PostService) CastVote(ctx context.Context, userID, postID uint, value int) (*VoteResult, error) {
	requested, ok := models.ParseVoteValue(value)
	if !ok {
		return nil, validationError("value must be 1, 0, or -1")
	}
	if userID == 0 || postID == 0 {
		return nil, validationError("user_id and post_id are required")
	}

	var result VoteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		current := models.VoteNone
		var existing models.PostVote
		err = tx.Where("user_id = ? AND post_id = ?", userID, postID).Take(&existing).Error
		switch {
		case err == nil:
			current = existing.Value()
		case !isNotFound(err):
			return storageError("failed to load vote", err)
		}

		delta, write := planVote(current, requested)
		if write == writeNothing {
			result = VoteResult{Delta: 0, NewScore: post.Score, UserVote: current}
			return nil
		}

		switch write {
		case writeInsert:
			vote := models.PostVote{UserID: userID, PostID: postID, VoteType: requested.VoteType()}
			err = tx.Create(&vote).Error
		case writeUpdate:
			err = tx.Model(&existing).Update("vote_type", requested.VoteType()).Error
		case writeDelete:
			err = tx.Delete(&existing).Error
		}
		if err != nil {
			return storageError("failed to record vote", err)
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("score", gorm.Expr("score + ?", delta)).Error; err != nil {
			return storageError("failed to update post score", err)
		}

		var updated models.Post
		if err := tx.Select("score").Take(&updated, postID).Error; err != nil {
			return storageError("failed to read post score", err)
		}
		result = VoteResult{Delta: delta, NewScore: updated.Score, UserVote: requested}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *PostService) GetVote(ctx context.Context, userID, postID uint) (*UserVote, error) {
	if userID == 0 || postID == 0 {
		return nil, validationError("post_id and user_id are required")
	}

	view := &UserVote{PostID: postID, UserID: userID}
	var vote models.PostVote
	err := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Take(&vote).Error
	if err != nil {
		if isNotFound(err) {
			return view, nil
		}
		return nil, storageError("failed to load vote", err)
	}
	view.VoteType = &vote.VoteType
	return view, nil
}

// Delete removes a post and everything attached to it. Only the author may
// delete unless isAdmin is set.
func (s *PostService) Delete(ctx context.Context, postID, userID uint, isAdmin bool) error {
	if postID == 0 {
		return validationError("post id is required")
	}

	var dropped []models.Media
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if !isAdmin && post.UserID != userID {
			return forbiddenError("not authorized to delete this post")
		}
		dropped, err = deletePostTx(tx, postID)
		return err
	})
	if err != nil {
		return err
	}

	releaseObjects(ctx, s.db, s.media, dropped)
	return nil
}
