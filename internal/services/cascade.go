package services

import (
	"townhall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row locks taken at the start of every counter update. SQLite ignores the
// locking clause; its single writer gives the same serialization.

func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&post, postID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("post %d not found", postID)
		}
		return nil, storageError("failed to load post", err)
	}
	return &post, nil
}

func lockComment(tx *gorm.DB, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&comment, commentID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("comment %d not found", commentID)
		}
		return nil, storageError("failed to load comment", err)
	}
	return &comment, nil
}

func lockPoll(tx *gorm.DB, pollID uint) (*models.Poll, error) {
	var poll models.Poll
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&poll, pollID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("poll %d not found", pollID)
		}
		return nil, storageError("failed to load poll", err)
	}
	return &poll, nil
}

// deletePollTx removes votes, then options, then the poll row.
func deletePollTx(tx *gorm.DB, pollID uint) error {
	if err := tx.Where("poll_id = ?", pollID).Delete(&models.PollVote{}).Error; err != nil {
		return storageError("failed to delete poll votes", err)
	}
	if err := tx.Where("poll_id = ?", pollID).Delete(&models.PollOption{}).Error; err != nil {
		return storageError("failed to delete poll options", err)
	}
	if err := tx.Delete(&models.Poll{}, pollID).Error; err != nil {
		return storageError("failed to delete poll", err)
	}
	return nil
}

// deleteCommentTx removes a comment's votes before the comment itself.
func deleteCommentTx(tx *gorm.DB, commentID uint) error {
	if err := tx.Where("comment_id = ?", commentID).Delete(&models.CommentVote{}).Error; err != nil {
		return storageError("failed to delete comment votes", err)
	}
	if err := tx.Where("comment_id_flagged = ?", commentID).Delete(&models.Report{}).Error; err != nil {
		return storageError("failed to delete comment reports", err)
	}
	if err := tx.Delete(&models.Comment{}, commentID).Error; err != nil {
		return storageError("failed to delete comment", err)
	}
	return nil
}

// deletePostTx removes everything hanging off a post and returns the media
// rows it dropped so their objects can be cleaned up after commit.
func deletePostTx(tx *gorm.DB, postID uint) ([]models.Media, error) {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostVote{}).Error; err != nil {
		return nil, storageError("failed to delete post votes", err)
	}

	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentVote{}).Error; err != nil {
		return nil, storageError("failed to delete comment votes", err)
	}
	err := tx.Where("post_id_flagged = ? OR comment_id_flagged IN (?)", postID, commentIDs).Delete(&models.Report{}).Error
	if err != nil {
		return nil, storageError("failed to delete reports", err)
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return nil, storageError("failed to delete comments", err)
	}

	var polls []models.Poll
	if err := tx.Where("post_id = ?", postID).Find(&polls).Error; err != nil {
		return nil, storageError("failed to load poll", err)
	}
	for _, p := range polls {
		if err := deletePollTx(tx, p.ID); err != nil {
			return nil, err
		}
	}

	var media []models.Media
	if err := tx.Where("post_id = ?", postID).Find(&media).Error; err != nil {
		return nil, storageError("failed to load media", err)
	}
	if len(media) > 0 {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Media{}).Error; err != nil {
			return nil, storageError("failed to delete media", err)
		}
	}

	if err := tx.Delete(&models.Post{}, postID).Error; err != nil {
		return nil, storageError("failed to delete post", err)
	}
	return media, nil
}
