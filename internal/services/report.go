package services

import (
	"context"
	"strings"
	"unicode/utf8"
	"townhall/internal/models"
	"townhall/internal/utils"

	"gorm.io/gorm"
)

const maxReasonRunes = 500

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// FlagPost records that userID reported a post.
func (s *ReportService) FlagPost(ctx context.Context, postID, userID uint, reason string) (*models.Report, error) {
	if postID == 0 || userID == 0 {
		return nil, validationError("post_id and user_id are required")
	}
	return s.flag(ctx, models.Report{PostID: &postID, UserID: userID, Reason: cleanReason(reason)})
}

// FlagComment records that userID reported a comment.
func (s *ReportService) FlagComment(ctx context.Context, commentID, userID uint, reason string) (*models.Report, error) {
	if commentID == 0 || userID == 0 {
		return nil, validationError("comment_id and user_id are required")
	}
	return s.flag(ctx, models.Report{CommentID: &commentID, UserID: userID, Reason: cleanReason(reason)})
}

// cleanReason 举报理由只保留纯文本
func cleanReason(reason string) string {
	return strings.TrimSpace(utils.StripTags(reason))
}

func (s *ReportService) flag(ctx context.Context, report models.Report) (*models.Report, error) {
	if utf8.RuneCountInString(report.Reason) > maxReasonRunes {
		return nil, validationError("reason must be at most 500 characters")
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, storageError("failed to flag item", err)
	}
	return &report, nil
}
