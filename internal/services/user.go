package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"townhall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db       *gorm.DB
	media    MediaStore
	identity IdentityProvider
}

func NewUserService(db *gorm.DB, media MediaStore, identity IdentityProvider) *UserService {
	return &UserService{db: db, media: media, identity: identity}
}

type SignInInput struct {
	ExternalID   string `json:"auth0_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profile_image"`
}

type ProfileInput struct {
	Name         string `json:"name"`
	Position     string `json:"position"`
	ProfileImage string `json:"profile_image"`
	LinkedinURL  string `json:"linkedin_url"`
	FacebookURL  string `json:"facebook_url"`
	InstagramURL string `json:"instagram_url"`
	WebsiteURL   string `json:"website_url"`
}

type UserPosts struct {
	User  models.User   `json:"user"`
	Posts []models.Post `json:"posts"`
}

// SignIn creates the local user for an identity on first login and refreshes
// name and profile image on later ones.
func (s *UserService) SignIn(ctx context.Context, in SignInInput) (*models.User, error) {
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	if in.ExternalID == "" {
		return nil, validationError("auth0_id is required")
	}

	user := models.User{
		ExternalID:   in.ExternalID,
		Name:         in.Name,
		Email:        in.Email,
		ProfileImage: in.ProfileImage,
	}
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth0_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "profile_image", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, storageError("failed to sign in user", err)
	}

	var saved models.User
	if err := db.Where("auth0_id = ?", in.ExternalID).Take(&saved).Error; err != nil {
		return nil, storageError("failed to load user", err)
	}
	return &saved, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, userID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("user %d not found", userID)
		}
		return nil, storageError("failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationError("name is required")
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"name":          in.Name,
		"position":      in.Position,
		"profile_image": in.ProfileImage,
		"linkedin_url":  in.LinkedinURL,
		"facebook_url":  in.FacebookURL,
		"instagram_url": in.InstagramURL,
		"website_url":   in.WebsiteURL,
	})
	if res.Error != nil {
		return nil, storageError("failed to update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFoundError("user %d not found", userID)
	}
	return s.Profile(ctx, userID)
}

// UserPosts returns a user with their posts, newest first.
func (s *UserService) UserPosts(ctx context.Context, userID uint) (*UserPosts, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := UserPosts{User: *user, Posts: []models.Post{}}
	err = s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&out.Posts).Error
	if err != nil {
		return nil, storageError("failed to load posts", err)
	}
	return &out, nil
}

// DeleteAccount removes the identity first, then every local trace of the
// user. Votes are withdrawn through the ledgers so counters on other users'
// posts, comments and polls stay consistent.
func (s *UserService) DeleteAccount(ctx context.Context, userID, requesterID uint) error {
	if userID == 0 {
		return validationError("user id is required")
	}
	if requesterID != userID {
		return forbiddenError("you can only delete your own account")
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if s.identity != nil {
		if err := s.identity.DeleteUser(ctx, user.ExternalID); err != nil {
			return storageError("failed to delete identity", err)
		}
	}

	var dropped []models.Media
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := withdrawUserVotesTx(tx, userID); err != nil {
			return err
		}

		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", userID).Pluck("id", &commentIDs).Error; err != nil {
			return storageError("failed to load comments", err)
		}
		for _, id := range commentIDs {
			if err := deleteCommentTx(tx, id); err != nil {
				return err
			}
		}

		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
			return storageError("failed to load posts", err)
		}
		for _, id := range postIDs {
			media, err := deletePostTx(tx, id)
			if err != nil {
				return err
			}
			dropped = append(dropped, media...)
		}

		if err := tx.Where("flagged_by = ?", userID).Delete(&models.Report{}).Error; err != nil {
			return storageError("failed to delete reports", err)
		}
		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return storageError("failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		// 身份已删除但本地数据还在，需要人工处理
		log.Printf("[user] identity %s deleted but local purge of user %d failed: %v", user.ExternalID, userID, err)
		return err
	}

	releaseObjects(ctx, s.db, s.media, dropped)
	return nil
}

// withdrawUserVotesTx takes back every post vote, comment vote and poll
// ballot the user holds. Parents are locked in id order.
func withdrawUserVotesTx(tx *gorm.DB, userID uint) error {
	var postVotes []models.PostVote
	if err := tx.Where("user_id = ?", userID).Order("post_id").Find(&postVotes).Error; err != nil {
		return storageError("failed to load post votes", err)
	}
	for _, v := range postVotes {
		if _, err := lockPost(tx, v.PostID); err != nil {
			return err
		}
		if err := tx.Delete(&v).Error; err != nil {
			return storageError("failed to delete post vote", err)
		}
		err := tx.Model(&models.Post{}).Where("id = ?", v.PostID).
			UpdateColumn("score", gorm.Expr("score - ?", int(v.Value()))).Error
		if err != nil {
			return storageError("failed to update post score", err)
		}
	}

	var commentIDs []uint
	err := tx.Model(&models.CommentVote{}).Where("user_id = ?", userID).Order("comment_id").Pluck("comment_id", &commentIDs).Error
	if err != nil {
		return storageError("failed to load comment votes", err)
	}
	for _, id := range commentIDs {
		if _, err := lockComment(tx, id); err != nil {
			return err
		}
		if err := unvoteCommentTx(tx, userID, id); err != nil {
			return err
		}
	}

	var pollVotes []models.PollVote
	if err := tx.Where("user_id = ?", userID).Order("poll_id").Find(&pollVotes).Error; err != nil {
		return storageError("failed to load poll votes", err)
	}
	for _, v := range pollVotes {
		if _, err := lockPoll(tx, v.PollID); err != nil {
			return err
		}
		if err := withdrawBallotTx(tx, Voted(v.ID, v.PollOptionID)); err != nil {
			return fmt.Errorf("withdraw ballot in poll %d: %w", v.PollID, err)
		}
	}
	return nil
}
