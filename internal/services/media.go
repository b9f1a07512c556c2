package services

import (
	"context"
	"log"
	"townhall/internal/models"

	"gorm.io/gorm"
)

type MediaService struct {
	db    *gorm.DB
	store MediaStore
}

func NewMediaService(db *gorm.DB, store MediaStore) *MediaService {
	return &MediaService{db: db, store: store}
}

// Upload stores the bytes and attaches the resulting pointer to a post.
func (s *MediaService) Upload(ctx context.Context, postID uint, data []byte, mimeType string) (*models.Media, error) {
	if postID == 0 {
		return nil, validationError("missing post_id")
	}
	if len(data) == 0 {
		return nil, validationError("no file uploaded")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, storageError("failed to load post", err)
	}
	if count == 0 {
		return nil, notFoundError("post %d not found", postID)
	}

	obj, err := s.store.Store(ctx, data, mimeType)
	if err != nil {
		return nil, storageError("upload failed", err)
	}

	media := models.Media{
		PostID:    postID,
		Type:      models.MediaTypeFor(mimeType),
		URL:       obj.URL,
		ObjectKey: obj.Key,
	}
	if err := s.db.WithContext(ctx).Create(&media).Error; err != nil {
		releaseObjects(ctx, s.db, s.store, []models.Media{media})
		return nil, storageError("failed to save media", err)
	}
	return &media, nil
}

// Delete drops the media row and then its stored object.
func (s *MediaService) Delete(ctx context.Context, mediaID uint) error {
	var media models.Media
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&media, mediaID).Error; err != nil {
			if isNotFound(err) {
				return notFoundError("media %d not found", mediaID)
			}
			return storageError("failed to load media", err)
		}
		if err := tx.Delete(&media).Error; err != nil {
			return storageError("delete failed", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	releaseObjects(ctx, s.db, s.store, []models.Media{media})
	return nil
}

// releaseObjects removes stored objects no media row points at any more.
// Errors leave an orphaned object behind and are only logged.
// The count and the delete are not atomic: an identical upload committed
// in between keeps a row whose object is gone. Re-uploading the same bytes
// stores the object again under the same key.
func releaseObjects(ctx context.Context, db *gorm.DB, store MediaStore, media []models.Media) {
	if store == nil {
		return
	}
	released := make(map[string]bool)
	for _, m := range media {
		if m.ObjectKey == "" || released[m.ObjectKey] {
			continue
		}
		released[m.ObjectKey] = true

		var refs int64
		if err := db.WithContext(ctx).Model(&models.Media{}).Where("object_key = ?", m.ObjectKey).Count(&refs).Error; err != nil {
			log.Printf("[media] failed to count references to %s: %v", m.ObjectKey, err)
			continue
		}
		if refs > 0 {
			continue
		}
		if err := store.Delete(ctx, m.ObjectKey); err != nil {
			log.Printf("[media] failed to delete object %s for post %d: %v", m.ObjectKey, m.PostID, err)
		}
	}
}
