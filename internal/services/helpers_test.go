package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"townhall/internal/db"
	"townhall/internal/models"

	"gorm.io/gorm"
)

// newTestDB 每个测试一个独立的 SQLite 文件
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{ExternalID: "auth0|" + name, Name: name, ProfileImage: name + ".png"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedPost(t *testing.T, gdb *gorm.DB, userID uint, title string) models.Post {
	t.Helper()
	p := models.Post{UserID: userID, Title: title, Description: "about " + title}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func postScore(t *testing.T, gdb *gorm.DB, postID uint) int {
	t.Helper()
	var p models.Post
	if err := gdb.Take(&p, postID).Error; err != nil {
		t.Fatalf("load post %d: %v", postID, err)
	}
	return p.Score
}

// ledgerScore recomputes a post's score from its vote rows.
func ledgerScore(t *testing.T, gdb *gorm.DB, postID uint) int {
	t.Helper()
	var votes []models.PostVote
	if err := gdb.Where("post_id = ?", postID).Find(&votes).Error; err != nil {
		t.Fatalf("load votes: %v", err)
	}
	sum := 0
	for _, v := range votes {
		sum += int(v.Value())
	}
	return sum
}

func countRows(t *testing.T, gdb *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s error, got %s: %v", kind, KindOf(err), err)
	}
}

// fakeStore is an in-memory MediaStore.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	storeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Store(_ context.Context, data []byte, mimeType string) (StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return StoredObject{}, f.storeErr
	}
	key := ObjectKey(data, mimeType)
	f.objects[key] = data
	return StoredObject{Key: key, URL: "https://media.test/" + key}, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// fakeIdentity records DeleteUser calls.
type fakeIdentity struct {
	deleted []string
	err     error
}

func (f *fakeIdentity) DeleteUser(_ context.Context, externalID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, externalID)
	return nil
}

func seedPoll(t *testing.T, gdb *gorm.DB, postID uint, allowNew bool, options ...string) (uint, []uint) {
	t.Helper()
	svc := NewPollService(gdb)
	pollID, err := svc.Create(context.Background(), postID, fmt.Sprintf("question for %d?", postID), options, allowNew)
	if err != nil {
		t.Fatalf("seed poll: %v", err)
	}
	var ids []uint
	if err := gdb.Model(&models.PollOption{}).Where("poll_id = ?", pollID).Order("id").Pluck("id", &ids).Error; err != nil {
		t.Fatalf("load options: %v", err)
	}
	return pollID, ids
}
