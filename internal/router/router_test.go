package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"townhall/internal/db"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
)

type memStore struct{ objects map[string][]byte }

func (m *memStore) Store(_ context.Context, data []byte, mimeType string) (services.StoredObject, error) {
	key := services.ObjectKey(data, mimeType)
	m.objects[key] = data
	return services.StoredObject{Key: key, URL: "https://media.test/" + key}, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := &memStore{objects: map[string][]byte{}}
	return New(Deps{
		DB:             gdb,
		Posts:          services.NewPostService(gdb, store),
		Feed:           services.NewFeedService(gdb),
		Comments:       services.NewCommentService(gdb),
		Polls:          services.NewPollService(gdb),
		Media:          services.NewMediaService(gdb, store),
		Users:          services.NewUserService(gdb, store, nil),
		Reports:        services.NewReportService(gdb),
		AdminToken:     "admin-secret",
		MaxUploadBytes: 1 << 20,
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body %s", w.Code, want, w.Body.String())
	}
}

type idBody struct {
	ID uint `json:"id"`
}

func signIn(t *testing.T, r http.Handler, name string) uint {
	t.Helper()
	w := do(t, r, http.MethodPost, "/users/add", map[string]any{"auth0_id": "auth0|" + name, "name": name})
	expectStatus(t, w, http.StatusOK)
	return decode[idBody](t, w).ID
}

func TestPostVoteFlow(t *testing.T) {
	r := newTestServer(t)
	alice := signIn(t, r, "alice")
	bob := signIn(t, r, "bob")

	w := do(t, r, http.MethodPost, "/posts/create", map[string]any{"user_id": alice, "title": "Hello", "description": "*hi*"})
	expectStatus(t, w, http.StatusCreated)
	postID := decode[idBody](t, w).ID

	w = do(t, r, http.MethodPost, "/posts/"+itoa(postID)+"/vote", map[string]any{"user_id": bob, "value": 1})
	expectStatus(t, w, http.StatusOK)
	res := decode[services.VoteResult](t, w)
	if res.Delta != 1 || res.NewScore != 1 || res.UserVote != 1 {
		t.Errorf("vote result = %+v", res)
	}

	w = do(t, r, http.MethodPost, "/posts/"+itoa(postID)+"/vote", map[string]any{"user_id": bob, "value": -1})
	expectStatus(t, w, http.StatusOK)
	if res := decode[services.VoteResult](t, w); res.Delta != -2 || res.NewScore != -1 {
		t.Errorf("flip result = %+v", res)
	}

	w = do(t, r, http.MethodPost, "/posts/"+itoa(postID)+"/vote", map[string]any{"user_id": bob, "value": 3})
	expectStatus(t, w, http.StatusBadRequest)
	w = do(t, r, http.MethodPost, "/posts/"+itoa(postID)+"/vote", map[string]any{"user_id": bob})
	expectStatus(t, w, http.StatusBadRequest)
	w = do(t, r, http.MethodPost, "/posts/999/vote", map[string]any{"user_id": bob, "value": 1})
	expectStatus(t, w, http.StatusNotFound)

	w = do(t, r, http.MethodGet, "/posts/"+itoa(postID)+"/vote?user_id="+itoa(bob), nil)
	expectStatus(t, w, http.StatusOK)
	if v := decode[services.UserVote](t, w); v.VoteType == nil || *v.VoteType != "down" {
		t.Errorf("user vote = %+v", v)
	}

	w = do(t, r, http.MethodGet, "/posts/get?sortBy=votes&user_id="+itoa(bob), nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[[]services.EnrichedPost](t, w)
	if len(list) != 1 || !list[0].UserVoteDown || list[0].Score != -1 || list[0].DescriptionHTML == "" {
		t.Errorf("list = %+v", list)
	}

	w = do(t, r, http.MethodGet, "/posts/get?limit=abc", nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = do(t, r, http.MethodDelete, "/posts/delete/"+itoa(postID), nil)
	expectStatus(t, w, http.StatusBadRequest)
	w = do(t, r, http.MethodDelete, "/posts/delete/"+itoa(postID)+"?user_id="+itoa(bob), nil)
	expectStatus(t, w, http.StatusForbidden)
	w = do(t, r, http.MethodDelete, "/posts/delete/"+itoa(postID), map[string]any{"user_id": alice})
	expectStatus(t, w, http.StatusOK)
}

func TestCommentAndPollFlow(t *testing.T) {
	r := newTestServer(t)
	alice := signIn(t, r, "alice")
	bob := signIn(t, r, "bob")
	w := do(t, r, http.MethodPost, "/posts/create", map[string]any{"user_id": alice, "title": "Poll time"})
	postID := decode[idBody](t, w).ID

	w = do(t, r, http.MethodPost, "/comments/create", map[string]any{"post_id": postID, "user_id": bob, "content": "hi"})
	expectStatus(t, w, http.StatusCreated)
	commentID := decode[idBody](t, w).ID

	expectStatus(t, do(t, r, http.MethodPost, "/comments/"+itoa(commentID)+"/vote", map[string]any{"user_id": alice}), http.StatusOK)
	expectStatus(t, do(t, r, http.MethodPost, "/comments/"+itoa(commentID)+"/vote", map[string]any{"user_id": alice}), http.StatusConflict)
	expectStatus(t, do(t, r, http.MethodDelete, "/comments/"+itoa(commentID)+"/vote", map[string]any{"user_id": alice}), http.StatusOK)
	expectStatus(t, do(t, r, http.MethodDelete, "/comments/"+itoa(commentID)+"/vote", map[string]any{"user_id": alice}), http.StatusConflict)
	expectStatus(t, do(t, r, http.MethodPut, "/comments/"+itoa(commentID), map[string]any{"user_id": alice, "content": "x"}), http.StatusForbidden)

	w = do(t, r, http.MethodGet, "/comments/post/"+itoa(postID), nil)
	expectStatus(t, w, http.StatusOK)
	if comments := decode[[]services.CommentView](t, w); len(comments) != 1 || comments[0].VoteCount != 0 {
		t.Errorf("comments = %+v", comments)
	}

	w = do(t, r, http.MethodPost, "/polls/create", map[string]any{"post_id": postID, "question": "Pick", "options": []string{"a", "b"}, "allow_new_options": true})
	expectStatus(t, w, http.StatusCreated)
	pollID := decode[struct {
		PollID uint `json:"poll_id"`
	}](t, w).PollID

	w = do(t, r, http.MethodPost, "/polls/"+itoa(pollID)+"/vote", map[string]any{"user_id": bob, "new_option_text": "c"})
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, do(t, r, http.MethodPost, "/polls/"+itoa(pollID)+"/vote", map[string]any{"user_id": bob, "option_id": 1}), http.StatusConflict)

	w = do(t, r, http.MethodPost, "/polls/votes/all", map[string]any{"poll_ids": []uint{pollID}})
	expectStatus(t, w, http.StatusOK)
	if rows := decode[[]services.PollVoterRow](t, w); len(rows) != 1 || rows[0].UserID != bob {
		t.Errorf("voters = %+v", rows)
	}
	expectStatus(t, do(t, r, http.MethodPost, "/polls/votes/all", map[string]any{"poll_ids": []uint{}}), http.StatusBadRequest)

	expectStatus(t, do(t, r, http.MethodDelete, "/polls/"+itoa(pollID)+"/vote", map[string]any{"user_id": bob}), http.StatusOK)
	w = do(t, r, http.MethodGet, "/polls/"+itoa(pollID), nil)
	expectStatus(t, w, http.StatusOK)
	if poll := decode[services.PollView](t, w); len(poll.Options) != 2 {
		t.Errorf("dynamic option not collected: %+v", poll.Options)
	}
}

func TestMediaUpload(t *testing.T) {
	r := newTestServer(t)
	alice := signIn(t, r, "alice")
	w := do(t, r, http.MethodPost, "/posts/create", map[string]any{"user_id": alice, "title": "pics"})
	postID := decode[idBody](t, w).ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "pixel.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/media/upload?post_id="+itoa(postID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusCreated)
	media := decode[struct {
		ID   uint   `json:"id"`
		Type string `json:"type"`
	}](t, w)
	if media.Type != "image" {
		t.Errorf("type = %q", media.Type)
	}

	expectStatus(t, do(t, r, http.MethodPost, "/media/upload", nil), http.StatusBadRequest)
	expectStatus(t, do(t, r, http.MethodDelete, "/media/delete/"+itoa(media.ID), nil), http.StatusOK)
	expectStatus(t, do(t, r, http.MethodDelete, "/media/delete/"+itoa(media.ID), nil), http.StatusNotFound)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestServer(t)
	alice := signIn(t, r, "alice")
	w := do(t, r, http.MethodPost, "/posts/create", map[string]any{"user_id": alice, "title": "spam"})
	postID := decode[idBody](t, w).ID

	expectStatus(t, do(t, r, http.MethodDelete, "/admin/posts/"+itoa(postID), nil), http.StatusUnauthorized)
	expectStatus(t, do(t, r, http.MethodDelete, "/admin/posts/"+itoa(postID), nil, "X-Admin-Token", "wrong"), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodDelete, "/admin/posts/"+itoa(postID), nil, "X-Admin-Token", "admin-secret"), http.StatusOK)
	expectStatus(t, do(t, r, http.MethodDelete, "/admin/posts/"+itoa(postID), nil, "X-Admin-Token", "admin-secret"), http.StatusNotFound)
}

func TestUserAndReportRoutes(t *testing.T) {
	r := newTestServer(t)
	alice := signIn(t, r, "alice")
	bob := signIn(t, r, "bob")

	w := do(t, r, http.MethodPut, "/users/"+itoa(alice), map[string]any{"name": "Alice", "position": "PM"})
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, do(t, r, http.MethodPut, "/users/"+itoa(alice), map[string]any{"name": ""}), http.StatusBadRequest)
	expectStatus(t, do(t, r, http.MethodGet, "/users/999", nil), http.StatusNotFound)
	expectStatus(t, do(t, r, http.MethodGet, "/users/abc", nil), http.StatusBadRequest)

	w = do(t, r, http.MethodPost, "/posts/create", map[string]any{"user_id": alice, "title": "mine"})
	postID := decode[idBody](t, w).ID
	expectStatus(t, do(t, r, http.MethodPost, "/report/post", map[string]any{"post_id": postID, "user_id": bob, "reason": "spam"}), http.StatusCreated)
	expectStatus(t, do(t, r, http.MethodPost, "/report/comment", map[string]any{"user_id": bob}), http.StatusBadRequest)

	w = do(t, r, http.MethodGet, "/users/"+itoa(alice)+"/posts", nil)
	expectStatus(t, w, http.StatusOK)
	if out := decode[services.UserPosts](t, w); out.User.Name != "Alice" || len(out.Posts) != 1 {
		t.Errorf("user posts = %+v", out)
	}

	expectStatus(t, do(t, r, http.MethodDelete, "/users/"+itoa(alice), map[string]any{"user_id": bob}), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodDelete, "/users/"+itoa(alice), map[string]any{"user_id": alice}), http.StatusOK)
	expectStatus(t, do(t, r, http.MethodGet, "/users/"+itoa(alice), nil), http.StatusNotFound)
}

func TestRequestIDAndHealth(t *testing.T) {
	r := newTestServer(t)

	w := do(t, r, http.MethodGet, "/healthz", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated request id")
	}

	w = do(t, r, http.MethodGet, "/healthz", nil, "X-Request-ID", "abc-123")
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want caller's", got)
	}
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
