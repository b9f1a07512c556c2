package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type fakeIdP struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	deletes     []string
	expiresIn   int
	deleteState int
}

func newFakeIdP(t *testing.T, expiresIn int) *fakeIdP {
	t.Helper()
	f := &fakeIdP{expiresIn: expiresIn, deleteState: http.StatusNoContent}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		if r.FormValue("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.FormValue("grant_type"))
		}
		if r.FormValue("client_id") != "cid" || r.FormValue("client_secret") != "secret" {
			t.Errorf("unexpected client credentials")
		}
		if r.FormValue("audience") != f.server.URL+"/api/v2/" {
			t.Errorf("audience = %q", r.FormValue("audience"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   f.expiresIn,
		})
	})
	mux.HandleFunc("DELETE /api/v2/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got == "" {
			t.Errorf("missing Authorization header")
		}
		f.deletes = append(f.deletes, r.PathValue("id"))
		w.WriteHeader(f.deleteState)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIdP) client() *ManagementClient {
	return NewManagementClient(IdentityConfig{
		BaseURL:      f.server.URL,
		ClientID:     "cid",
		ClientSecret: "secret",
	})
}

func TestManagementClientReusesToken(t *testing.T) {
	idp := newFakeIdP(t, 3600)
	c := idp.client()
	ctx := context.Background()

	for _, id := range []string{"auth0|one", "auth0|two", "auth0|three"} {
		if err := c.DeleteUser(ctx, id); err != nil {
			t.Fatalf("DeleteUser(%s): %v", id, err)
		}
	}
	if n := idp.tokenCalls.Load(); n != 1 {
		t.Errorf("token fetched %d times, want 1", n)
	}
	if len(idp.deletes) != 3 || idp.deletes[0] != "auth0|one" {
		t.Errorf("deletes = %v", idp.deletes)
	}
}

func TestManagementClientRefreshesExpiredToken(t *testing.T) {
	// 有效期短于 oauth2 的提前刷新窗口，每次都要重新取
	idp := newFakeIdP(t, 1)
	c := idp.client()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.DeleteUser(ctx, "auth0|x"); err != nil {
			t.Fatal(err)
		}
	}
	if n := idp.tokenCalls.Load(); n != 2 {
		t.Errorf("token fetched %d times, want 2", n)
	}
}

func TestManagementClientStatuses(t *testing.T) {
	idp := newFakeIdP(t, 3600)
	c := idp.client()
	ctx := context.Background()

	idp.deleteState = http.StatusNotFound
	if err := c.DeleteUser(ctx, "auth0|gone"); err != nil {
		t.Errorf("404 should count as deleted: %v", err)
	}

	idp.deleteState = http.StatusInternalServerError
	if err := c.DeleteUser(ctx, "auth0|broken"); err == nil {
		t.Error("expected an error for a 500 response")
	}

	wantKind(t, c.DeleteUser(ctx, ""), KindValidation)
}
