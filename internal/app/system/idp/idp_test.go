package idp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comptoirhq/comptoir/internal/app/system/idp"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *idp.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return idp.New(idp.Config{
		BaseURL:    srv.URL,
		ServiceKey: "service-key",
		HTTPClient: srv.Client(),
	}, zap.NewNop())
}

func TestUserFromToken_OK(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer caller-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "service-key" {
			t.Errorf("apikey = %q", got)
		}
		_ = json.NewEncoder(w).Encode(idp.Identity{
			ID: "u1", Email: "u1@example.com", Name: "User One", EmailConfirmedAt: &now,
		})
	})

	id, err := c.UserFromToken(context.Background(), "caller-token")
	if err != nil {
		t.Fatalf("UserFromToken: %v", err)
	}
	if id.ID != "u1" || !id.Confirmed() {
		t.Errorf("identity = %+v", id)
	}
}

func TestUserFromToken_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.UserFromToken(context.Background(), "bad")
	if !errors.Is(err, idp.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCreateUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/admin/users" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("Authorization = %q, want static service key", got)
		}

		var p idp.CreateUserParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode params: %v", err)
		}
		if !p.EmailConfirm {
			t.Error("email_confirm not set, account would need a confirmation round-trip")
		}
		_ = json.NewEncoder(w).Encode(idp.Identity{ID: "new-user", Email: p.Email, Name: p.Name})
	})

	id, err := c.CreateUser(context.Background(), idp.CreateUserParams{
		Email: "nina@example.com", Password: "pw", Name: "Nina", EmailConfirm: true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id.ID != "new-user" {
		t.Errorf("id = %q", id.ID)
	}
}

func TestListUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"id":"a"},{"id":"b"}]}`))
	})

	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].ID != "a" {
		t.Errorf("users = %+v", users)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.DeleteUser(context.Background(), "ghost")
	if !errors.Is(err, idp.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAdminDo_UpstreamErrorIncludesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("database exploded"))
	})

	_, err := c.ListUsers(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !contains(err.Error(), "500") || !contains(err.Error(), "database exploded") {
		t.Errorf("err = %q, want status and body", err.Error())
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
