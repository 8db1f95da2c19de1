//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"guild-registration-bot/internal/domain/model"
	"guild-registration-bot/internal/infra/chat"
	"guild-registration-bot/internal/infra/store"
)

func testServer(t *testing.T) (*Server, *AuthManager, *chat.MemoryGateway) {
	t.Helper()
	logger := zerolog.Nop()
	gw := chat.NewMemoryGateway()
	t.Cleanup(gw.Close)
	gw.AddGuild("g1", "Test Guild")

	configs := store.NewMessageConfigRepo(gw, store.DefaultDataCategory, &logger)
	adminRoles := store.NewMessageAdminRepo(gw, store.DefaultDataCategory, &logger)
	auth := NewAuthManager("test-secret", time.Minute)
	return NewServer(configs, adminRoles, auth, &logger), auth, gw
}

func seedRecord(t *testing.T, gw *chat.MemoryGateway) {
	t.Helper()
	logger := zerolog.Nop()
	configs := store.NewMessageConfigRepo(gw, store.DefaultDataCategory, &logger)
	cfg, err := model.NewRegistrationConfig("100", "200", model.ModeManual)
	if err != nil {
		t.Fatal(err)
	}
	q, err := model.NewQuestion("Name?", model.KindText, model.ActionNickChange, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.AddQuestion(q)
	if err := configs.Save(context.Background(), "g1", cfg); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, handler http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	srv, _, _ := testServer(t)
	handler := srv.Routes()

	if rec := get(t, handler, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := get(t, handler, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
}

func TestAPIAuth(t *testing.T) {
	srv, auth, _ := testServer(t)
	handler := srv.Routes()

	t.Run("missing token", func(t *testing.T) {
		if rec := get(t, handler, "/api/v1/guilds/g1/admin-roles", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if rec := get(t, handler, "/api/v1/guilds/g1/admin-roles", "not.a.jwt"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthManager("other-secret", time.Minute)
		token, err := other.Mint()
		if err != nil {
			t.Fatal(err)
		}
		if rec := get(t, handler, "/api/v1/guilds/g1/admin-roles", token); rec.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.Mint()
		if err != nil {
			t.Fatal(err)
		}
		if rec := get(t, handler, "/api/v1/guilds/g1/admin-roles", token); rec.Code != http.StatusOK {
			t.Fatalf("code = %d", rec.Code)
		}
	})
}

func TestRegistrationEndpoint(t *testing.T) {
	srv, auth, gw := testServer(t)
	handler := srv.Routes()
	token, err := auth.Mint()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("missing record is 404", func(t *testing.T) {
		if rec := get(t, handler, "/api/v1/guilds/g1/registration", token); rec.Code != http.StatusNotFound {
			t.Fatalf("code = %d", rec.Code)
		}
	})

	t.Run("returns the record view", func(t *testing.T) {
		seedRecord(t, gw)
		rec := get(t, handler, "/api/v1/guilds/g1/registration", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var view registrationView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatal(err)
		}
		if view.Mode != "Manual" || len(view.Questions) != 1 || view.Questions[0].Number != 1 {
			t.Fatalf("view = %+v", view)
		}
	})
}

func TestAdminRolesEndpoint(t *testing.T) {
	srv, auth, gw := testServer(t)
	handler := srv.Routes()
	token, err := auth.Mint()
	if err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	adminRoles := store.NewMessageAdminRepo(gw, store.DefaultDataCategory, &logger)
	if err := adminRoles.Write(context.Background(), "g1", []string{"31", "32"}); err != nil {
		t.Fatal(err)
	}

	rec := get(t, handler, "/api/v1/guilds/g1/admin-roles", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp struct {
		GuildID string   `json:"guild_id"`
		RoleIDs []string `json:"role_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.GuildID != "g1" || len(resp.RoleIDs) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
}
