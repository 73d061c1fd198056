package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/auth"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

type stubSessions struct {
	ok  bool
	err error
}

func (s stubSessions) HasAccessSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, nil, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, nil, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsActor(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	partyID := uuid.New()
	token := mintTestToken(t, cfg, enums.ActorRoleSupplier, &partyID)

	var captured actor.Actor
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		act, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		captured = act
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Role != enums.ActorRoleSupplier {
		t.Fatalf("expected supplier role got %s", captured.Role)
	}
	if captured.PartyID != partyID {
		t.Fatalf("expected party %s got %s", partyID, captured.PartyID)
	}
	if captured.UserID == uuid.Nil {
		t.Fatal("expected user id on actor")
	}
}

func TestAuthAllowsAdminWithoutParty(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token := mintTestToken(t, cfg, enums.ActorRoleAdmin, nil)

	var role string
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if role != string(enums.ActorRoleAdmin) {
		t.Fatalf("expected admin role got %s", role)
	}
}

func TestAuthConsultsSessions(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	partyID := uuid.New()
	token := mintTestToken(t, cfg, enums.ActorRoleDropshipper, &partyID)

	cases := []struct {
		name     string
		sessions stubSessions
		want     int
	}{
		{"active", stubSessions{ok: true}, http.StatusOK},
		{"revoked", stubSessions{ok: false}, http.StatusUnauthorized},
		{"store down", stubSessions{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		handler := Auth(cfg, tc.sessions, nil)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.ActorRoleAdmin)(okHandler())

	cases := []struct {
		name string
		ctx  func(context.Context) context.Context
		want int
	}{
		{"no actor", func(ctx context.Context) context.Context { return ctx }, http.StatusUnauthorized},
		{"supplier", func(ctx context.Context) context.Context {
			return WithActor(ctx, actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleSupplier})
		}, http.StatusForbidden},
		{"admin", func(ctx context.Context) context.Context { return WithActor(ctx, actor.Admin(uuid.New())) }, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(tc.ctx(req.Context()))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.ActorRole, partyID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:  uuid.New(),
		PartyID: partyID,
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
