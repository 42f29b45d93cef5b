package auth

import (
	"context"
	"testing"
	"time"

	"github.com/kl2pen/facegate/internal/config"
	"github.com/kl2pen/facegate/internal/identity"
	"github.com/kl2pen/facegate/internal/session"
)

func testService(t *testing.T) (*Service, identity.Repository, session.Store) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:       "test-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	repo := identity.NewMemoryRepository()
	sessions := session.NewMemoryStore()
	return NewService(cfg, repo, sessions), repo, sessions
}

func registerUser(t *testing.T, repo identity.Repository) identity.User {
	t.Helper()
	ids := identity.NewService(repo)
	user, err := ids.Register(context.Background(), identity.Credentials{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
		Name:     "Ana",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestLoginCreatesUnverifiedSession(t *testing.T) {
	svc, repo, sessions := testService(t)
	user := registerUser(t, repo)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.SessionID == "" {
		t.Fatalf("incomplete token pair %+v", pair)
	}

	state, err := sessions.Get(ctx, pair.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	// A fresh login must never inherit verification from an earlier session.
	if state.Verified {
		t.Fatal("new session must start unverified")
	}

	claims, err := ParseToken(pair.AccessToken, "test-secret")
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.SessionID != pair.SessionID || claims.Subject != user.ID {
		t.Fatalf("claims do not match session, got %+v", claims)
	}
}

func TestRefreshRejectsBumpedTokenVersion(t *testing.T) {
	svc, repo, _ := testService(t)
	user := registerUser(t, repo)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh before invalidation: %v", err)
	}

	if err := repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1); err != nil {
		t.Fatalf("bump token version: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("refresh must fail after token version bump")
	}
}

func TestLogoutDestroysSessionAndInvalidatesTokens(t *testing.T) {
	svc, repo, sessions := testService(t)
	user := registerUser(t, repo)
	ctx := context.Background()

	pair, err := svc.Login(ctx, user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, user.ID, pair.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := sessions.Get(ctx, pair.SessionID); err == nil {
		t.Fatal("session must be destroyed on logout")
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("refresh token must be rejected after logout")
	}
	fresh, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", fresh.TokenVersion)
	}
}
