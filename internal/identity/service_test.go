package identity

import (
	"context"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, Credentials{Email: "ada@example.com", Password: "correct-horse", Name: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.TokenVersion != 0 {
		t.Fatalf("expected fresh token version, got %d", user.TokenVersion)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "Ada@Example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}
	if authed.LastLogin.IsZero() {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "bob@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "bob@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestInvalidateTokens(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "eve@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.InvalidateTokens(ctx, user.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	updated, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.TokenVersion != 1 {
		t.Fatalf("expected token version 1, got %d", updated.TokenVersion)
	}
}
