package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kl2pen/facegate/internal/config"
	"github.com/kl2pen/facegate/internal/identity"
	"github.com/kl2pen/facegate/internal/session"
)

// Service issues and verifies token pairs and owns the session lifecycle
// around them. Every login creates a fresh session whose facial verification
// flag starts false, regardless of whether the same user was verified in an
// earlier session.
type Service struct {
	cfg      config.Config
	idRepo   identity.Repository
	sessions session.Store
}

// NewService builds the auth service.
func NewService(cfg config.Config, idRepo identity.Repository, sessions session.Store) *Service {
	return &Service{cfg: cfg, idRepo: idRepo, sessions: sessions}
}

// TokenPair bundles the issued tokens with session metadata.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

// Login creates a session and signs a token pair for an authenticated user.
func (s *Service) Login(ctx context.Context, user identity.User) (TokenPair, error) {
	sessionID := uuid.NewString()
	if _, err := s.sessions.Create(ctx, sessionID, user.ID); err != nil {
		return TokenPair{}, err
	}

	access, accessExp, err := SignToken(user, sessionID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := SignToken(user, sessionID, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(accessExp).Seconds()),
		SessionID:    sessionID,
	}, nil
}

// Refresh verifies the refresh token and returns a new access token if the
// token version still matches and the session is still alive.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}

	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, errors.New("user not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", 0, errors.New("token version invalidated")
	}
	if _, err := s.sessions.Get(ctx, claims.SessionID); err != nil {
		return "", 0, errors.New("session expired")
	}

	access, _, err := SignToken(user, claims.SessionID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout destroys the session and bumps the token version so outstanding
// tokens are rejected.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID != "" {
		if err := s.sessions.Destroy(ctx, sessionID); err != nil {
			return err
		}
	}
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
