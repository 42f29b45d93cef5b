package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service exposes enrollment operations to the gate and the capture flow.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds an enrollment service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// HasEnrollment reports whether the user has a stored reference embedding.
// Lookup failures are logged and reported as (false, err): the gate fails
// closed and treats the user as not enrolled, never as clear.
func (s *Service) HasEnrollment(ctx context.Context, userID string) (bool, error) {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		s.logger.Error("enrollment lookup failed", "user_id", userID, "error", err)
		return false, err
	}
	return exists, nil
}

// Reference fetches the stored embedding for verification.
func (s *Service) Reference(ctx context.Context, userID string) (Record, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotEnrolled) {
			return Record{}, ErrNotEnrolled
		}
		return Record{}, fmt.Errorf("fetch enrollment: %w", err)
	}
	return record, nil
}

// Store saves the reference embedding, replacing any previous enrollment.
func (s *Service) Store(ctx context.Context, userID string, embedding []float64) error {
	if len(embedding) == 0 {
		return errors.New("embedding must not be empty")
	}
	return s.repo.Upsert(ctx, Record{UserID: userID, Embedding: embedding})
}
