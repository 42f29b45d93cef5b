package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const statusOpen = "open"

// Service exposes job-board operations.
type Service struct {
	repo Repository
}

// NewService builds a job service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PostInput captures data required to post a listing.
type PostInput struct {
	PosterID    string
	Title       string
	Company     string
	Location    string
	Description string
}

// Post creates a new open job listing.
func (s *Service) Post(ctx context.Context, input PostInput) (Job, error) {
	if strings.TrimSpace(input.Title) == "" {
		return Job{}, errors.New("title is required")
	}
	if strings.TrimSpace(input.Company) == "" {
		return Job{}, errors.New("company is required")
	}

	job := Job{
		ID:          uuid.NewString(),
		PosterID:    input.PosterID,
		Title:       strings.TrimSpace(input.Title),
		Company:     strings.TrimSpace(input.Company),
		Location:    strings.TrimSpace(input.Location),
		Description: input.Description,
		Status:      statusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Get fetches a single listing.
func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.repo.GetJob(ctx, id)
}

// List returns open listings, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListJobs(ctx, limit)
}

// Apply records an application; a user can apply to a job only once.
func (s *Service) Apply(ctx context.Context, jobID, applicantID, coverNote string) (Application, error) {
	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return Application{}, err
	}

	app := Application{
		ID:          uuid.NewString(),
		JobID:       jobID,
		ApplicantID: applicantID,
		CoverNote:   coverNote,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Applications lists the user's applications, newest first.
func (s *Service) Applications(ctx context.Context, applicantID string) ([]Application, error) {
	return s.repo.ListApplications(ctx, applicantID)
}
