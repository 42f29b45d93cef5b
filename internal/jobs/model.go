package jobs

import "time"

// Job is a posted job listing.
type Job struct {
	ID          string
	PosterID    string
	Title       string
	Company     string
	Location    string
	Description string
	Status      string
	CreatedAt   time.Time
}

// Application records one user's application to one job.
type Application struct {
	ID          string
	JobID       string
	ApplicantID string
	CoverNote   string
	CreatedAt   time.Time
}
