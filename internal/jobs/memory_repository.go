package jobs

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu           sync.RWMutex
	jobs         map[string]Job
	applications map[string]Application
}

// NewMemoryRepository builds an in-memory job store for development and testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		jobs:         make(map[string]Job),
		applications: make(map[string]Application),
	}
}

func (r *memoryRepository) CreateJob(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *memoryRepository) GetJob(_ context.Context, id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (r *memoryRepository) ListJobs(_ context.Context, limit int) ([]Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.Status == "open" {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) CreateApplication(_ context.Context, app Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.applications {
		if existing.JobID == app.JobID && existing.ApplicantID == app.ApplicantID {
			return ErrAlreadyApplied
		}
	}
	r.applications[app.ID] = app
	return nil
}

func (r *memoryRepository) ListApplications(_ context.Context, applicantID string) ([]Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Application
	for _, app := range r.applications {
		if app.ApplicantID == applicantID {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
