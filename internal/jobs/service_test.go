package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestPostAndList(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	poster := uuid.NewString()

	job, err := svc.Post(ctx, PostInput{PosterID: poster, Title: "Backend Engineer", Company: "Acme"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if job.Status != "open" {
		t.Fatalf("expected open status, got %s", job.Status)
	}

	listed, err := svc.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != job.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}
}

func TestPostRequiresTitle(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Post(context.Background(), PostInput{PosterID: uuid.NewString(), Company: "Acme"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestApplyOncePerJob(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	job, err := svc.Post(ctx, PostInput{PosterID: uuid.NewString(), Title: "QA", Company: "Acme"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	applicant := uuid.NewString()
	if _, err := svc.Apply(ctx, job.ID, applicant, "hello"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.Apply(ctx, job.ID, applicant, "again"); err != ErrAlreadyApplied {
		t.Fatalf("expected ErrAlreadyApplied, got %v", err)
	}

	apps, err := svc.Applications(ctx, applicant)
	if err != nil {
		t.Fatalf("applications: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("expected one application, got %d", len(apps))
	}
}

func TestApplyToMissingJob(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Apply(context.Background(), uuid.NewString(), uuid.NewString(), ""); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
