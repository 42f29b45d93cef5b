package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no job matches the identifier.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyApplied is returned when the user already applied to the job.
	ErrAlreadyApplied = errors.New("already applied to this job")
)

// Repository persists jobs and applications.
type Repository interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	ListJobs(ctx context.Context, limit int) ([]Job, error)
	CreateApplication(ctx context.Context, app Application) error
	ListApplications(ctx context.Context, applicantID string) ([]Application, error)
}

// PostgresRepository stores jobs in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateJob(ctx context.Context, job Job) error {
	jobID, err := uuid.Parse(job.ID)
	if err != nil {
		return err
	}
	posterID, err := uuid.Parse(job.PosterID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO jobs (id, poster_id, title, company, location, description, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		jobID, posterID, job.Title, job.Company, job.Location, job.Description, job.Status, job.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) GetJob(ctx context.Context, id string) (Job, error) {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return Job{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, poster_id, title, company, location, description, status, created_at
        FROM jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

func (r *PostgresRepository) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.db.Query(ctx, `SELECT id, poster_id, title, company, location, description, status, created_at
        FROM jobs WHERE status = 'open' ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateApplication(ctx context.Context, app Application) error {
	appID, err := uuid.Parse(app.ID)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(app.JobID)
	if err != nil {
		return err
	}
	applicantID, err := uuid.Parse(app.ApplicantID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO job_applications (id, job_id, applicant_id, cover_note, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (job_id, applicant_id) DO NOTHING`,
		appID, jobID, applicantID, app.CoverNote, app.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyApplied
	}
	return nil
}

func (r *PostgresRepository) ListApplications(ctx context.Context, applicantID string) ([]Application, error) {
	id, err := uuid.Parse(applicantID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, job_id, applicant_id, cover_note, created_at
        FROM job_applications WHERE applicant_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		var (
			app                 Application
			appID, jobID, appli uuid.UUID
			createdAt           time.Time
		)
		if err := rows.Scan(&appID, &jobID, &appli, &app.CoverNote, &createdAt); err != nil {
			return nil, err
		}
		app.ID = appID.String()
		app.JobID = jobID.String()
		app.ApplicantID = appli.String()
		app.CreatedAt = createdAt.UTC()
		out = append(out, app)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job             Job
		jobID, posterID uuid.UUID
		createdAt       time.Time
	)
	if err := row.Scan(&jobID, &posterID, &job.Title, &job.Company, &job.Location, &job.Description, &job.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	job.ID = jobID.String()
	job.PosterID = posterID.String()
	job.CreatedAt = createdAt.UTC()
	return job, nil
}
