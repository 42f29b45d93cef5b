package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotEnrolled is returned when the user has no stored face embedding.
var ErrNotEnrolled = errors.New("user not enrolled")

// Repository persists face enrollments.
type Repository interface {
	// Upsert stores the embedding, replacing any previous enrollment.
	Upsert(ctx context.Context, record Record) error
	Get(ctx context.Context, userID string) (Record, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// PostgresRepository stores enrollments in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, record Record) error {
	userID, err := uuid.Parse(record.UserID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, `INSERT INTO face_enrollments (user_id, embedding, created_at, updated_at)
        VALUES ($1, $2, $3, $3)
        ON CONFLICT (user_id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at`,
		userID, record.Embedding, now)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (Record, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Record{}, ErrNotEnrolled
	}
	row := r.db.QueryRow(ctx, `SELECT user_id, embedding, created_at, updated_at
        FROM face_enrollments WHERE user_id = $1`, id)

	var (
		record Record
		uid    uuid.UUID
	)
	if err := row.Scan(&uid, &record.Embedding, &record.CreatedAt, &record.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotEnrolled
		}
		return Record{}, err
	}
	record.UserID = uid.String()
	return record, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM face_enrollments WHERE user_id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
