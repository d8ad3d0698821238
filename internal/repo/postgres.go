// Package repo is the optional ingestion-audit store. It records what was
// ingested and when; the analytics path never reads from it.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open connects and pings. Callers treat a nil *Repository as "auditing
// disabled", so failures here are surfaced rather than made fatal.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, err
	}
	return &DB{Pool: pool, log: logger}, nil
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, logger zerolog.Logger) *Repository {
	return &Repository{db: d, log: logger}
}

type UploadRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	TotalIssues int       `json:"total_issues"`
	SkippedRows int       `json:"skipped_rows"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// RecordUpload stores one upload audit row.
func (r *Repository) RecordUpload(ctx context.Context, filename string, totalIssues, skipped int) error {
	const q = `INSERT INTO uploads(id, filename, total_issues, skipped_rows, uploaded_at)
		VALUES($1,$2,$3,$4,now())`
	_, err := r.db.Pool.Exec(ctx, q, uuid.NewString(), filename, totalIssues, skipped)
	return err
}

// RecordConnection stores one tracker-connection audit row. The API token
// is never written.
func (r *Repository) RecordConnection(ctx context.Context, jiraURL, email string) error {
	const q = `INSERT INTO jira_connections(id, jira_url, email, connected_at)
		VALUES($1,$2,$3,now())`
	_, err := r.db.Pool.Exec(ctx, q, uuid.NewString(), jiraURL, email)
	return err
}

// LastUpload returns the most recent upload audit row.
func (r *Repository) LastUpload(ctx context.Context) (*UploadRecord, error) {
	const q = `SELECT id, filename, total_issues, skipped_rows, uploaded_at
		FROM uploads ORDER BY uploaded_at DESC LIMIT 1`
	rec := &UploadRecord{}
	row := r.db.Pool.QueryRow(ctx, q)
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.TotalIssues, &rec.SkippedRows, &rec.UploadedAt); err != nil {
		return nil, err
	}
	return rec, nil
}
