package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ingest status values.
const (
	IngestStatusQueued     = "queued"
	IngestStatusProcessing = "processing"
	IngestStatusCompleted  = "completed"
	IngestStatusFailed     = "failed"
)

// Per-email result status values.
const (
	EmailStatusSucceeded = "succeeded"
	EmailStatusFailed    = "failed"
)

// ErrIngestNotFound is returned when no ingest exists for the given id.
var ErrIngestNotFound = errors.New("ingest not found")

// Ingest is one uploaded corpus and its processing state.
type Ingest struct {
	ID             string    `json:"id"`
	FileKey        string    `json:"fileKey"`
	FileName       string    `json:"fileName"`
	Status         string    `json:"status"`
	EmailCount     int       `json:"emailCount"`
	SucceededCount int       `json:"succeededCount"`
	Error          *string   `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IngestEmail is the recorded outcome for one email of an ingest.
type IngestEmail struct {
	EmailID string  `json:"emailId"`
	Subject string  `json:"subject"`
	Status  string  `json:"status"`
	Error   *string `json:"error,omitempty"`
}

// CreateIngest records a freshly uploaded corpus in the queued state.
func CreateIngest(ctx context.Context, pool *pgxpool.Pool, id string, fileKey string, fileName string) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO ingests (id, file_key, file_name, status) VALUES ($1, $2, $3, $4)`,
		id, fileKey, fileName, IngestStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("failed to create ingest: %w", err)
	}
	return nil
}

// MarkIngestProcessing transitions an ingest to the processing state and
// records how many emails the corpus split into.
func MarkIngestProcessing(ctx context.Context, pool *pgxpool.Pool, id string, emailCount int) error {
	_, err := pool.Exec(ctx,
		`UPDATE ingests SET status = $2, email_count = $3, updated_at = now() WHERE id = $1`,
		id, IngestStatusProcessing, emailCount,
	)
	if err != nil {
		return fmt.Errorf("failed to mark ingest processing: %w", err)
	}
	return nil
}

// RecordEmailResult stores the outcome for one email of an ingest.
func RecordEmailResult(ctx context.Context, pool *pgxpool.Pool, ingestID string, emailID string, subject string, status string, procErr error) error {
	var errText *string
	if procErr != nil {
		s := procErr.Error()
		errText = &s
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO ingest_emails (ingest_id, email_id, subject, status, error) VALUES ($1, $2, $3, $4, $5)`,
		ingestID, emailID, subject, status, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record email result: %w", err)
	}
	return nil
}

// CompleteIngest marks the ingest finished with its final success tally.
func CompleteIngest(ctx context.Context, pool *pgxpool.Pool, id string, succeeded int) error {
	_, err := pool.Exec(ctx,
		`UPDATE ingests SET status = $2, succeeded_count = $3, updated_at = now() WHERE id = $1`,
		id, IngestStatusCompleted, succeeded,
	)
	if err != nil {
		return fmt.Errorf("failed to complete ingest: %w", err)
	}
	return nil
}

// FailIngest marks the ingest failed with the terminal error.
func FailIngest(ctx context.Context, pool *pgxpool.Pool, id string, cause error) error {
	var errText *string
	if cause != nil {
		s := cause.Error()
		errText = &s
	}
	_, err := pool.Exec(ctx,
		`UPDATE ingests SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, IngestStatusFailed, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to fail ingest: %w", err)
	}
	return nil
}

// GetIngest loads an ingest and its per-email results.
func GetIngest(ctx context.Context, pool *pgxpool.Pool, id string) (*Ingest, []IngestEmail, error) {
	var ingest Ingest
	err := pool.QueryRow(ctx,
		`SELECT id, file_key, file_name, status, email_count, succeeded_count, error, created_at, updated_at
		 FROM ingests WHERE id = $1`,
		id,
	).Scan(
		&ingest.ID, &ingest.FileKey, &ingest.FileName, &ingest.Status,
		&ingest.EmailCount, &ingest.SucceededCount, &ingest.Error,
		&ingest.CreatedAt, &ingest.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrIngestNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ingest: %w", err)
	}

	rows, err := pool.Query(ctx,
		`SELECT email_id, subject, status, error FROM ingest_emails WHERE ingest_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ingest emails: %w", err)
	}
	defer rows.Close()

	emails := make([]IngestEmail, 0)
	for rows.Next() {
		var e IngestEmail
		if err := rows.Scan(&e.EmailID, &e.Subject, &e.Status, &e.Error); err != nil {
			return nil, nil, fmt.Errorf("failed to scan ingest email: %w", err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read ingest emails: %w", err)
	}
	return &ingest, emails, nil
}
