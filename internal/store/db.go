package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

// Store is the optional Postgres backend: it archives harvested posts per
// run and holds the subscriber list. The pipeline runs file-only when no
// DSN is configured.
type Store struct {
	db *sql.DB
}

func Open(dsn, migrationsDir string) (*Store, error) {

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the DB: %w", err)
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.EnsureDBVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to get DB version: %w", err)
	}
	logrus.Infof("Migrations applied successfully. Current DB version: %d", version)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SavePosts archives one run's harvest. Failures here are reported but the
// caller treats the archive as best-effort: the CSV export is the primary
// sink.
func (s *Store) SavePosts(ctx context.Context, runID uuid.UUID, records []feed.PostRecord) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (
			id, run_id, archived_at, author_name, author_handle, posted_at,
			lang, permalink, content, is_repost, media_type, thread_number, week_group
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			uuid.New(), runID, now, r.AuthorName, r.AuthorHandle, r.Timestamp,
			sql.NullString{String: r.Lang, Valid: r.Lang != ""},
			sql.NullString{String: r.Permalink, Valid: r.Permalink != ""},
			r.Text, r.IsRepost, string(r.Media), r.ThreadID, r.PeriodGroup,
		)
		if err != nil {
			return fmt.Errorf("failed to archive post: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListSubscribers(ctx context.Context) ([]string, error) {

	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM subscribers WHERE unsubscribed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (s *Store) AddSubscriber(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET unsubscribed_at = NULL`,
		uuid.New(), email, time.Now())
	return err
}

func (s *Store) RemoveSubscriber(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET unsubscribed_at = $1 WHERE email = $2`,
		time.Now(), email)
	return err
}
