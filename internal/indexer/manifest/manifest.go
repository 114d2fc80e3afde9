// Package manifest records every published index file in PostgreSQL so
// operators can tell which build a searcher is serving and how it was made.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/resilience"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS index_builds (
		id          BIGSERIAL PRIMARY KEY,
		path        TEXT        NOT NULL,
		checksum    BIGINT      NOT NULL,
		source      TEXT        NOT NULL,
		analyzer    TEXT        NOT NULL,
		tf_scheme   TEXT        NOT NULL,
		documents   INTEGER     NOT NULL,
		terms       INTEGER     NOT NULL,
		postings    INTEGER     NOT NULL,
		skipped     INTEGER     NOT NULL,
		duration_ms BIGINT      NOT NULL,
		current     BOOLEAN     NOT NULL DEFAULT TRUE,
		built_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_index_builds_path_current ON index_builds (path, current)`,
}

// ErrNotFound is returned by Current when no build has been recorded for a
// path.
var ErrNotFound = errors.New("no build recorded")

// Build is one row of index_builds.
type Build struct {
	ID        int64
	Path      string
	Checksum  uint32
	Source    string
	Analyzer  string
	TFScheme  string
	Documents int
	Terms     int
	Postings  int
	Skipped   int
	Duration  time.Duration
	BuiltAt   time.Time
}

type Recorder struct {
	client *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func New(client *postgres.Client) *Recorder {
	return &Recorder{
		client: client,
		retry:  resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
		logger: slog.Default().With("component", "manifest"),
	}
}

// Migrate creates the index_builds table if it does not exist.
func (r *Recorder) Migrate(ctx context.Context) error {
	return r.client.Migrate(ctx, schema...)
}

// Record inserts b as the current build for its path and marks earlier
// builds of the same path as superseded. Transient failures are retried.
func (r *Recorder) Record(ctx context.Context, b Build) (int64, error) {
	var id int64
	err := resilience.Retry(ctx, "manifest-record", r.retry, func() error {
		return r.client.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`UPDATE index_builds SET current = FALSE WHERE path = $1 AND current`,
				b.Path,
			); err != nil {
				return fmt.Errorf("superseding previous builds: %w", err)
			}
			return tx.QueryRowContext(ctx,
				`INSERT INTO index_builds
					(path, checksum, source, analyzer, tf_scheme, documents, terms, postings, skipped, duration_ms)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				 RETURNING id`,
				b.Path, int64(b.Checksum), b.Source, b.Analyzer, b.TFScheme,
				b.Documents, b.Terms, b.Postings, b.Skipped, b.Duration.Milliseconds(),
			).Scan(&id)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("recording build of %s: %w", b.Path, err)
	}
	r.logger.Info("build recorded", "id", id, "path", b.Path, "checksum", b.Checksum)
	return id, nil
}

// Current returns the most recent build recorded for path.
func (r *Recorder) Current(ctx context.Context, path string) (Build, error) {
	var (
		b        Build
		checksum int64
		ms       int64
	)
	err := r.client.DB.QueryRowContext(ctx,
		`SELECT id, path, checksum, source, analyzer, tf_scheme, documents, terms, postings, skipped, duration_ms, built_at
		   FROM index_builds
		  WHERE path = $1 AND current
		  ORDER BY id DESC
		  LIMIT 1`,
		path,
	).Scan(&b.ID, &b.Path, &checksum, &b.Source, &b.Analyzer, &b.TFScheme,
		&b.Documents, &b.Terms, &b.Postings, &b.Skipped, &ms, &b.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("%w for %s", ErrNotFound, path)
	}
	if err != nil {
		return Build{}, fmt.Errorf("querying current build: %w", err)
	}
	b.Checksum = uint32(checksum)
	b.Duration = time.Duration(ms) * time.Millisecond
	return b, nil
}
