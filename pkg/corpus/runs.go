package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Run records one generation: the parameters it was made with and its output.
// Seed is nil for runs drawn from an entropy-seeded source.
type Run struct {
	ID           string    `json:"id"`
	Corpus       string    `json:"corpus"`
	WindowLength int       `json:"window_length"`
	Seed         *int64    `json:"seed,omitempty"`
	SeedText     string    `json:"seed_text"`
	Length       int       `json:"length"`
	TotalLength  bool      `json:"total_length"`
	Output       string    `json:"output"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordRun stores a run, assigning it a new ID and timestamp, and returns
// the stored copy.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	var seed sql.NullInt64
	if run.Seed != nil {
		seed = sql.NullInt64{Int64: *run.Seed, Valid: true}
	}

	_, err := s.stmtInsertRun.ExecContext(ctx,
		run.ID, run.Corpus, run.WindowLength, seed, run.SeedText,
		run.Length, run.TotalLength, run.Output, run.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("could not record run for corpus '%s': %w", run.Corpus, err)
	}

	s.logger.DebugContext(ctx, "Run recorded",
		slog.String("run_id", run.ID),
		slog.String("corpus_name", run.Corpus),
		slog.Int("window_length", run.WindowLength),
	)
	return run, nil
}

// ListRuns returns the most recent runs first. An empty corpus name lists
// runs of every corpus; a limit of zero or less lists all of them.
func (s *Store) ListRuns(ctx context.Context, corpusName string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.stmtListRuns.QueryContext(ctx, corpusName, corpusName, limit)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var seed sql.NullInt64
		var created string
		err = rows.Scan(&run.ID, &run.Corpus, &run.WindowLength, &seed, &run.SeedText,
			&run.Length, &run.TotalLength, &run.Output, &created)
		if err != nil {
			return nil, err
		}
		if seed.Valid {
			v := seed.Int64
			run.Seed = &v
		}
		if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("invalid created_at for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
