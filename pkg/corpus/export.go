package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// ExportedCorpus is the serializable form of a corpus and its run history,
// used for JSON-based import and export.
type ExportedCorpus struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Runs []Run  `json:"runs,omitempty"`
}

// ExportCorpus writes a corpus and its runs as indented JSON to w.
func (s *Store) ExportCorpus(ctx context.Context, name string, w io.Writer) error {
	text, err := s.Text(ctx, name)
	if err != nil {
		return err
	}
	runs, err := s.ListRuns(ctx, name, 0)
	if err != nil {
		return fmt.Errorf("could not query runs for export: %w", err)
	}

	exported := ExportedCorpus{Name: name, Text: text, Runs: runs}

	s.logger.InfoContext(ctx, "Corpus exported",
		slog.String("corpus_name", name),
		slog.Int("runs_exported", len(runs)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportCorpus reads a JSON corpus from r. An existing corpus of the same name
// has its text replaced; imported runs keep their IDs and are skipped if
// already present. The whole import is a single transaction.
func (s *Store) ImportCorpus(ctx context.Context, r io.Reader) (Info, error) {
	var imported ExportedCorpus
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return Info{}, fmt.Errorf("failed to decode json corpus: %w", err)
	}
	if imported.Name == "" {
		return Info{}, ErrInvalidName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err = writeCorpus(ctx, tx.StmtContext(ctx, s.stmtUpsertCorpus), imported.Name, imported.Text); err != nil {
		return Info{}, err
	}

	stmtInsertRun, err := tx.PrepareContext(ctx, `INSERT INTO generation_runs (run_id, corpus_name, window_length, seed, seed_text, target_length, total_length, output, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(run_id) DO NOTHING;`)
	if err != nil {
		return Info{}, fmt.Errorf("failed to prepare run insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertRun)

	for _, run := range imported.Runs {
		if run.ID == "" {
			run.ID = uuid.NewString()
		}
		var seed sql.NullInt64
		if run.Seed != nil {
			seed = sql.NullInt64{Int64: *run.Seed, Valid: true}
		}
		_, err = stmtInsertRun.ExecContext(ctx, run.ID, imported.Name, run.WindowLength, seed, run.SeedText,
			run.Length, run.TotalLength, run.Output, run.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return Info{}, fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return Info{}, err
	}

	s.logger.InfoContext(ctx, "Corpus imported successfully",
		slog.String("corpus_name", imported.Name),
		slog.Int("runs_merged", len(imported.Runs)),
	)
	return s.GetCorpus(ctx, imported.Name)
}
