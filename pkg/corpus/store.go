package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// timeLayout is the text format of every timestamp column. Its fixed width
// keeps lexical order equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrCorpusNotFound is returned when no corpus has the requested name.
	ErrCorpusNotFound = errors.New("corpus: not found")
	// ErrInvalidName is returned for an empty corpus name.
	ErrInvalidName = errors.New("corpus: name must not be empty")
	// ErrInvalidText is returned when corpus text is not valid UTF-8.
	ErrInvalidText = errors.New("corpus: text is not valid UTF-8")
)

// Info holds the metadata of a stored corpus.
type Info struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Chars     int       `json:"chars"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// SetupSchema initializes the corpus and run tables. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaCorpora = `
CREATE TABLE IF NOT EXISTS corpora (
    corpus_id   INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    content     TEXT NOT NULL,
    char_count  INTEGER NOT NULL,
    byte_size   INTEGER NOT NULL,
    created_at  TEXT NOT NULL
);
`
		schemaRuns = `
CREATE TABLE IF NOT EXISTS generation_runs (
    run_id        TEXT PRIMARY KEY,
    corpus_name   TEXT NOT NULL,
    window_length INTEGER NOT NULL,
    seed          INTEGER,
    seed_text     TEXT NOT NULL,
    target_length INTEGER NOT NULL,
    total_length  INTEGER NOT NULL DEFAULT 0,
    output        TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
`
		indexRuns = `CREATE INDEX IF NOT EXISTS idx_generation_runs_corpus ON generation_runs(corpus_name, created_at);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaCorpora); err != nil {
		return fmt.Errorf("could not create corpora schema: %w", err)
	}
	if _, err = tx.Exec(schemaRuns); err != nil {
		return fmt.Errorf("could not create runs schema: %w", err)
	}
	if _, err = tx.Exec(indexRuns); err != nil {
		return fmt.Errorf("could not create runs index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store provides access to corpora and generation runs. It holds prepared
// statements for the frequent queries.
type Store struct {
	db               *sql.DB
	stmtGetCorpus    *sql.Stmt
	stmtListCorpora  *sql.Stmt
	stmtGetContent   *sql.Stmt
	stmtUpsertCorpus *sql.Stmt
	stmtInsertRun    *sql.Stmt
	stmtListRuns     *sql.Stmt
	stmtCorpusTotals *sql.Stmt
	stmtRunCount     *sql.Stmt
	logger           *slog.Logger
}

// NewStore prepares all statements against db. SetupSchema must have been
// called on db first.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetCorpus, err := db.Prepare(`SELECT corpus_id, corpus_name, char_count, byte_size, created_at FROM corpora WHERE corpus_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListCorpora, err := db.Prepare(`SELECT corpus_id, corpus_name, char_count, byte_size, created_at FROM corpora ORDER BY corpus_name;`)
	if err != nil {
		return nil, err
	}

	stmtGetContent, err := db.Prepare(`SELECT content FROM corpora WHERE corpus_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtUpsertCorpus, err := db.Prepare(`INSERT INTO corpora (corpus_name, content, char_count, byte_size, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(corpus_name) DO UPDATE SET content = excluded.content, char_count = excluded.char_count, byte_size = excluded.byte_size, created_at = excluded.created_at;`)
	if err != nil {
		return nil, err
	}

	stmtInsertRun, err := db.Prepare(`INSERT INTO generation_runs (run_id, corpus_name, window_length, seed, seed_text, target_length, total_length, output, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtListRuns, err := db.Prepare(`SELECT run_id, corpus_name, window_length, seed, seed_text, target_length, total_length, output, created_at FROM generation_runs
WHERE (? = '' OR corpus_name = ?) ORDER BY created_at DESC, rowid DESC LIMIT ?;`)
	if err != nil {
		return nil, err
	}

	stmtCorpusTotals, err := db.Prepare(`SELECT COUNT(*), coalesce(SUM(char_count), 0), coalesce(SUM(byte_size), 0) FROM corpora;`)
	if err != nil {
		return nil, err
	}

	stmtRunCount, err := db.Prepare(`SELECT COUNT(*) FROM generation_runs;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:               db,
		stmtGetCorpus:    stmtGetCorpus,
		stmtListCorpora:  stmtListCorpora,
		stmtGetContent:   stmtGetContent,
		stmtUpsertCorpus: stmtUpsertCorpus,
		stmtInsertRun:    stmtInsertRun,
		stmtListRuns:     stmtListRuns,
		stmtCorpusTotals: stmtCorpusTotals,
		stmtRunCount:     stmtRunCount,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetCorpus.Close()
	_ = s.stmtListCorpora.Close()
	_ = s.stmtGetContent.Close()
	_ = s.stmtUpsertCorpus.Close()
	_ = s.stmtInsertRun.Close()
	_ = s.stmtListRuns.Close()
	_ = s.stmtCorpusTotals.Close()
	_ = s.stmtRunCount.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// AddCorpus reads all of r and stores it under name, replacing any corpus
// that already has that name.
func (s *Store) AddCorpus(ctx context.Context, name string, r io.Reader) (Info, error) {
	if strings.TrimSpace(name) == "" {
		return Info{}, ErrInvalidName
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("could not read corpus '%s': %w", name, err)
	}
	if err = writeCorpus(ctx, s.stmtUpsertCorpus, name, string(data)); err != nil {
		return Info{}, err
	}

	info, err := s.GetCorpus(ctx, name)
	if err != nil {
		return Info{}, err
	}

	s.logger.InfoContext(ctx, "Corpus stored",
		slog.String("corpus_name", name),
		slog.Int("corpus_id", info.Id),
		slog.Int("chars", info.Chars),
		slog.Int("bytes", info.Bytes),
	)
	return info, nil
}

// writeCorpus validates content and upserts it through stmt, which may be
// bound to a transaction.
func writeCorpus(ctx context.Context, stmt *sql.Stmt, name, content string) error {
	if !utf8.ValidString(content) {
		return fmt.Errorf("%w: '%s'", ErrInvalidText, name)
	}
	now := time.Now().UTC().Format(timeLayout)
	if _, err := stmt.ExecContext(ctx, name, content, utf8.RuneCountInString(content), len(content), now); err != nil {
		return fmt.Errorf("could not store corpus '%s': %w", name, err)
	}
	return nil
}

// GetCorpus returns the metadata of one corpus.
func (s *Store) GetCorpus(ctx context.Context, name string) (Info, error) {
	info, err := scanInfo(s.stmtGetCorpus.QueryRowContext(ctx, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Info{}, fmt.Errorf("%w: '%s'", ErrCorpusNotFound, name)
		}
		return Info{}, err
	}
	return info, nil
}

// ListCorpora returns the metadata of every corpus, ordered by name.
func (s *Store) ListCorpora(ctx context.Context) ([]Info, error) {
	rows, err := s.stmtListCorpora.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	corpora := make([]Info, 0)
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return corpora, nil
}

// Text returns the full text of a corpus.
func (s *Store) Text(ctx context.Context, name string) (string, error) {
	var content string
	err := s.stmtGetContent.QueryRowContext(ctx, name).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: '%s'", ErrCorpusNotFound, name)
		}
		return "", err
	}
	return content, nil
}

// OpenCorpus returns a reader over the text of a corpus, suitable for
// markov.Model.Train.
func (s *Store) OpenCorpus(ctx context.Context, name string) (io.Reader, error) {
	content, err := s.Text(ctx, name)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(content), nil
}

// RemoveCorpus deletes a corpus and its run history in one transaction.
func (s *Store) RemoveCorpus(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.ExecContext(ctx, "DELETE FROM corpora WHERE corpus_name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove corpus '%s': %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: '%s'", ErrCorpusNotFound, name)
	}

	runs, err := tx.ExecContext(ctx, "DELETE FROM generation_runs WHERE corpus_name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove runs for corpus '%s': %w", name, err)
	}
	runsRemoved, _ := runs.RowsAffected()

	s.logger.InfoContext(ctx, "Corpus removed successfully",
		slog.String("corpus_name", name),
		slog.Int64("runs_removed", runsRemoved),
	)

	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfo(row rowScanner) (Info, error) {
	var info Info
	var created string
	if err := row.Scan(&info.Id, &info.Name, &info.Chars, &info.Bytes, &created); err != nil {
		return Info{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Info{}, fmt.Errorf("invalid created_at for corpus '%s': %w", info.Name, err)
	}
	info.CreatedAt = t
	return info, nil
}
