package corpus

import "context"

// DBStats holds aggregated statistics for the whole store.
type DBStats struct {
	Corpora    int `json:"corpora"`     // Number of stored corpora
	TotalChars int `json:"total_chars"` // Characters across all corpora
	TotalBytes int `json:"total_bytes"` // UTF-8 bytes across all corpora
	Runs       int `json:"runs"`        // Recorded generation runs
}

// GetStats returns a snapshot of statistics for the store.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	var stats DBStats
	err := s.stmtCorpusTotals.QueryRowContext(ctx).Scan(&stats.Corpora, &stats.TotalChars, &stats.TotalBytes)
	if err != nil {
		return nil, err
	}
	if err = s.stmtRunCount.QueryRowContext(ctx).Scan(&stats.Runs); err != nil {
		return nil, err
	}
	return &stats, nil
}
