package models

import "time"

// SourceStats summarizes the outcome of ingesting one input file.
type SourceStats struct {
	Source          string `json:"source"`
	RowsRead        int    `json:"rows_read"`
	RowsLoaded      int    `json:"rows_loaded"`
	RowsRejected    int    `json:"rows_rejected"`
	MalformedRows   int    `json:"malformed_rows"`
	InvalidRows     int    `json:"invalid_rows"`
	DuplicateLinks  int    `json:"duplicate_links"`
	SkippedLots     int    `json:"skipped_lots"`
	ChunksFlushed   int    `json:"chunks_flushed"`
	ConflictRetries int    `json:"conflict_retries"`
}

// RunSummary is the aggregate result of a full ingestion run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Duration      time.Duration `json:"duration"`
	Sources       []SourceStats `json:"sources"`
	Mutations     int           `json:"mutations_created"`
	Localisations int           `json:"localisations_created"`
	Biens         int           `json:"biens_created"`
	Lots          int           `json:"lots_created"`
	MutationBiens int           `json:"mutation_biens_created"`
	Interrupted   bool          `json:"interrupted"`
}

// Add folds one source's stats into the run totals.
func (r *RunSummary) Add(s SourceStats) {
	r.Sources = append(r.Sources, s)
}

// TotalRowsRead sums rows read across all sources.
func (r *RunSummary) TotalRowsRead() int {
	total := 0
	for _, s := range r.Sources {
		total += s.RowsRead
	}
	return total
}

// TotalRowsLoaded sums rows loaded across all sources.
func (r *RunSummary) TotalRowsLoaded() int {
	total := 0
	for _, s := range r.Sources {
		total += s.RowsLoaded
	}
	return total
}
