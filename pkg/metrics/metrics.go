// Package metrics provides Prometheus metrics for the Sorrel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsTotal tracks processed source rows by outcome
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Total number of source rows by outcome",
		},
		[]string{"source", "outcome"},
	)

	// EntitiesCreatedTotal tracks newly persisted entities by type
	EntitiesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "ingest",
			Name:      "entities_created_total",
			Help:      "Total number of newly persisted entities by type",
		},
		[]string{"entity"},
	)

	// DuplicateAssociationsTotal tracks repeated mutation-bien pairs
	DuplicateAssociationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "ingest",
			Name:      "duplicate_associations_total",
			Help:      "Total number of repeated mutation-bien source rows",
		},
	)

	// ChunksFlushedTotal tracks committed batch transactions
	ChunksFlushedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "load",
			Name:      "chunks_flushed_total",
			Help:      "Total number of committed batch transactions",
		},
	)

	// ChunkFlushDuration tracks batch flush duration in seconds
	ChunkFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "load",
			Name:      "chunk_flush_duration_seconds",
			Help:      "Duration of batch flush transactions in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// ConflictReloadsTotal tracks resolver resynchronizations forced by
	// integrity conflicts
	ConflictReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "load",
			Name:      "conflict_reloads_total",
			Help:      "Total number of resolver reloads forced by integrity conflicts",
		},
	)

	// RunsTotal tracks completed ingestion runs by status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs by status",
		},
		[]string{"status"},
	)
)
