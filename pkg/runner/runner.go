// Package runner drives the ingestion pipeline over all input files. It
// owns the failure policy: row-level issues are counted and skipped,
// integrity conflicts force a resolver resynchronization and one retry,
// storage failures stop the run at a chunk boundary.
package runner

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/sorrel/pkg/appcontext"
	"github.com/Ramsey-B/sorrel/pkg/builder"
	"github.com/Ramsey-B/sorrel/pkg/dvferr"
	"github.com/Ramsey-B/sorrel/pkg/loader"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/parser"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Flusher persists one batch. Satisfied by loader.Loader.
type Flusher interface {
	Flush(ctx context.Context, batch *loader.Batch) error
}

// EventEmitter publishes run lifecycle events for downstream consumers.
type EventEmitter interface {
	RunStarted(ctx context.Context, runID string) error
	RunCompleted(ctx context.Context, summary *models.RunSummary) error
}

type Config struct {
	InputFolder      string
	ChunkSize        int
	ParseWorkerCount int
}

type Runner struct {
	resolver *resolver.Resolver
	builder  *builder.Builder
	loader   Flusher
	emitter  EventEmitter
	logger   logging.Logger
	cfg      Config
}

// New builds a Runner. The emitter may be nil when event publishing is
// disabled.
func New(res *resolver.Resolver, bld *builder.Builder, fl Flusher, emitter EventEmitter, logger logging.Logger, cfg Config) *Runner {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}
	if cfg.ParseWorkerCount < 1 {
		cfg.ParseWorkerCount = 1
	}
	return &Runner{
		resolver: res,
		builder:  bld,
		loader:   fl,
		emitter:  emitter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run ingests every input file and returns the run summary. The summary
// is returned even when the run aborts, so the operator always sees the
// work completed so far.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "runner.Runner.Run")
	defer span.End()

	runID := uuid.NewString()
	ctx = appcontext.SetRunID(ctx, runID)

	summary := &models.RunSummary{RunID: runID, StartedAt: time.Now().UTC()}
	log := r.logger.WithContext(ctx).WithField("run_id", runID)

	if r.emitter != nil {
		if err := r.emitter.RunStarted(ctx, runID); err != nil {
			log.WithError(err).Warn("failed to publish run started event")
		}
	}

	// Resolution and dedupe state comes from storage, so a restarted run
	// continues from whatever prior runs committed.
	if err := r.resolver.Reload(ctx); err != nil {
		return r.finish(ctx, summary, err)
	}
	if err := r.builder.Reload(ctx); err != nil {
		return r.finish(ctx, summary, err)
	}

	files, err := filepath.Glob(filepath.Join(r.cfg.InputFolder, "*.csv"))
	if err != nil {
		return r.finish(ctx, summary, err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.WithField("folder", r.cfg.InputFolder).Warn("no input files found")
	}

	for _, path := range files {
		stats, err := r.processFile(ctx, path, summary)
		summary.Add(stats)
		if err != nil {
			if ctx.Err() != nil {
				summary.Interrupted = true
				log.Warn("run cancelled at chunk boundary")
				return r.finish(ctx, summary, nil)
			}
			return r.finish(ctx, summary, err)
		}
	}

	return r.finish(ctx, summary, nil)
}

func (r *Runner) finish(ctx context.Context, summary *models.RunSummary, err error) (*models.RunSummary, error) {
	summary.FinishedAt = time.Now().UTC()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)

	status := "completed"
	switch {
	case err != nil:
		status = "failed"
	case summary.Interrupted:
		status = "interrupted"
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"status":         status,
		"duration":       summary.Duration.String(),
		"rows_read":      summary.TotalRowsRead(),
		"rows_loaded":    summary.TotalRowsLoaded(),
		"mutations":      summary.Mutations,
		"localisations":  summary.Localisations,
		"biens":          summary.Biens,
		"lots":           summary.Lots,
		"mutation_biens": summary.MutationBiens,
	})
	if err != nil {
		log.WithError(err).Error("ingestion run failed")
	} else {
		log.Info("ingestion run finished")
	}

	if r.emitter != nil {
		if emitErr := r.emitter.RunCompleted(ctx, summary); emitErr != nil {
			r.logger.WithContext(ctx).WithError(emitErr).Warn("failed to publish run completed event")
		}
	}

	return summary, err
}

func (r *Runner) processFile(ctx context.Context, path string, summary *models.RunSummary) (models.SourceStats, error) {
	ctx, span := tracing.StartSpan(ctx, "runner.Runner.processFile")
	defer span.End()

	source := filepath.Base(path)
	ctx = appcontext.SetSource(ctx, source)
	stats := models.SourceStats{Source: source}
	log := r.logger.WithContext(ctx).WithField("source", source)

	file, err := os.Open(path)
	if err != nil {
		return stats, dvferr.Wrap(dvferr.KindStorageUnavailable, err, "failed to open input file").AddSource(source, 0)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return stats, dvferr.Wrap(dvferr.KindMalformedRecord, err, "failed to read header").AddSource(source, 1)
	}
	p, err := parser.New(header)
	if err != nil {
		return stats, err
	}

	log.Info("ingesting source file")

	line := 1
	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		rows, done, readErr := readChunk(reader, &line, r.cfg.ChunkSize, &stats)
		if readErr != nil {
			return stats, dvferr.Wrap(dvferr.KindMalformedRecord, readErr, "unreadable input file").AddSource(source, line)
		}
		if len(rows) > 0 {
			records := r.parseChunk(ctx, p, source, rows, &stats)
			if err := r.loadChunk(ctx, records, summary, &stats); err != nil {
				return stats, err
			}
			log.WithFields(map[string]any{
				"rows_read":   stats.RowsRead,
				"rows_loaded": stats.RowsLoaded,
			}).Debug("chunk loaded")
		}
		if done {
			break
		}
	}

	log.WithFields(map[string]any{
		"rows_read":     stats.RowsRead,
		"rows_loaded":   stats.RowsLoaded,
		"rows_rejected": stats.RowsRejected,
		"duplicates":    stats.DuplicateLinks,
	}).Info("source file ingested")

	return stats, nil
}

type rawRow struct {
	line   int
	fields []string
}

// readChunk pulls up to chunkSize rows off the reader. A row the CSV
// layer itself cannot decode is counted as malformed and skipped.
func readChunk(reader *csv.Reader, line *int, chunkSize int, stats *models.SourceStats) ([]rawRow, bool, error) {
	rows := make([]rawRow, 0, chunkSize)
	for len(rows) < chunkSize {
		fields, err := reader.Read()
		*line++
		if err == io.EOF {
			return rows, true, nil
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				stats.RowsRead++
				stats.RowsRejected++
				stats.MalformedRows++
				continue
			}
			return rows, false, err
		}
		rows = append(rows, rawRow{line: *line, fields: fields})
	}
	return rows, false, nil
}

// parseChunk parses raw rows with a bounded worker pool. Output keeps
// the input order so identity resolution stays deterministic.
func (r *Runner) parseChunk(ctx context.Context, p *parser.Parser, source string, rows []rawRow, stats *models.SourceStats) []*models.Record {
	parsed := make([]*models.Record, len(rows))
	errs := make([]error, len(rows))

	indexes := make(chan int)
	done := make(chan struct{})
	for w := 0; w < r.cfg.ParseWorkerCount; w++ {
		go func() {
			for i := range indexes {
				parsed[i], errs[i] = p.Parse(source, rows[i].line, rows[i].fields)
			}
			done <- struct{}{}
		}()
	}
	for i := range rows {
		indexes <- i
	}
	close(indexes)
	for w := 0; w < r.cfg.ParseWorkerCount; w++ {
		<-done
	}

	records := make([]*models.Record, 0, len(rows))
	for i := range rows {
		stats.RowsRead++
		if errs[i] != nil {
			stats.RowsRejected++
			switch dvferr.KindOf(errs[i]) {
			case dvferr.KindInvalidValue:
				stats.InvalidRows++
				metrics.RowsTotal.WithLabelValues(source, "invalid_value").Inc()
			default:
				stats.MalformedRows++
				metrics.RowsTotal.WithLabelValues(source, "malformed").Inc()
			}
			r.logger.WithContext(ctx).WithError(errs[i]).WithField("line", rows[i].line).Warn("row rejected")
			continue
		}
		records = append(records, parsed[i])
	}
	return records
}

type chunkCounts struct {
	duplicates  int
	skippedLots int
}

// loadChunk resolves, links, and flushes one chunk. On an integrity
// conflict the resolver and builder are rebuilt from storage and the
// chunk is re-resolved and retried once before the run fails.
func (r *Runner) loadChunk(ctx context.Context, records []*models.Record, summary *models.RunSummary, stats *models.SourceStats) error {
	if len(records) == 0 {
		return nil
	}

	batch, counts := r.buildBatch(records)

	start := time.Now()
	err := r.loader.Flush(ctx, batch)
	if dvferr.IsIntegrityConflict(err) {
		metrics.ConflictReloadsTotal.Inc()
		stats.ConflictRetries++
		r.logger.WithContext(ctx).WithError(err).Warn("integrity conflict, reloading resolver state and retrying chunk")

		if reloadErr := r.resolver.Reload(ctx); reloadErr != nil {
			return reloadErr
		}
		if reloadErr := r.builder.Reload(ctx); reloadErr != nil {
			return reloadErr
		}
		batch, counts = r.buildBatch(records)
		err = r.loader.Flush(ctx, batch)
	}
	if err != nil {
		return err
	}
	metrics.ChunkFlushDuration.Observe(time.Since(start).Seconds())
	metrics.ChunksFlushedTotal.Inc()

	stats.ChunksFlushed++
	stats.RowsLoaded += len(records)
	metrics.RowsTotal.WithLabelValues(stats.Source, "loaded").Add(float64(len(records)))
	stats.DuplicateLinks += counts.duplicates
	stats.SkippedLots += counts.skippedLots
	metrics.DuplicateAssociationsTotal.Add(float64(counts.duplicates))

	summary.Mutations += len(batch.Mutations)
	summary.Localisations += len(batch.Localisations)
	summary.Biens += len(batch.Biens)
	summary.Lots += len(batch.Lots)
	summary.MutationBiens += len(batch.MutationBiens)
	metrics.EntitiesCreatedTotal.WithLabelValues("mutation").Add(float64(len(batch.Mutations)))
	metrics.EntitiesCreatedTotal.WithLabelValues("localisation").Add(float64(len(batch.Localisations)))
	metrics.EntitiesCreatedTotal.WithLabelValues("bien").Add(float64(len(batch.Biens)))
	metrics.EntitiesCreatedTotal.WithLabelValues("lot").Add(float64(len(batch.Lots)))
	metrics.EntitiesCreatedTotal.WithLabelValues("mutation_bien").Add(float64(len(batch.MutationBiens)))

	return nil
}

// buildBatch resolves every record of a chunk in order and collects the
// new rows. Safe to call again after a resolver reload: already-persisted
// keys then resolve without producing rows.
func (r *Runner) buildBatch(records []*models.Record) (*loader.Batch, chunkCounts) {
	batch := &loader.Batch{}
	var counts chunkCounts

	for _, record := range records {
		if mutation := r.resolver.ResolveMutation(record); mutation != nil {
			batch.Mutations = append(batch.Mutations, *mutation)
		}

		locID, localisation := r.resolver.ResolveLocalisation(record)
		if localisation != nil {
			batch.Localisations = append(batch.Localisations, *localisation)
		}

		bienID, bien := r.resolver.ResolveBien(record, locID)
		if bien != nil {
			batch.Biens = append(batch.Biens, *bien)
		}

		lots, skipped := r.builder.BuildLots(record, bienID)
		batch.Lots = append(batch.Lots, lots...)
		counts.skippedLots += skipped

		association, duplicate := r.builder.BuildAssociation(record, bienID)
		if duplicate {
			counts.duplicates++
		} else if association != nil {
			batch.MutationBiens = append(batch.MutationBiens, *association)
		}
	}

	return batch, counts
}
