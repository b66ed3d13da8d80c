package mutation

import (
	"context"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Repository handles mutation persistence
type Repository struct {
	db     database.DB
	logger logging.Logger
}

// NewRepository creates a new mutation repository
func NewRepository(db database.DB, logger logging.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LoadIDs returns the natural keys of every persisted mutation.
func (r *Repository) LoadIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "mutation.Repository.LoadIDs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("mutation")

	query, args := sb.Build()
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load mutation ids")
		return nil, database.ClassifyError(err)
	}
	return ids, nil
}

// InsertBatch writes new mutations inside the caller's transaction.
// Mutations are immutable once created, so a conflicting id is simply
// left as it was first written.
func (r *Repository) InsertBatch(ctx context.Context, tx database.Tx, rows []models.Mutation) error {
	ctx, span := tracing.StartSpan(ctx, "mutation.Repository.InsertBatch")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("mutation")
	ib.Cols("id", "date_mutation", "numero_disposition", "nature_mutation")
	for _, row := range rows {
		ib.Values(row.ID, row.DateMutation, row.NumeroDisposition, row.NatureMutation)
	}
	ib.SQL("ON CONFLICT (id) DO NOTHING")

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("rows", len(rows)).Error("Failed to insert mutations")
		return database.ClassifyError(err)
	}
	return nil
}

// Count returns the number of persisted mutations.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "mutation.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM mutation"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count mutations")
		return 0, database.ClassifyError(err)
	}
	return count, nil
}
