package mutationbien

import (
	"context"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/pkg/builder"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Repository handles mutation-bien association persistence
type Repository struct {
	db     database.DB
	logger logging.Logger
}

// NewRepository creates a new mutation-bien repository
func NewRepository(db database.DB, logger logging.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LoadPairs returns every persisted (mutation_id, bien_id) pair. Used to
// rehydrate the relationship builder's dedupe state.
func (r *Repository) LoadPairs(ctx context.Context) ([]builder.AssociationKey, error) {
	ctx, span := tracing.StartSpan(ctx, "mutationbien.Repository.LoadPairs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("mutation_id", "bien_id")
	sb.From("mutation_bien")

	query, args := sb.Build()
	var pairs []builder.AssociationKey
	if err := r.db.SelectContext(ctx, &pairs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load mutation-bien pairs")
		return nil, database.ClassifyError(err)
	}
	return pairs, nil
}

// InsertBatch writes new associations inside the caller's transaction.
// Both sides of each pair must already exist in storage. The first value
// written for a pair sticks; a conflicting repeat is left untouched.
func (r *Repository) InsertBatch(ctx context.Context, tx database.Tx, rows []models.MutationBien) error {
	ctx, span := tracing.StartSpan(ctx, "mutationbien.Repository.InsertBatch")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("mutation_bien")
	ib.Cols("mutation_id", "bien_id", "valeur_fonciere")
	for _, row := range rows {
		ib.Values(row.MutationID, row.BienID, row.ValeurFonciere)
	}
	ib.SQL("ON CONFLICT (mutation_id, bien_id) DO NOTHING")

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("rows", len(rows)).Error("Failed to insert mutation-bien associations")
		return database.ClassifyError(err)
	}
	return nil
}

// Count returns the number of persisted associations.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "mutationbien.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM mutation_bien"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count mutation-bien associations")
		return 0, database.ClassifyError(err)
	}
	return count, nil
}
