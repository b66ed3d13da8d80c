package lot

import (
	"context"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/pkg/builder"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Repository handles lot persistence
type Repository struct {
	db     database.DB
	logger logging.Logger
}

// NewRepository creates a new lot repository
func NewRepository(db database.DB, logger logging.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LoadKeys returns every persisted (id, bien_id, numero_lot) triple. Used
// to rehydrate the relationship builder's dedupe state.
func (r *Repository) LoadKeys(ctx context.Context) ([]builder.LotKey, error) {
	ctx, span := tracing.StartSpan(ctx, "lot.Repository.LoadKeys")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "bien_id", "numero_lot")
	sb.From("lot")

	query, args := sb.Build()
	var keys []builder.LotKey
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load lot keys")
		return nil, database.ClassifyError(err)
	}
	return keys, nil
}

// InsertBatch writes new lots inside the caller's transaction. The
// referenced biens must already be written in the same transaction or
// committed earlier.
func (r *Repository) InsertBatch(ctx context.Context, tx database.Tx, rows []models.Lot) error {
	ctx, span := tracing.StartSpan(ctx, "lot.Repository.InsertBatch")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("lot")
	ib.Cols("id", "bien_id", "numero_lot", "surface_carrez")
	for _, row := range rows {
		ib.Values(row.ID, row.BienID, row.NumeroLot, row.SurfaceCarrez)
	}
	ib.SQL("ON CONFLICT (bien_id, numero_lot) DO NOTHING")

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("rows", len(rows)).Error("Failed to insert lots")
		return database.ClassifyError(err)
	}
	return nil
}

// Count returns the number of persisted lots.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "lot.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lot"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count lots")
		return 0, database.ClassifyError(err)
	}
	return count, nil
}
