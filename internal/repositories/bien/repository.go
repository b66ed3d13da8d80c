package bien

import (
	"context"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Repository handles bien persistence
type Repository struct {
	db     database.DB
	logger logging.Logger
}

// NewRepository creates a new bien repository
func NewRepository(db database.DB, logger logging.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LoadKeys returns every persisted (fingerprint, id) pair.
func (r *Repository) LoadKeys(ctx context.Context) ([]resolver.KeyID, error) {
	ctx, span := tracing.StartSpan(ctx, "bien.Repository.LoadKeys")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fingerprint", "id")
	sb.From("bien")

	query, args := sb.Build()
	var keys []resolver.KeyID
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load bien keys")
		return nil, database.ClassifyError(err)
	}
	return keys, nil
}

// InsertBatch writes new biens inside the caller's transaction. The
// referenced localisations must already be written in the same
// transaction or committed earlier.
func (r *Repository) InsertBatch(ctx context.Context, tx database.Tx, rows []models.Bien) error {
	ctx, span := tracing.StartSpan(ctx, "bien.Repository.InsertBatch")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("bien")
	ib.Cols("id", "fingerprint", "id_parcelle", "type_local", "surface_reelle_bati",
		"surface_terrain", "nombre_pieces_principales", "localisation_id")
	for _, row := range rows {
		ib.Values(row.ID, row.Fingerprint, row.IDParcelle, row.TypeLocal, row.SurfaceReelleBati,
			row.SurfaceTerrain, row.NombrePiecesPrincipales, row.LocalisationID)
	}
	ib.SQL("ON CONFLICT (fingerprint) DO NOTHING")

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("rows", len(rows)).Error("Failed to insert biens")
		return database.ClassifyError(err)
	}
	return nil
}

// SelectByFingerprints returns the stored ids for the given fingerprints,
// read inside the caller's transaction.
func (r *Repository) SelectByFingerprints(ctx context.Context, tx database.Tx, fingerprints []string) ([]resolver.KeyID, error) {
	ctx, span := tracing.StartSpan(ctx, "bien.Repository.SelectByFingerprints")
	defer span.End()

	if len(fingerprints) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fingerprint", "id")
	sb.From("bien")
	sb.Where(sb.In("fingerprint", sqlbuilder.Flatten(fingerprints)...))

	query, args := sb.Build()
	var keys []resolver.KeyID
	if err := tx.SelectContext(ctx, &keys, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("fingerprints", len(fingerprints)).Error("Failed to select biens by fingerprint")
		return nil, database.ClassifyError(err)
	}
	return keys, nil
}

// Count returns the number of persisted biens.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "bien.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM bien"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count biens")
		return 0, database.ClassifyError(err)
	}
	return count, nil
}
