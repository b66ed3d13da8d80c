package localisation

import (
	"context"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Repository handles localisation persistence
type Repository struct {
	db     database.DB
	logger logging.Logger
}

// NewRepository creates a new localisation repository
func NewRepository(db database.DB, logger logging.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LoadKeys returns every persisted (fingerprint, id) pair. Used to
// rehydrate the resolver at startup and after an integrity conflict.
func (r *Repository) LoadKeys(ctx context.Context) ([]resolver.KeyID, error) {
	ctx, span := tracing.StartSpan(ctx, "localisation.Repository.LoadKeys")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fingerprint", "id")
	sb.From("localisation")

	query, args := sb.Build()
	var keys []resolver.KeyID
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load localisation keys")
		return nil, database.ClassifyError(err)
	}
	return keys, nil
}

// InsertBatch writes new localisations inside the caller's transaction.
// A fingerprint already present is left untouched; the caller verifies
// afterwards that the stored id matches the one it assigned.
func (r *Repository) InsertBatch(ctx context.Context, tx database.Tx, rows []models.Localisation) error {
	ctx, span := tracing.StartSpan(ctx, "localisation.Repository.InsertBatch")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("localisation")
	ib.Cols("id", "fingerprint", "adresse_numero", "adresse_suffixe", "adresse_nom_voie",
		"code_postal", "code_commune", "code_departement", "nom_commune",
		"longitude", "latitude", "date_localisation")
	for _, row := range rows {
		ib.Values(row.ID, row.Fingerprint, row.AdresseNumero, row.AdresseSuffixe, row.AdresseNomVoie,
			row.CodePostal, row.CodeCommune, row.CodeDepartement, row.NomCommune,
			row.Longitude, row.Latitude, row.DateLocalisation)
	}
	ib.SQL("ON CONFLICT (fingerprint) DO NOTHING")

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("rows", len(rows)).Error("Failed to insert localisations")
		return database.ClassifyError(err)
	}
	return nil
}

// SelectByFingerprints returns the stored ids for the given fingerprints,
// read inside the caller's transaction.
func (r *Repository) SelectByFingerprints(ctx context.Context, tx database.Tx, fingerprints []string) ([]resolver.KeyID, error) {
	ctx, span := tracing.StartSpan(ctx, "localisation.Repository.SelectByFingerprints")
	defer span.End()

	if len(fingerprints) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fingerprint", "id")
	sb.From("localisation")
	sb.Where(sb.In("fingerprint", sqlbuilder.Flatten(fingerprints)...))

	query, args := sb.Build()
	var keys []resolver.KeyID
	if err := tx.SelectContext(ctx, &keys, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("fingerprints", len(fingerprints)).Error("Failed to select localisations by fingerprint")
		return nil, database.ClassifyError(err)
	}
	return keys, nil
}

// Count returns the number of persisted localisations.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "localisation.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM localisation"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count localisations")
		return 0, database.ClassifyError(err)
	}
	return count, nil
}
