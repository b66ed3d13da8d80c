// Package loader persists resolved batches. One flush is one database
// transaction writing entity types in foreign-key dependency order, so a
// chunk of input either lands completely or not at all.
package loader

import (
	"context"
	"time"

	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/pkg/dvferr"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Batch holds the new rows accumulated for one input chunk, grouped per
// entity type.
type Batch struct {
	Localisations []models.Localisation
	Biens         []models.Bien
	Lots          []models.Lot
	Mutations     []models.Mutation
	MutationBiens []models.MutationBien
}

func (b *Batch) Empty() bool {
	return len(b.Localisations) == 0 && len(b.Biens) == 0 && len(b.Lots) == 0 &&
		len(b.Mutations) == 0 && len(b.MutationBiens) == 0
}

// Size returns the total number of rows in the batch.
func (b *Batch) Size() int {
	return len(b.Localisations) + len(b.Biens) + len(b.Lots) +
		len(b.Mutations) + len(b.MutationBiens)
}

// LocalisationStore is the slice of the localisation repository the
// loader needs.
type LocalisationStore interface {
	InsertBatch(ctx context.Context, tx database.Tx, rows []models.Localisation) error
	SelectByFingerprints(ctx context.Context, tx database.Tx, fingerprints []string) ([]resolver.KeyID, error)
}

// BienStore is the slice of the bien repository the loader needs.
type BienStore interface {
	InsertBatch(ctx context.Context, tx database.Tx, rows []models.Bien) error
	SelectByFingerprints(ctx context.Context, tx database.Tx, fingerprints []string) ([]resolver.KeyID, error)
}

// MutationStore writes mutation rows.
type MutationStore interface {
	InsertBatch(ctx context.Context, tx database.Tx, rows []models.Mutation) error
}

// LotStore writes lot rows.
type LotStore interface {
	InsertBatch(ctx context.Context, tx database.Tx, rows []models.Lot) error
}

// AssociationStore writes mutation-bien rows.
type AssociationStore interface {
	InsertBatch(ctx context.Context, tx database.Tx, rows []models.MutationBien) error
}

type Loader struct {
	db            database.DB
	localisations LocalisationStore
	biens         BienStore
	mutations     MutationStore
	lots          LotStore
	associations  AssociationStore
	logger        logging.Logger

	retryCount int
	retryDelay time.Duration
}

func New(
	db database.DB,
	localisations LocalisationStore,
	biens BienStore,
	mutations MutationStore,
	lots LotStore,
	associations AssociationStore,
	logger logging.Logger,
	retryCount int,
	retryDelay time.Duration,
) *Loader {
	return &Loader{
		db:            db,
		localisations: localisations,
		biens:         biens,
		mutations:     mutations,
		lots:          lots,
		associations:  associations,
		logger:        logger,
		retryCount:    retryCount,
		retryDelay:    retryDelay,
	}
}

// Flush writes the batch in one transaction. Transient storage failures
// are retried with backoff up to the configured count; an integrity
// conflict is surfaced immediately so the caller can resynchronize the
// resolver before retrying the chunk.
func (l *Loader) Flush(ctx context.Context, batch *Batch) error {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.Flush")
	defer span.End()

	if batch.Empty() {
		return nil
	}

	var err error
	for attempt := 0; attempt <= l.retryCount; attempt++ {
		if attempt > 0 {
			l.logger.WithContext(ctx).WithError(err).WithField("attempt", attempt).Warn("retrying batch flush")
			select {
			case <-time.After(l.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = l.flushOnce(ctx, batch)
		if err == nil || !dvferr.IsStorageUnavailable(err) {
			return err
		}
	}
	return err
}

func (l *Loader) flushOnce(ctx context.Context, batch *Batch) error {
	ctx, tx, err := l.db.GetTx(ctx, nil)
	if err != nil {
		return dvferr.Wrap(dvferr.KindStorageUnavailable, err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := l.localisations.InsertBatch(ctx, tx, batch.Localisations); err != nil {
		return err
	}
	if err := l.verifyLocalisations(ctx, tx, batch.Localisations); err != nil {
		return err
	}

	if err := l.biens.InsertBatch(ctx, tx, batch.Biens); err != nil {
		return err
	}
	if err := l.verifyBiens(ctx, tx, batch.Biens); err != nil {
		return err
	}

	if err := l.lots.InsertBatch(ctx, tx, batch.Lots); err != nil {
		return err
	}
	if err := l.mutations.InsertBatch(ctx, tx, batch.Mutations); err != nil {
		return err
	}
	if err := l.associations.InsertBatch(ctx, tx, batch.MutationBiens); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return dvferr.Wrap(dvferr.KindStorageUnavailable, err, "failed to commit batch")
	}

	l.logger.WithContext(ctx).WithFields(map[string]any{
		"localisations":  len(batch.Localisations),
		"biens":          len(batch.Biens),
		"lots":           len(batch.Lots),
		"mutations":      len(batch.Mutations),
		"mutation_biens": len(batch.MutationBiens),
	}).Debug("batch committed")

	return nil
}

// verifyLocalisations checks that every fingerprint in the batch maps to
// the id the resolver assigned. A fingerprint that conflicted with an
// existing row holding the same id is confirmation that resolution was
// correct; a different id means the resolver and storage have diverged.
func (l *Loader) verifyLocalisations(ctx context.Context, tx database.Tx, rows []models.Localisation) error {
	if len(rows) == 0 {
		return nil
	}

	assigned := make(map[string]int64, len(rows))
	fingerprints := make([]string, 0, len(rows))
	for _, row := range rows {
		assigned[row.Fingerprint] = row.ID
		fingerprints = append(fingerprints, row.Fingerprint)
	}

	stored, err := l.localisations.SelectByFingerprints(ctx, tx, fingerprints)
	if err != nil {
		return err
	}
	return compareKeys(assigned, stored, "localisation")
}

func (l *Loader) verifyBiens(ctx context.Context, tx database.Tx, rows []models.Bien) error {
	if len(rows) == 0 {
		return nil
	}

	assigned := make(map[string]int64, len(rows))
	fingerprints := make([]string, 0, len(rows))
	for _, row := range rows {
		assigned[row.Fingerprint] = row.ID
		fingerprints = append(fingerprints, row.Fingerprint)
	}

	stored, err := l.biens.SelectByFingerprints(ctx, tx, fingerprints)
	if err != nil {
		return err
	}
	return compareKeys(assigned, stored, "bien")
}

func compareKeys(assigned map[string]int64, stored []resolver.KeyID, entity string) error {
	seen := make(map[string]bool, len(stored))
	for _, key := range stored {
		seen[key.Fingerprint] = true
		want, ok := assigned[key.Fingerprint]
		if !ok {
			continue
		}
		if key.ID != want {
			return dvferr.Newf(dvferr.KindIntegrityConflict,
				"%s fingerprint maps to stored id %d but resolver assigned %d", entity, key.ID, want)
		}
	}

	for fingerprint, id := range assigned {
		if !seen[fingerprint] {
			return dvferr.Newf(dvferr.KindIntegrityConflict,
				"%s id %d was neither written nor found after flush", entity, id)
		}
	}
	return nil
}
