// Package resolver owns entity identity. It maps business-key
// fingerprints to stable surrogate ids, minting an id only the first
// time a key is seen and rehydrating its state from storage so a
// restarted run reuses the ids committed by a prior one.
package resolver

import (
	"context"
	"sync"

	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

// KeyID is one persisted fingerprint to surrogate-id pair.
type KeyID struct {
	Fingerprint string `db:"fingerprint"`
	ID          int64  `db:"id"`
}

// EntityKeyStore loads the persisted key mapping for one surrogate-id
// entity type.
type EntityKeyStore interface {
	LoadKeys(ctx context.Context) ([]KeyID, error)
}

// MutationIDStore loads the natural keys of already-persisted mutations.
type MutationIDStore interface {
	LoadIDs(ctx context.Context) ([]string, error)
}

type Resolver struct {
	localisations *Cache
	biens         *Cache

	mu        sync.Mutex
	mutations map[string]bool

	localisationStore EntityKeyStore
	bienStore         EntityKeyStore
	mutationStore     MutationIDStore
	logger            logging.Logger
}

func New(localisationStore, bienStore EntityKeyStore, mutationStore MutationIDStore, logger logging.Logger) *Resolver {
	return &Resolver{
		localisations:     NewCache(),
		biens:             NewCache(),
		mutations:         make(map[string]bool),
		localisationStore: localisationStore,
		bienStore:         bienStore,
		mutationStore:     mutationStore,
		logger:            logger,
	}
}

// Reload rebuilds all key mappings from storage. Called at startup and
// after an integrity conflict forces a resynchronization.
func (r *Resolver) Reload(ctx context.Context) error {
	if err := reloadCache(ctx, r.localisationStore, r.localisations); err != nil {
		return err
	}
	if err := reloadCache(ctx, r.bienStore, r.biens); err != nil {
		return err
	}

	ids, err := r.mutationStore.LoadIDs(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.mutations = make(map[string]bool, len(ids))
	for _, id := range ids {
		r.mutations[id] = true
	}
	r.mu.Unlock()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"localisations": r.localisations.Len(),
		"biens":         r.biens.Len(),
		"mutations":     len(ids),
	}).Info("resolver state loaded from storage")

	return nil
}

func reloadCache(ctx context.Context, store EntityKeyStore, cache *Cache) error {
	keys, err := store.LoadKeys(ctx)
	if err != nil {
		return err
	}

	ids := make(map[string]int64, len(keys))
	var maxID int64
	for _, key := range keys {
		ids[key.Fingerprint] = key.ID
		if key.ID > maxID {
			maxID = key.ID
		}
	}
	cache.Replace(ids, maxID)
	return nil
}

// ResolveLocalisation returns the surrogate id for the record's location.
// The entity is returned only when the key is seen for the first time;
// repeat sightings reuse the id and keep the first-seen attributes.
func (r *Resolver) ResolveLocalisation(record *models.Record) (int64, *models.Localisation) {
	key := LocalisationKey(record)
	id, created := r.localisations.Assign(key)
	if !created {
		return id, nil
	}

	date := record.DateMutation
	return id, &models.Localisation{
		ID:               id,
		Fingerprint:      key,
		AdresseNumero:    record.AdresseNumero,
		AdresseSuffixe:   record.AdresseSuffixe,
		AdresseNomVoie:   record.AdresseNomVoie,
		CodePostal:       record.CodePostal,
		CodeCommune:      record.CodeCommune,
		CodeDepartement:  record.CodeDepartement,
		NomCommune:       record.NomCommune,
		Longitude:        record.Longitude,
		Latitude:         record.Latitude,
		DateLocalisation: &date,
	}
}

// ResolveBien returns the surrogate id for the record's property. The
// localisation id must come from ResolveLocalisation for the same record.
func (r *Resolver) ResolveBien(record *models.Record, localisationID int64) (int64, *models.Bien) {
	key := BienKey(record, localisationID)
	id, created := r.biens.Assign(key)
	if !created {
		return id, nil
	}

	return id, &models.Bien{
		ID:                      id,
		Fingerprint:             key,
		IDParcelle:              record.IDParcelle,
		TypeLocal:               record.TypeLocal,
		SurfaceReelleBati:       record.SurfaceReelleBati,
		SurfaceTerrain:          record.SurfaceTerrain,
		NombrePiecesPrincipales: record.NombrePiecesPrincipales,
		LocalisationID:          localisationID,
	}
}

// ResolveMutation captures the mutation the first time its natural key
// appears; later rows for the same key contribute only associations.
func (r *Resolver) ResolveMutation(record *models.Record) *models.Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mutations[record.IDMutation] {
		return nil
	}
	r.mutations[record.IDMutation] = true

	return &models.Mutation{
		ID:                record.IDMutation,
		DateMutation:      record.DateMutation,
		NumeroDisposition: record.NumeroDisposition,
		NatureMutation:    record.NatureMutation,
	}
}

// LookupLocalisation reports the assigned id for a fingerprint without
// minting one.
func (r *Resolver) LookupLocalisation(fingerprint string) (int64, bool) {
	return r.localisations.Lookup(fingerprint)
}

// LookupBien reports the assigned id for a fingerprint without minting
// one.
func (r *Resolver) LookupBien(fingerprint string) (int64, bool) {
	return r.biens.Lookup(fingerprint)
}
