// Package builder links resolved entities into association rows. It owns
// the dedupe state for lots and mutation-bien pairs, rehydrated from
// storage so re-runs do not re-link what a prior run already committed.
package builder

import (
	"context"
	"strconv"
	"sync"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// LotKey identifies one persisted lot.
type LotKey struct {
	ID        int64  `db:"id"`
	BienID    int64  `db:"bien_id"`
	NumeroLot string `db:"numero_lot"`
}

// AssociationKey identifies one persisted mutation-bien link.
type AssociationKey struct {
	MutationID string `db:"mutation_id"`
	BienID     int64  `db:"bien_id"`
}

// LotStore loads persisted lot keys.
type LotStore interface {
	LoadKeys(ctx context.Context) ([]LotKey, error)
}

// AssociationStore loads persisted mutation-bien pairs.
type AssociationStore interface {
	LoadPairs(ctx context.Context) ([]AssociationKey, error)
}

type Builder struct {
	mu        sync.Mutex
	lots      map[string]bool
	pairs     map[string]bool
	nextLotID int64

	lotStore         LotStore
	associationStore AssociationStore
}

func New(lotStore LotStore, associationStore AssociationStore) *Builder {
	return &Builder{
		lots:             make(map[string]bool),
		pairs:            make(map[string]bool),
		nextLotID:        1,
		lotStore:         lotStore,
		associationStore: associationStore,
	}
}

// Reload rebuilds the dedupe state from storage.
func (b *Builder) Reload(ctx context.Context) error {
	lotKeys, err := b.lotStore.LoadKeys(ctx)
	if err != nil {
		return err
	}
	pairKeys, err := b.associationStore.LoadPairs(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lots = make(map[string]bool, len(lotKeys))
	b.nextLotID = 1
	for _, key := range lotKeys {
		b.lots[lotKey(key.BienID, key.NumeroLot)] = true
		if key.ID >= b.nextLotID {
			b.nextLotID = key.ID + 1
		}
	}

	b.pairs = make(map[string]bool, len(pairKeys))
	for _, key := range pairKeys {
		b.pairs[pairKey(key.MutationID, key.BienID)] = true
	}

	return nil
}

// BuildLots produces the new lot rows a record contributes to its bien.
// A lot slot without a surface is skipped and counted; a (bien, numero)
// pair already known is the same lot seen again, not a new row.
func (b *Builder) BuildLots(record *models.Record, bienID int64) ([]models.Lot, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lots []models.Lot
	skipped := 0
	for _, slot := range record.Lots {
		if slot.SurfaceCarrez == nil {
			skipped++
			continue
		}

		key := lotKey(bienID, slot.Numero)
		if b.lots[key] {
			continue
		}
		b.lots[key] = true

		lots = append(lots, models.Lot{
			ID:            b.nextLotID,
			BienID:        bienID,
			NumeroLot:     slot.Numero,
			SurfaceCarrez: *slot.SurfaceCarrez,
		})
		b.nextLotID++
	}
	return lots, skipped
}

// BuildAssociation produces the mutation-bien link for a record, or
// reports a duplicate when the pair was already linked. The value of the
// first sighting sticks; repeats are never summed or overwritten.
func (b *Builder) BuildAssociation(record *models.Record, bienID int64) (*models.MutationBien, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := pairKey(record.IDMutation, bienID)
	if b.pairs[key] {
		return nil, true
	}
	b.pairs[key] = true

	return &models.MutationBien{
		MutationID:     record.IDMutation,
		BienID:         bienID,
		ValeurFonciere: record.ValeurFonciere,
	}, false
}

func lotKey(bienID int64, numero string) string {
	return strconv.FormatInt(bienID, 10) + "|" + numero
}

func pairKey(mutationID string, bienID int64) string {
	return mutationID + "|" + strconv.FormatInt(bienID, 10)
}
