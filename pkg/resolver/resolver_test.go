package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

type fakeKeyStore struct {
	keys []KeyID
	err  error
}

func (f *fakeKeyStore) LoadKeys(_ context.Context) ([]KeyID, error) {
	return f.keys, f.err
}

type fakeMutationStore struct {
	ids []string
	err error
}

func (f *fakeMutationStore) LoadIDs(_ context.Context) ([]string, error) {
	return f.ids, f.err
}

func newTestResolver(locs, biens []KeyID, mutations []string) *Resolver {
	return New(
		&fakeKeyStore{keys: locs},
		&fakeKeyStore{keys: biens},
		&fakeMutationStore{ids: mutations},
		logging.NewNop(),
	)
}

func strPtr(s string) *string    { return &s }
func floatPtr(f float64) *float64 { return &f }

func testRecord(overrides func(*models.Record)) *models.Record {
	record := &models.Record{
		IDMutation:      "2024-1",
		DateMutation:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		CodeDepartement: "33",
		CodeCommune:     strPtr("33063"),
		NomCommune:      strPtr("Bordeaux"),
		IDParcelle:      strPtr("33063000AB0001"),
		TypeLocal:       strPtr("Appartement"),
	}
	if overrides != nil {
		overrides(record)
	}
	return record
}

func TestResolveLocalisation_SameKeySameID(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	id1, created := r.ResolveLocalisation(testRecord(nil))
	require.NotNil(t, created)
	assert.Equal(t, id1, created.ID)
	assert.Equal(t, "33", created.CodeDepartement)

	id2, repeat := r.ResolveLocalisation(testRecord(nil))
	assert.Equal(t, id1, id2)
	assert.Nil(t, repeat)
}

func TestResolveLocalisation_AnyFieldDifferenceSplitsIdentity(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	base, _ := r.ResolveLocalisation(testRecord(nil))

	differing := []func(*models.Record){
		func(rec *models.Record) { rec.NomCommune = strPtr("Pessac") },
		func(rec *models.Record) { rec.NomCommune = nil },
		func(rec *models.Record) { rec.AdresseNumero = strPtr("12") },
		func(rec *models.Record) { rec.Longitude = floatPtr(-0.5805) },
	}
	seen := map[int64]bool{base: true}
	for _, override := range differing {
		id, entity := r.ResolveLocalisation(testRecord(override))
		assert.NotNil(t, entity)
		assert.False(t, seen[id], "expected a fresh id for a differing key")
		seen[id] = true
	}
}

func TestResolveLocalisation_FirstSeenWins(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	_, first := r.ResolveLocalisation(testRecord(nil))
	require.NotNil(t, first)
	firstDate := *first.DateLocalisation

	later := testRecord(func(rec *models.Record) {
		rec.DateMutation = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	})
	_, repeat := r.ResolveLocalisation(later)
	assert.Nil(t, repeat, "repeat sighting must not produce a new entity")
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), firstDate)
}

func TestResolveBien_ScopedToLocalisation(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	idAtLoc1, created1 := r.ResolveBien(testRecord(nil), 1)
	require.NotNil(t, created1)
	assert.Equal(t, int64(1), created1.LocalisationID)

	idAtLoc2, created2 := r.ResolveBien(testRecord(nil), 2)
	require.NotNil(t, created2)
	assert.NotEqual(t, idAtLoc1, idAtLoc2, "same parcel at another location is another bien")

	repeatID, repeat := r.ResolveBien(testRecord(nil), 1)
	assert.Equal(t, idAtLoc1, repeatID)
	assert.Nil(t, repeat)
}

func TestResolveMutation_NaturalKey(t *testing.T) {
	r := newTestResolver(nil, nil, nil)

	first := r.ResolveMutation(testRecord(nil))
	require.NotNil(t, first)
	assert.Equal(t, "2024-1", first.ID)

	repeat := r.ResolveMutation(testRecord(func(rec *models.Record) {
		rec.NatureMutation = strPtr("Vente")
	}))
	assert.Nil(t, repeat, "mutation-level fields of repeat rows are ignored")

	other := r.ResolveMutation(testRecord(func(rec *models.Record) {
		rec.IDMutation = "2024-2"
	}))
	require.NotNil(t, other)
}

func TestReload_RestartReusesPersistedIDs(t *testing.T) {
	record := testRecord(nil)

	// First process mints ids from scratch.
	first := newTestResolver(nil, nil, nil)
	locID, _ := first.ResolveLocalisation(record)
	bienID, _ := first.ResolveBien(record, locID)

	// Second process starts over a storage already holding those rows.
	second := newTestResolver(
		[]KeyID{{Fingerprint: LocalisationKey(record), ID: locID}},
		[]KeyID{{Fingerprint: BienKey(record, locID), ID: bienID}},
		[]string{record.IDMutation},
	)
	require.NoError(t, second.Reload(context.Background()))

	gotLoc, createdLoc := second.ResolveLocalisation(record)
	assert.Equal(t, locID, gotLoc)
	assert.Nil(t, createdLoc, "persisted entity must not be re-created")

	gotBien, createdBien := second.ResolveBien(record, gotLoc)
	assert.Equal(t, bienID, gotBien)
	assert.Nil(t, createdBien)

	assert.Nil(t, second.ResolveMutation(record))
}

func TestReload_MintsAbovePersistedMax(t *testing.T) {
	r := newTestResolver(
		[]KeyID{{Fingerprint: "aaa", ID: 41}, {Fingerprint: "bbb", ID: 7}},
		nil, nil,
	)
	require.NoError(t, r.Reload(context.Background()))

	id, created := r.ResolveLocalisation(testRecord(nil))
	require.NotNil(t, created)
	assert.Equal(t, int64(42), id)
}

func TestCache_AssignIsSerialized(t *testing.T) {
	cache := NewCache()

	const workers = 16
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		go func() {
			id, _ := cache.Assign("same-key")
			ids <- id
		}()
	}

	first := <-ids
	for i := 1; i < workers; i++ {
		assert.Equal(t, first, <-ids)
	}
	assert.Equal(t, 1, cache.Len())
}
