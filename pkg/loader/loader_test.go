package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/dvferr"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
)

func TestBatch_EmptyAndSize(t *testing.T) {
	batch := &Batch{}
	assert.True(t, batch.Empty())
	assert.Zero(t, batch.Size())

	batch.Localisations = append(batch.Localisations, models.Localisation{ID: 1})
	batch.MutationBiens = append(batch.MutationBiens, models.MutationBien{MutationID: "M1", BienID: 1})
	assert.False(t, batch.Empty())
	assert.Equal(t, 2, batch.Size())
}

func TestCompareKeys_StoredMatchesAssigned(t *testing.T) {
	assigned := map[string]int64{"aaa": 1, "bbb": 2}
	stored := []resolver.KeyID{
		{Fingerprint: "aaa", ID: 1},
		{Fingerprint: "bbb", ID: 2},
	}

	assert.NoError(t, compareKeys(assigned, stored, "localisation"))
}

func TestCompareKeys_ConflictConfirmsResolution(t *testing.T) {
	// A fingerprint whose insert conflicted still reads back with the id
	// the resolver assigned: not an error.
	assigned := map[string]int64{"aaa": 7}
	stored := []resolver.KeyID{{Fingerprint: "aaa", ID: 7}}

	assert.NoError(t, compareKeys(assigned, stored, "bien"))
}

func TestCompareKeys_DivergedIDIsIntegrityConflict(t *testing.T) {
	assigned := map[string]int64{"aaa": 7}
	stored := []resolver.KeyID{{Fingerprint: "aaa", ID: 3}}

	err := compareKeys(assigned, stored, "localisation")
	require.Error(t, err)
	assert.True(t, dvferr.IsIntegrityConflict(err))
}

func TestCompareKeys_MissingRowIsIntegrityConflict(t *testing.T) {
	assigned := map[string]int64{"aaa": 7}

	err := compareKeys(assigned, nil, "bien")
	require.Error(t, err)
	assert.True(t, dvferr.IsIntegrityConflict(err))
}
