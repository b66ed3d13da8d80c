package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/dvferr"
)

var testHeader = []string{
	"id_mutation", "date_mutation", "numero_disposition", "nature_mutation", "valeur_fonciere",
	"adresse_numero", "adresse_suffixe", "adresse_nom_voie", "code_postal", "code_commune",
	"code_departement", "nom_commune", "longitude", "latitude",
	"id_parcelle", "surface_reelle_bati", "surface_terrain", "nombre_pieces_principales", "type_local",
	"lot1_numero", "lot1_surface_carrez", "lot2_numero", "lot2_surface_carrez",
}

func testRow(overrides map[string]string) []string {
	base := map[string]string{
		"id_mutation":               "2024-1",
		"date_mutation":             "2024-01-15",
		"numero_disposition":        "1",
		"nature_mutation":           "Vente",
		"valeur_fonciere":           "200000",
		"adresse_numero":            "12",
		"adresse_nom_voie":          "RUE SAINTE CATHERINE",
		"code_postal":               "33000",
		"code_commune":              "33063",
		"code_departement":          "33",
		"nom_commune":               "Bordeaux",
		"longitude":                 "-0.5805",
		"latitude":                  "44.8378",
		"id_parcelle":               "33063000AB0001",
		"surface_reelle_bati":       "80",
		"type_local":                "Appartement",
		"nombre_pieces_principales": "3",
	}
	for k, v := range overrides {
		base[k] = v
	}

	row := make([]string, len(testHeader))
	for i, column := range testHeader {
		row[i] = base[column]
	}
	return row
}

func TestNew_MissingRequiredColumn(t *testing.T) {
	_, err := New([]string{"id_mutation", "date_mutation"})
	require.Error(t, err)
	assert.Equal(t, dvferr.KindMalformedRecord, dvferr.KindOf(err))
}

func TestParse_FullRow(t *testing.T) {
	p, err := New(testHeader)
	require.NoError(t, err)

	record, err := p.Parse("2024.csv", 2, testRow(map[string]string{
		"lot1_numero":         "L1",
		"lot1_surface_carrez": "30,5",
	}))
	require.NoError(t, err)

	assert.Equal(t, "2024-1", record.IDMutation)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), record.DateMutation)
	assert.Equal(t, "33", record.CodeDepartement)
	require.NotNil(t, record.ValeurFonciere)
	assert.Equal(t, 200000.0, *record.ValeurFonciere)
	require.NotNil(t, record.Longitude)
	assert.Equal(t, -0.5805, *record.Longitude)
	require.NotNil(t, record.NombrePiecesPrincipales)
	assert.Equal(t, 3, *record.NombrePiecesPrincipales)
	require.Len(t, record.Lots, 1)
	assert.Equal(t, "L1", record.Lots[0].Numero)
	require.NotNil(t, record.Lots[0].SurfaceCarrez)
	assert.Equal(t, 30.5, *record.Lots[0].SurfaceCarrez)
}

func TestParse_BlankOptionalBecomesAbsent(t *testing.T) {
	p, err := New(testHeader)
	require.NoError(t, err)

	record, err := p.Parse("2024.csv", 3, testRow(map[string]string{
		"valeur_fonciere": "   ",
		"adresse_numero":  "",
		"longitude":       "",
	}))
	require.NoError(t, err)

	assert.Nil(t, record.ValeurFonciere)
	assert.Nil(t, record.AdresseNumero)
	assert.Nil(t, record.Longitude)
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantKind  dvferr.Kind
	}{
		{
			name:      "unparsable date",
			overrides: map[string]string{"date_mutation": "not-a-date"},
			wantKind:  dvferr.KindMalformedRecord,
		},
		{
			name:      "missing mutation id",
			overrides: map[string]string{"id_mutation": ""},
			wantKind:  dvferr.KindMalformedRecord,
		},
		{
			name:      "missing department",
			overrides: map[string]string{"code_departement": " "},
			wantKind:  dvferr.KindMalformedRecord,
		},
		{
			name:      "unparsable value",
			overrides: map[string]string{"valeur_fonciere": "abc"},
			wantKind:  dvferr.KindMalformedRecord,
		},
		{
			name:      "negative surface",
			overrides: map[string]string{"surface_reelle_bati": "-10"},
			wantKind:  dvferr.KindInvalidValue,
		},
		{
			name:      "negative value",
			overrides: map[string]string{"valeur_fonciere": "-1"},
			wantKind:  dvferr.KindInvalidValue,
		},
		{
			name:      "negative room count",
			overrides: map[string]string{"nombre_pieces_principales": "-2"},
			wantKind:  dvferr.KindInvalidValue,
		},
		{
			name:      "NaN value",
			overrides: map[string]string{"valeur_fonciere": "NaN"},
			wantKind:  dvferr.KindMalformedRecord,
		},
		{
			name:      "infinite surface",
			overrides: map[string]string{"surface_reelle_bati": "Inf"},
			wantKind:  dvferr.KindMalformedRecord,
		},
	}

	p, err := New(testHeader)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse("2024.csv", 4, testRow(tt.overrides))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, dvferr.KindOf(err))
			assert.True(t, dvferr.IsRowLevel(err))
		})
	}
}

func TestParse_FrenchFormats(t *testing.T) {
	p, err := New(testHeader)
	require.NoError(t, err)

	record, err := p.Parse("2024.csv", 5, testRow(map[string]string{
		"date_mutation":   "15/01/2024",
		"valeur_fonciere": "1 234 567,89",
	}))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), record.DateMutation)
	require.NotNil(t, record.ValeurFonciere)
	assert.Equal(t, 1234567.89, *record.ValeurFonciere)
}

func TestParse_IntegerShippedAsFloat(t *testing.T) {
	p, err := New(testHeader)
	require.NoError(t, err)

	record, err := p.Parse("2024.csv", 6, testRow(map[string]string{
		"nombre_pieces_principales": "4.0",
	}))
	require.NoError(t, err)
	require.NotNil(t, record.NombrePiecesPrincipales)
	assert.Equal(t, 4, *record.NombrePiecesPrincipales)
}

func TestParse_LotWithoutSurfaceKept(t *testing.T) {
	p, err := New(testHeader)
	require.NoError(t, err)

	record, err := p.Parse("2024.csv", 7, testRow(map[string]string{
		"lot1_numero": "L1",
		"lot2_numero": "L2", "lot2_surface_carrez": "10",
	}))
	require.NoError(t, err)

	require.Len(t, record.Lots, 2)
	assert.Nil(t, record.Lots[0].SurfaceCarrez)
	require.NotNil(t, record.Lots[1].SurfaceCarrez)
	assert.Equal(t, 10.0, *record.Lots[1].SurfaceCarrez)
}
