package resolver

import (
	"strconv"

	"github.com/Ramsey-B/sorrel/pkg/fingerprint"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

// LocalisationKey fingerprints the full address + commune + coordinate
// tuple. Absent fields hash as a distinguished null, so an unknown street
// number never collides with a known one.
func LocalisationKey(record *models.Record) string {
	return fingerprint.Generate(map[string]any{
		"adresse_numero":   fingerprint.StringValue(record.AdresseNumero),
		"adresse_suffixe":  fingerprint.StringValue(record.AdresseSuffixe),
		"adresse_nom_voie": fingerprint.StringValue(record.AdresseNomVoie),
		"code_postal":      fingerprint.StringValue(record.CodePostal),
		"code_commune":     fingerprint.StringValue(record.CodeCommune),
		"code_departement": record.CodeDepartement,
		"nom_commune":      fingerprint.StringValue(record.NomCommune),
		"longitude":        fingerprint.FloatValue(record.Longitude),
		"latitude":         fingerprint.FloatValue(record.Latitude),
	})
}

// BienKey fingerprints the property's descriptive tuple scoped to its
// resolved localisation, so the same parcel at two locations stays two
// distinct properties.
func BienKey(record *models.Record, localisationID int64) string {
	return fingerprint.Generate(map[string]any{
		"id_parcelle":               fingerprint.StringValue(record.IDParcelle),
		"localisation_id":           strconv.FormatInt(localisationID, 10),
		"type_local":                fingerprint.StringValue(record.TypeLocal),
		"surface_reelle_bati":       fingerprint.FloatValue(record.SurfaceReelleBati),
		"surface_terrain":           fingerprint.FloatValue(record.SurfaceTerrain),
		"nombre_pieces_principales": fingerprint.IntValue(record.NombrePiecesPrincipales),
	})
}
