package models

import "time"

// Record is one validated row of a raw DVF file, typed and ready for
// identity resolution. Optional columns that were absent in the source
// stay nil rather than collapsing to a zero value.
type Record struct {
	Source string
	Line   int

	IDMutation        string
	DateMutation      time.Time
	NumeroDisposition *int
	NatureMutation    *string
	ValeurFonciere    *float64

	AdresseNumero   *string
	AdresseSuffixe  *string
	AdresseNomVoie  *string
	CodePostal      *string
	CodeCommune     *string
	CodeDepartement string
	NomCommune      *string
	Longitude       *float64
	Latitude        *float64

	IDParcelle              *string
	TypeLocal               *string
	SurfaceReelleBati       *float64
	SurfaceTerrain          *float64
	NombrePiecesPrincipales *int

	Lots []RecordLot
}

// RecordLot is one of the up-to-five lot slots of a raw row. Surface
// may be absent even when the lot number is present.
type RecordLot struct {
	Numero        string
	SurfaceCarrez *float64
}
