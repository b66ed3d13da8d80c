package models

import "time"

// Bien is a physical property (parcel, house, apartment). Its identity
// fingerprint includes the localisation it belongs to, so the same
// parcel at two addresses is two distinct biens.
type Bien struct {
	ID                      int64     `db:"id" json:"id"`
	Fingerprint             string    `db:"fingerprint" json:"-"`
	IDParcelle              *string   `db:"id_parcelle" json:"id_parcelle,omitempty"`
	TypeLocal               *string   `db:"type_local" json:"type_local,omitempty"`
	SurfaceReelleBati       *float64  `db:"surface_reelle_bati" json:"surface_reelle_bati,omitempty"`
	SurfaceTerrain          *float64  `db:"surface_terrain" json:"surface_terrain,omitempty"`
	NombrePiecesPrincipales *int      `db:"nombre_pieces_principales" json:"nombre_pieces_principales,omitempty"`
	LocalisationID          int64     `db:"localisation_id" json:"localisation_id"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}

// Lot is a subdivision of a bien (co-ownership lot) with its Carrez
// surface area. A bien carries at most one lot per lot number.
type Lot struct {
	ID            int64     `db:"id" json:"id"`
	BienID        int64     `db:"bien_id" json:"bien_id"`
	NumeroLot     string    `db:"numero_lot" json:"numero_lot"`
	SurfaceCarrez float64   `db:"surface_carrez" json:"surface_carrez"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// MutationBien links a mutation to one of the biens it conveyed, along
// with the declared sale value. The (mutation, bien) pair is unique.
type MutationBien struct {
	MutationID     string    `db:"mutation_id" json:"mutation_id"`
	BienID         int64     `db:"bien_id" json:"bien_id"`
	ValeurFonciere *float64  `db:"valeur_fonciere" json:"valeur_fonciere,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
