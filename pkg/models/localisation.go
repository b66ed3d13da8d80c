package models

import "time"

// Localisation is a geographic location shared by every property that
// sits at the same address. Identity is carried by the fingerprint of
// the address and coordinate fields, not by the surrogate id.
type Localisation struct {
	ID               int64      `db:"id" json:"id"`
	Fingerprint      string     `db:"fingerprint" json:"-"`
	AdresseNumero    *string    `db:"adresse_numero" json:"adresse_numero,omitempty"`
	AdresseSuffixe   *string    `db:"adresse_suffixe" json:"adresse_suffixe,omitempty"`
	AdresseNomVoie   *string    `db:"adresse_nom_voie" json:"adresse_nom_voie,omitempty"`
	CodePostal       *string    `db:"code_postal" json:"code_postal,omitempty"`
	CodeCommune      *string    `db:"code_commune" json:"code_commune,omitempty"`
	CodeDepartement  string     `db:"code_departement" json:"code_departement"`
	NomCommune       *string    `db:"nom_commune" json:"nom_commune,omitempty"`
	Longitude        *float64   `db:"longitude" json:"longitude,omitempty"`
	Latitude         *float64   `db:"latitude" json:"latitude,omitempty"`
	DateLocalisation *time.Time `db:"date_localisation" json:"date_localisation,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
