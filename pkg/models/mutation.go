package models

import "time"

// Mutation is a notarial transaction event. Its natural identifier comes
// straight from the source data, so the same mutation seen in two files
// or two runs resolves to the same row.
type Mutation struct {
	ID                string    `db:"id" json:"id"`
	DateMutation      time.Time `db:"date_mutation" json:"date_mutation"`
	NumeroDisposition *int      `db:"numero_disposition" json:"numero_disposition,omitempty"`
	NatureMutation    *string   `db:"nature_mutation" json:"nature_mutation,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
