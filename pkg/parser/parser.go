// Package parser turns raw DVF rows into typed records. Parsing is the
// strict boundary of the pipeline: a field either coerces to its semantic
// type here or the row is rejected, nothing downstream re-cleans values.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/dvferr"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

const maxLotSlots = 5

var requiredColumns = []string{"id_mutation", "date_mutation", "code_departement"}

// Parser maps positional row values onto named columns using the header
// of the source file. One Parser instance serves one file.
type Parser struct {
	columns map[string]int
}

// New builds a Parser from a file header. The header must name every
// required column; optional columns may be absent entirely.
func New(header []string) (*Parser, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, dvferr.Newf(dvferr.KindMalformedRecord, "missing required column %q", required).AddField(required)
		}
	}

	return &Parser{columns: columns}, nil
}

// Parse converts one raw row into a Record. Rejections carry the source
// and line so the run summary can point at the offending row.
func (p *Parser) Parse(source string, line int, row []string) (*models.Record, error) {
	record := &models.Record{Source: source, Line: line}

	var err error
	if record.IDMutation, err = p.requiredString(row, "id_mutation"); err != nil {
		return nil, withOrigin(err, source, line)
	}
	if record.DateMutation, err = p.requiredDate(row, "date_mutation"); err != nil {
		return nil, withOrigin(err, source, line)
	}
	if record.CodeDepartement, err = p.requiredString(row, "code_departement"); err != nil {
		return nil, withOrigin(err, source, line)
	}

	if record.NumeroDisposition, err = p.optionalInt(row, "numero_disposition"); err != nil {
		return nil, withOrigin(err, source, line)
	}
	record.NatureMutation = p.optionalString(row, "nature_mutation")
	if record.ValeurFonciere, err = p.optionalNonNegativeFloat(row, "valeur_fonciere"); err != nil {
		return nil, withOrigin(err, source, line)
	}

	record.AdresseNumero = p.optionalString(row, "adresse_numero")
	record.AdresseSuffixe = p.optionalString(row, "adresse_suffixe")
	record.AdresseNomVoie = p.optionalString(row, "adresse_nom_voie")
	record.CodePostal = p.optionalString(row, "code_postal")
	record.CodeCommune = p.optionalString(row, "code_commune")
	record.NomCommune = p.optionalString(row, "nom_commune")
	if record.Longitude, err = p.optionalFloat(row, "longitude"); err != nil {
		return nil, withOrigin(err, source, line)
	}
	if record.Latitude, err = p.optionalFloat(row, "latitude"); err != nil {
		return nil, withOrigin(err, source, line)
	}

	record.IDParcelle = p.optionalString(row, "id_parcelle")
	record.TypeLocal = p.optionalString(row, "type_local")
	if record.SurfaceReelleBati, err = p.optionalNonNegativeFloat(row, "surface_reelle_bati"); err != nil {
		return nil, withOrigin(err, source, line)
	}
	if record.SurfaceTerrain, err = p.optionalNonNegativeFloat(row, "surface_terrain"); err != nil {
		return nil, withOrigin(err, source, line)
	}
	if record.NombrePiecesPrincipales, err = p.optionalNonNegativeInt(row, "nombre_pieces_principales"); err != nil {
		return nil, withOrigin(err, source, line)
	}

	if record.Lots, err = p.parseLots(row); err != nil {
		return nil, withOrigin(err, source, line)
	}

	return record, nil
}

func (p *Parser) parseLots(row []string) ([]models.RecordLot, error) {
	var lots []models.RecordLot
	for slot := 1; slot <= maxLotSlots; slot++ {
		prefix := "lot" + strconv.Itoa(slot)
		numero := p.optionalString(row, prefix+"_numero")
		if numero == nil {
			continue
		}
		surface, err := p.optionalNonNegativeFloat(row, prefix+"_surface_carrez")
		if err != nil {
			return nil, err
		}
		lots = append(lots, models.RecordLot{Numero: *numero, SurfaceCarrez: surface})
	}
	return lots, nil
}

// raw returns the trimmed cell for a column, or absent when the column
// is missing from this file or the cell is blank.
func (p *Parser) raw(row []string, column string) (string, bool) {
	idx, ok := p.columns[column]
	if !ok || idx >= len(row) {
		return "", false
	}
	value := strings.TrimSpace(row[idx])
	if value == "" {
		return "", false
	}
	return value, true
}

func (p *Parser) requiredString(row []string, column string) (string, error) {
	value, ok := p.raw(row, column)
	if !ok {
		return "", dvferr.New(dvferr.KindMalformedRecord, "required field is empty").AddField(column)
	}
	return value, nil
}

func (p *Parser) optionalString(row []string, column string) *string {
	value, ok := p.raw(row, column)
	if !ok {
		return nil
	}
	return &value
}

func (p *Parser) requiredDate(row []string, column string) (time.Time, error) {
	value, ok := p.raw(row, column)
	if !ok {
		return time.Time{}, dvferr.New(dvferr.KindMalformedRecord, "required field is empty").AddField(column)
	}
	parsed, err := parseDate(value)
	if err != nil {
		return time.Time{}, dvferr.Wrap(dvferr.KindMalformedRecord, err, "unparsable date").AddField(column)
	}
	return parsed, nil
}

func (p *Parser) optionalFloat(row []string, column string) (*float64, error) {
	value, ok := p.raw(row, column)
	if !ok {
		return nil, nil
	}
	parsed, err := parseDecimal(value)
	if err != nil {
		return nil, dvferr.Wrap(dvferr.KindMalformedRecord, err, "unparsable number").AddField(column)
	}
	return &parsed, nil
}

func (p *Parser) optionalNonNegativeFloat(row []string, column string) (*float64, error) {
	parsed, err := p.optionalFloat(row, column)
	if err != nil {
		return nil, err
	}
	if parsed != nil && *parsed < 0 {
		return nil, dvferr.Newf(dvferr.KindInvalidValue, "negative value %v", *parsed).AddField(column)
	}
	return parsed, nil
}

func (p *Parser) optionalInt(row []string, column string) (*int, error) {
	value, ok := p.raw(row, column)
	if !ok {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		// Some files ship integer columns as "4.0"
		asFloat, ferr := parseDecimal(value)
		if ferr != nil || asFloat != float64(int(asFloat)) {
			return nil, dvferr.Wrap(dvferr.KindMalformedRecord, err, "unparsable integer").AddField(column)
		}
		parsed = int(asFloat)
	}
	return &parsed, nil
}

func (p *Parser) optionalNonNegativeInt(row []string, column string) (*int, error) {
	parsed, err := p.optionalInt(row, column)
	if err != nil {
		return nil, err
	}
	if parsed != nil && *parsed < 0 {
		return nil, dvferr.Newf(dvferr.KindInvalidValue, "negative value %d", *parsed).AddField(column)
	}
	return parsed, nil
}

// parseDecimal accepts both "1234.56" and the French "1 234,56".
func parseDecimal(value string) (float64, error) {
	normalized := strings.ReplaceAll(value, " ", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	parsed, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, err
	}
	// ParseFloat also accepts "NaN" and "Inf"; neither is a usable amount
	// or coordinate.
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("non-finite value %q", value)
	}
	return parsed, nil
}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func withOrigin(err error, source string, line int) error {
	var e *dvferr.Error
	if errors.As(err, &e) {
		return e.AddSource(source, line)
	}
	return err
}
