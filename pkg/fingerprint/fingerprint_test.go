package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Deterministic(t *testing.T) {
	data := map[string]any{
		"code_departement": "33",
		"code_commune":     "33063",
		"longitude":        -0.5805,
		"latitude":         44.8378,
	}

	first := Generate(data)
	second := Generate(map[string]any{
		"latitude":         44.8378,
		"longitude":        -0.5805,
		"code_commune":     "33063",
		"code_departement": "33",
	})

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestGenerate_NullDistinctFromEmpty(t *testing.T) {
	withNull := Generate(map[string]any{"adresse_suffixe": nil})
	withEmpty := Generate(map[string]any{"adresse_suffixe": ""})
	withZero := Generate(map[string]any{"adresse_suffixe": 0})

	assert.NotEqual(t, withNull, withEmpty)
	assert.NotEqual(t, withNull, withZero)
	assert.NotEqual(t, withEmpty, withZero)
}

func TestGenerate_FieldValueChangesHash(t *testing.T) {
	base := map[string]any{"id_parcelle": "33063000AB0001", "type_local": "Maison"}
	changed := map[string]any{"id_parcelle": "33063000AB0001", "type_local": "Appartement"}

	assert.NotEqual(t, Generate(base), Generate(changed))
}

func TestOptionalValueHelpers(t *testing.T) {
	s := "12"
	f := 44.8378
	i := 3

	assert.Equal(t, "12", StringValue(&s))
	assert.Nil(t, StringValue(nil))
	assert.Equal(t, 44.8378, FloatValue(&f))
	assert.Nil(t, FloatValue(nil))
	assert.Equal(t, 3, IntValue(&i))
	assert.Nil(t, IntValue(nil))
}
