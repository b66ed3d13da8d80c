package dvferr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := New(KindMalformedRecord, "unparsable date").AddField("date_mutation").AddSource("2024.csv", 12)
	assert.Equal(t, "malformed_record: 2024.csv:12 -> field 'date_mutation': unparsable date", err.Error())
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("bad connection")
	err := Wrap(KindStorageUnavailable, cause, "database unreachable")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad connection")
}

func TestKindClassification(t *testing.T) {
	assert.True(t, IsRowLevel(New(KindMalformedRecord, "x")))
	assert.True(t, IsRowLevel(New(KindInvalidValue, "x")))
	assert.True(t, IsRowLevel(New(KindDuplicateAssociation, "x")))
	assert.False(t, IsRowLevel(New(KindIntegrityConflict, "x")))
	assert.False(t, IsRowLevel(New(KindStorageUnavailable, "x")))
	assert.False(t, IsRowLevel(errors.New("plain")))

	assert.True(t, IsIntegrityConflict(New(KindIntegrityConflict, "x")))
	assert.True(t, IsStorageUnavailable(New(KindStorageUnavailable, "x")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestToHTTPError_StatusMapping(t *testing.T) {
	tests := []struct {
		kind       Kind
		wantStatus int
	}{
		{KindMalformedRecord, http.StatusBadRequest},
		{KindInvalidValue, http.StatusBadRequest},
		{KindDuplicateAssociation, http.StatusConflict},
		{KindStorageUnavailable, http.StatusServiceUnavailable},
		{KindIntegrityConflict, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := ToHTTPError(New(tt.kind, "boom"))
			require.True(t, httperror.IsHTTPError(err))
			assert.Equal(t, tt.wantStatus, httperror.GetStatusCode(err))
		})
	}
}
