package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOk(t *testing.T) {
	// given
	rec := httptest.NewRecorder()

	// when
	WriteOk(rec, map[string]string{"event_id": "abc"})

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, map[string]any{"event_id": "abc"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestWriteError(t *testing.T) {
	// given
	rec := httptest.NewRecorder()

	// when
	WriteError(rec, http.StatusBadRequest, ErrorInvalidInput, "")

	// then
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"invalid_input"}`, rec.Body.String())
}
