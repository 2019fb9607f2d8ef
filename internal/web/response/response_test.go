package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomd/metaschema/internal/validation"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRenderError(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderError(rec, http.StatusNotFound, errors.New("type \"Foo\" not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decodeError(t, rec)
	assert.Equal(t, "error", body.Error)
	assert.Equal(t, "not_found", body.Code)
	assert.Equal(t, `type "Foo" not found`, body.Message)
}

func TestRenderErrorWithCode(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderErrorWithCode(rec, http.StatusBadRequest, errors.New("bad"), "invalid_json")
	assert.Equal(t, "invalid_json", decodeError(t, rec).Code)
}

func TestRenderErrorWithValidationError(t *testing.T) {
	vs := validation.Violations{{
		FieldPath: "abstract",
		Kind:      validation.MissingRequiredField,
		Severity:  validation.SeverityError,
		Message:   "required field is missing",
	}}

	rec := httptest.NewRecorder()
	RenderError(rec, http.StatusBadRequest, vs.Err())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.False(t, body.Report.Valid)
	require.Len(t, body.Report.Violations, 1)
	assert.Equal(t, "abstract", body.Report.Violations[0].FieldPath)
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		name   string
		render func(http.ResponseWriter)
		status int
		code   string
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { RenderBadRequest(w, "no body") }, http.StatusBadRequest, "bad_request", "no body"},
		{"unauthorized", func(w http.ResponseWriter) { RenderUnauthorized(w, "") }, http.StatusUnauthorized, "unauthorized", "Authentication required"},
		{"forbidden", func(w http.ResponseWriter) { RenderForbidden(w, "") }, http.StatusForbidden, "forbidden", "Access denied"},
		{"not found", func(w http.ResponseWriter) { RenderNotFound(w, "") }, http.StatusNotFound, "not_found", "Resource not found"},
		{"internal", func(w http.ResponseWriter) { RenderInternalError(w) }, http.StatusInternalServerError, "internal_error", "internal server error"},
		{"unavailable", func(w http.ResponseWriter) { RenderServiceUnavailable(w, "") }, http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.render(rec)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.msg, body.Message)
		})
	}
}

func TestRenderUnauthorizedChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderUnauthorized(rec, "token expired")
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestRenderErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderErrorWithDetails(rec, http.StatusBadRequest, errors.New("unknown rule"),
		map[string]interface{}{"available": []string{"georectified-corner-points"}})

	body := decodeError(t, rec)
	assert.Equal(t, "bad_request", body.Code)
	assert.Contains(t, body.Details, "available")
}

func TestStreamJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := NewStreamer(rec)
	require.NoError(t, err)

	objects := make(chan interface{}, 2)
	objects <- map[string]string{"id": "a"}
	objects <- map[string]string{"id": "b"}
	close(objects)

	require.NoError(t, s.StreamJSON(objects))
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, []string{`{"id":"a"}`, `{"id":"b"}`}, lines)
	assert.True(t, rec.Flushed)
}

type plainWriter struct{ http.ResponseWriter }

func TestNewStreamerRequiresFlusher(t *testing.T) {
	_, err := NewStreamer(plainWriter{httptest.NewRecorder()})
	assert.Error(t, err)
}
