package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"id":"1"}}`, rec.Body.String())
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid input", map[string]string{"email": "is required"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.Equal(t, map[string]any{"email": "is required"}, errObj["details"])
}

func TestErrorEnvelope_OmitsEmptyDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token", nil)
	assert.JSONEq(t, `{"success":false,"error":{"code":"TOKEN_INVALID","message":"invalid token"}}`, rec.Body.String())
}

func TestRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimited(rec, 1500*time.Millisecond)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	RateLimited(rec, 10*time.Millisecond)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestDecodeJSON(t *testing.T) {
	type in struct {
		Email string `json:"email"`
	}

	var ok in
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`))
	require.NoError(t, DecodeJSON(r, &ok))
	assert.Equal(t, "a@b.c", ok.Email)

	for _, body := range []string{`{"email":"a","extra":1}`, `not json`, `{"email":"a"}{"email":"b"}`, ``} {
		var dst in
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		assert.ErrorIs(t, DecodeJSON(r, &dst), ErrBadBody, body)
	}
}
