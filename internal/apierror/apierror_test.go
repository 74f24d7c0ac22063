package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *ServerError
		want int
	}{
		{"access denied", AccessDenied(), http.StatusForbidden},
		{"permission", Permission([]string{"WriteAdmin"}), http.StatusForbidden},
		{"not found", NotFound("game"), http.StatusNotFound},
		{"jwt", JwtVerification("bad kid"), http.StatusUnauthorized},
		{"api", Api(http.StatusConflict, "taken"), http.StatusConflict},
		{"api with bogus code", Api(42, "odd"), http.StatusBadRequest},
		{"gs client", GSClient(502, "down"), http.StatusServiceUnavailable},
		{"internal", Internal("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("user"))
	assert.Equal(t, KindNotFound, From(wrapped).Kind)

	plain := errors.New("db exploded")
	se := From(plain)
	assert.Equal(t, KindInternal, se.Kind)
	assert.ErrorIs(t, se, plain)
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		wantError   string
		wantMissing []string
	}{
		{
			name:        "permission lists missing names",
			err:         Permission([]string{"WriteAdmin"}),
			status:      http.StatusForbidden,
			wantError:   "missing permissions",
			wantMissing: []string{"WriteAdmin"},
		},
		{
			name:      "internal hides details",
			err:       Internal("sync error", errors.New("secret detail")),
			status:    http.StatusInternalServerError,
			wantError: "internal server error",
		},
		{
			name:      "upstream hides body",
			err:       GSClient(500, "stack trace"),
			status:    http.StatusServiceUnavailable,
			wantError: "game session service unavailable",
		},
		{
			name:      "bad request keeps message",
			err:       BadRequest("invalid game key"),
			status:    http.StatusBadRequest,
			wantError: "invalid game key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, httptest.NewRequest(http.MethodGet, "/x", nil), nil, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantMissing, body.Missing)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}
