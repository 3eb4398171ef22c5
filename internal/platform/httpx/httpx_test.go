package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail bool
	}{
		{"not found", fmt.Errorf("report 1: %w", ErrNotFound), http.StatusNotFound, true},
		{"validation", fmt.Errorf("bad body: %w", ErrValidation), http.StatusBadRequest, true},
		{"unavailable", fmt.Errorf("catalog: %w", ErrUnavailable), http.StatusServiceUnavailable, true},
		{"internal", errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			assert.Equal(t, problemContentType, rr.Header().Get("Content-Type"))

			var body ProblemDetail
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tc.status, body.Status)
			if tc.detail {
				assert.Equal(t, tc.err.Error(), body.Detail)
			} else {
				assert.Empty(t, body.Detail)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(req, &p))
	assert.Equal(t, "x", p.Name)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, DecodeJSON(req, &p))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.ErrorIs(t, DecodeJSON(req, &p), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
	assert.ErrorIs(t, DecodeJSON(req, &p), ErrValidation)
}
