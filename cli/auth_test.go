// ABOUTME: Tests for the OAuth callback handler and manual code entry
// ABOUTME: Checks state validation and code reading from a non-terminal input
package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  string
	}{
		{"valid", "?state=s1&code=abc", "abc", ""},
		{"wrong state", "?state=other&code=abc", "", "state mismatch"},
		{"missing code", "?state=s1", "", "no authorization code"},
		{"denied", "?error=access_denied", "", "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", codes, errs).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback"+tt.query, nil))

			if tt.wantErr == "" {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, tt.wantCode, <-codes)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.ErrorContains(t, <-errs, tt.wantErr)
		})
	}
}

func TestReadCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code")
	require.NoError(t, os.WriteFile(path, []byte("  4/abc-code \n"), 0o600))
	in, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = in.Close() }()

	var out bytes.Buffer
	code, err := readCode(&out, in, "https://accounts.example/auth")
	require.NoError(t, err)
	assert.Equal(t, "4/abc-code", code)
	assert.Contains(t, out.String(), "https://accounts.example/auth")

	empty, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer func() { _ = empty.Close() }()
	_, err = readCode(&out, empty, "u")
	assert.EqualError(t, err, "no authorization code given")
}
