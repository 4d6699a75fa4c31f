// ABOUTME: Tests for the Odoo maintenance status check
// ABOUTME: Covers healthy, gateway error, maintenance page and unreachable servers
package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		body        string
		available   bool
		maintenance bool
		window      string
	}{
		{"healthy", http.StatusOK, "<html>Odoo</html>", true, false, ""},
		{"gateway error", http.StatusBadGateway, "", false, true, ""},
		{"maintenance page", http.StatusOK, "Geplante Wartung 22:00-23:30", true, true, "22:00-23:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/", r.URL.Path)
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := CheckStatus(context.Background(), srv.Client(), srv.URL+"/web")
			assert.Equal(t, tt.available, s.Available)
			assert.Equal(t, tt.maintenance, s.Maintenance)
			assert.Equal(t, tt.code, s.StatusCode)
			assert.Equal(t, tt.window, s.Window)
		})
	}
}

func TestCheckStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := CheckStatus(context.Background(), nil, url)
	assert.False(t, s.Available)
	assert.True(t, s.Maintenance)
	assert.Contains(t, s.Message, "Server nicht erreichbar")
}
