// ABOUTME: Reachability and maintenance detection for the Odoo web frontend
// ABOUTME: Classifies HTTP responses and extracts announced maintenance windows
package crm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Status describes whether the CRM web frontend is usable right now.
type Status struct {
	Available    bool
	StatusCode   int
	Maintenance  bool
	Message      string
	Window       string
	ResponseTime time.Duration
}

var maintenanceIndicators = []string{
	"maintenance", "wartung", "upgrade", "scheduled downtime",
	"temporarily unavailable", "service unavailable",
	"under maintenance", "system upgrade",
}

var maintenanceWindow = regexp.MustCompile(`(\d{1,2}:\d{2}[-–]\d{1,2}:\d{2})`)

// CheckStatus fetches the Odoo base URL and looks for signs of maintenance.
// Transport failures are reported in the Status rather than as errors.
func CheckStatus(ctx context.Context, client *http.Client, url string) Status {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(strings.Replace(url, "/web", "", 1), "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return Status{Message: fmt.Sprintf("Unbekannter Fehler: %v", err)}
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Status{Maintenance: true, ResponseTime: elapsed, Message: "Timeout - Server nicht erreichbar (möglicherweise Wartung)"}
		}
		return Status{Maintenance: true, ResponseTime: elapsed, Message: "Verbindungsfehler - Server nicht erreichbar"}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	status := Status{
		Available:    resp.StatusCode == http.StatusOK,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		status.Maintenance = true
		status.Message = "Server temporär nicht verfügbar (möglicherweise Wartung)"
	}

	lower := strings.ToLower(string(body))
	for _, indicator := range maintenanceIndicators {
		if strings.Contains(lower, indicator) {
			status.Maintenance = true
			status.Message = "Wartungsmodus erkannt: " + indicator
			break
		}
	}

	if status.Maintenance {
		if m := maintenanceWindow.FindStringSubmatch(string(body)); m != nil {
			status.Window = m[1]
			status.Message += " (Zeitfenster: " + m[1] + ")"
		}
	}
	return status
}
