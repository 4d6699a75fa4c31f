// ABOUTME: Splits a record into a compact profile comment and a timeline note
// ABOUTME: Narrative text only ever goes to the append-only timeline
package reconcile

import (
	"fmt"
	"strings"
	"time"
)

const importMarkerLayout = "2006-01-02 15:04"

// Split returns the compact comment for the profile and the timeline note.
// The comment never contains the biography, so repeated imports cannot grow
// the profile with the same narrative.
func Split(c NormalizedContact, confidence Confidence, companyName string, isCompany bool, ts time.Time) (string, string) {
	var lines []string
	if !isCompany && strings.TrimSpace(companyName) != "" {
		lines = append(lines, "Firma: "+strings.TrimSpace(companyName))
	}
	lines = append(lines, ImportMarker(ts, confidence))

	return strings.Join(lines, "\n"), strings.TrimSpace(c.Biography)
}

// ImportMarker is the terminal line of every compact comment.
func ImportMarker(ts time.Time, confidence Confidence) string {
	if confidence == "" {
		confidence = ConfidenceMedium
	}
	return fmt.Sprintf("[KI-Import %s - Confidence: %s]", ts.Format(importMarkerLayout), confidence)
}
