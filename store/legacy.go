// ABOUTME: Import of the legacy processed-message list
// ABOUTME: Reads one md5 key per line and marks each key as processed
package store

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

var legacyKey = regexp.MustCompile(`^[0-9a-f]{32}$`)

// LegacyResult counts what ImportLegacy did.
type LegacyResult struct {
	Imported int
	Existing int
	Invalid  []string
}

// ImportLegacy marks every key read from r. Keys already present are counted
// but not re-marked, so their original expiry stands. With dryRun nothing is
// written.
func (p *Processed) ImportLegacy(r io.Reader, at time.Time, dryRun bool) (LegacyResult, error) {
	var res LegacyResult
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if !legacyKey.MatchString(key) {
			res.Invalid = append(res.Invalid, key)
			continue
		}

		exists, err := p.Seen(key)
		if err != nil {
			return res, err
		}
		if exists {
			res.Existing++
			continue
		}

		if !dryRun {
			if err := p.Mark(key, at); err != nil {
				return res, err
			}
		}
		res.Imported++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("failed to read legacy list: %w", err)
	}

	return res, nil
}
