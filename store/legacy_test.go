// ABOUTME: Tests for importing the legacy processed-message list
// ABOUTME: Covers dedupe, invalid lines, existing keys and dry runs
package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA = "0cc175b9c0f1b6a831c399e269772661"
	keyB = "92eb5ffee6ae2fec3ad71c777531578f"
)

func TestImportLegacy(t *testing.T) {
	p := newTestStore(t, time.Hour)
	require.NoError(t, p.Mark(keyB, time.Now()))

	list := strings.Join([]string{keyA, "", keyA, strings.ToUpper(keyB), "not-a-key"}, "\n")
	res, err := p.ImportLegacy(strings.NewReader(list), time.Now(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Existing)
	assert.Equal(t, []string{"not-a-key"}, res.Invalid)

	seen, err := p.Seen(keyA)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestImportLegacyDryRun(t *testing.T) {
	p := newTestStore(t, time.Hour)

	res, err := p.ImportLegacy(strings.NewReader(keyA+"\n"), time.Now(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	seen, err := p.Seen(keyA)
	require.NoError(t, err)
	assert.False(t, seen)
}
