// ABOUTME: Category catalog snapshot and label resolution
// ABOUTME: Maps free-form labels onto CRM category ids and suggests near matches
package reconcile

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CategoryEntry is one category as stored in the CRM.
type CategoryEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryMap is an immutable catalog snapshot. Build a new one to refresh.
type CategoryMap struct {
	byLabel map[string]string
	names   map[string]string
	entries []CategoryEntry
}

// NewCategoryMap indexes entries by canonical label plus the hyphen-less and
// hyphen-as-space variants of each label. On collisions the first entry wins.
func NewCategoryMap(entries []CategoryEntry) *CategoryMap {
	m := &CategoryMap{
		byLabel: make(map[string]string, len(entries)*2),
		names:   make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		if e.ID == "" || strings.TrimSpace(e.Name) == "" {
			continue
		}
		m.entries = append(m.entries, e)
		m.names[e.ID] = e.Name

		label := canonicalKey(e.Name)
		for _, key := range []string{label, strings.ReplaceAll(label, "-", ""), strings.ReplaceAll(label, "-", " ")} {
			if _, taken := m.byLabel[key]; !taken {
				m.byLabel[key] = e.ID
			}
		}
	}

	sort.SliceStable(m.entries, func(i, j int) bool {
		return strings.ToLower(m.entries[i].Name) < strings.ToLower(m.entries[j].Name)
	})

	return m
}

// Lookup returns the id indexed under the exact canonical label.
func (m *CategoryMap) Lookup(label string) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.byLabel[canonicalKey(label)]
	return id, ok
}

// Len returns the number of categories in the snapshot.
func (m *CategoryMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Name returns the display name for a category id.
func (m *CategoryMap) Name(id string) string {
	if m == nil {
		return ""
	}
	return m.names[id]
}

// Names returns the display names sorted case-insensitively.
func (m *CategoryMap) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		names = append(names, e.Name)
	}
	return names
}

// Entries returns a copy of the catalog entries.
func (m *CategoryMap) Entries() []CategoryEntry {
	if m == nil {
		return nil
	}
	return append([]CategoryEntry(nil), m.entries...)
}

// ResolveCategories maps labels to category ids. Unmatched labels are
// returned as given. Defaults present in the catalog are appended.
func ResolveCategories(labels []string, catalog *CategoryMap, defaults []string) ([]string, []string) {
	var matched, unmatched []string

	for _, label := range labels {
		id, ok := resolveLabel(label, catalog)
		if !ok {
			if strings.TrimSpace(label) != "" {
				unmatched = append(unmatched, label)
			}
			continue
		}
		if !containsString(matched, id) {
			matched = append(matched, id)
		}
	}

	for _, d := range defaults {
		if id, ok := catalog.Lookup(d); ok && !containsString(matched, id) {
			matched = append(matched, id)
		}
	}

	return matched, unmatched
}

func resolveLabel(label string, catalog *CategoryMap) (string, bool) {
	if catalog == nil {
		return "", false
	}
	for _, variant := range labelVariants(label) {
		if id, ok := catalog.byLabel[variant]; ok {
			return id, true
		}
	}
	return "", false
}

// labelVariants lists lookup keys in priority order.
func labelVariants(label string) []string {
	base := canonicalKey(label)
	if base == "" {
		return nil
	}
	return []string{
		base,
		strings.ReplaceAll(base, "-", ""),
		strings.ReplaceAll(base, "-", " "),
		strings.ReplaceAll(base, "_", ""),
		strings.ReplaceAll(base, "_", " "),
	}
}

func canonicalKey(label string) string {
	return norm.NFC.String(CanonicalLabel(label))
}

// SuggestSimilar returns up to limit candidates that contain or are
// contained in label, or share its first letter with a length difference of
// at most two.
func SuggestSimilar(label string, candidates []string, limit int) []string {
	needle := canonicalKey(label)
	if needle == "" || limit <= 0 {
		return nil
	}
	first := []rune(needle)[0]
	needleLen := len([]rune(needle))

	var out []string
	for _, c := range candidates {
		key := canonicalKey(c)
		if key == "" {
			continue
		}
		keyRunes := []rune(key)

		similar := strings.Contains(key, needle) || strings.Contains(needle, key)
		if !similar {
			diff := len(keyRunes) - needleLen
			if diff < 0 {
				diff = -diff
			}
			similar = diff <= 2 && keyRunes[0] == first
		}

		if similar {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
