package domain

import "strings"

// MaxLocationsPerItem caps how many places a single news item is tagged with.
const MaxLocationsPerItem = 5

// Tagger finds gazetteer names mentioned in free text.
//
// Matching is a case-insensitive substring test with no word boundaries, so
// "IRANIAN" tags Iran. That coarseness is intentional and covered by tests.
type Tagger struct {
	names []string
	upper []string
}

// NewTagger prepares a tagger over g. The gazetteer's declaration order
// decides which names win when the cap is reached.
func NewTagger(g *Gazetteer) *Tagger {
	entries := g.All()
	t := &Tagger{
		names: make([]string, len(entries)),
		upper: make([]string, len(entries)),
	}
	for i, e := range entries {
		t.names[i] = e.Name
		t.upper[i] = strings.ToUpper(e.Name)
	}
	return t
}

// Tag returns the canonical names found in text, without duplicates, in
// gazetteer order, at most MaxLocationsPerItem of them.
func (t *Tagger) Tag(text string) []string {
	found := make([]string, 0, MaxLocationsPerItem)
	if text == "" {
		return found
	}

	haystack := strings.ToUpper(text)
	seen := make(map[string]struct{}, MaxLocationsPerItem)
	for i, needle := range t.upper {
		if !strings.Contains(haystack, needle) {
			continue
		}
		name := t.names[i]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		found = append(found, name)
		if len(found) == MaxLocationsPerItem {
			break
		}
	}
	return found
}
