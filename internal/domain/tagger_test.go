package domain

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTagger(t *testing.T, names ...string) *Tagger {
	t.Helper()
	entries := make([]GazetteerEntry, len(names))
	for i, n := range names {
		entries[i] = GazetteerEntry{Name: n}
	}
	g, err := NewGazetteer(entries)
	require.NoError(t, err)
	return NewTagger(g)
}

func TestTagger_DeclarationOrder(t *testing.T) {
	text := "Tensions rise between Iran and Israel near Gaza"

	custom := testTagger(t, "Iran", "Israel", "Gaza")
	assert.Equal(t, []string{"Iran", "Israel", "Gaza"}, custom.Tag(text))

	// The built-in table lists Israel and Gaza before Iran.
	builtin := NewTagger(DefaultGazetteer())
	assert.Equal(t, []string{"Israel", "Gaza", "Iran"}, builtin.Tag(text))
}

func TestTagger_CaseInsensitive(t *testing.T) {
	tagger := testTagger(t, "Ukraine", "Russia")

	assert.Equal(t, []string{"Ukraine", "Russia"}, tagger.Tag("russia and UKRAINE talks"))
}

func TestTagger_SubstringWithoutWordBoundaries(t *testing.T) {
	tagger := testTagger(t, "Iran", "UK")

	// "IRANIAN" contains "IRAN"; "UKULELE" contains "UK".
	assert.Equal(t, []string{"Iran", "UK"}, tagger.Tag("Iranian ukulele festival"))
}

func TestTagger_OverlappingNamesBothMatch(t *testing.T) {
	tagger := NewTagger(DefaultGazetteer())

	assert.Equal(t, []string{"Africa", "South Africa"}, tagger.Tag("South Africa hosts summit"))
}

func TestTagger_CapsAtFive(t *testing.T) {
	tagger := testTagger(t, "Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf")

	got := tagger.Tag("golf foxtrot echo delta charlie bravo alpha")
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}, got)
	assert.Len(t, got, MaxLocationsPerItem)
}

func TestTagger_RepeatedMentionsCountOnce(t *testing.T) {
	tagger := testTagger(t, "Gaza")

	assert.Equal(t, []string{"Gaza"}, tagger.Tag("Gaza, Gaza and more Gaza"))
}

func TestTagger_EmptyAndNoMatch(t *testing.T) {
	tagger := NewTagger(DefaultGazetteer())

	got := tagger.Tag("")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, tagger.Tag("Weather is mild today"))
}

func TestTagger_ResultsAreGazetteerNames(t *testing.T) {
	g := DefaultGazetteer()
	tagger := NewTagger(g)

	for _, name := range tagger.Tag("usa, china and the middle east discuss nato expansion") {
		_, ok := g.Lookup(name)
		assert.True(t, ok, "unexpected tag %q", name)
	}
}

func gazetteerNames(g *Gazetteer) []string {
	entries := g.All()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func assertTagInvariants(t *testing.T, g *Gazetteer, text string, got []string) {
	t.Helper()
	assert.LessOrEqual(t, len(got), MaxLocationsPerItem, "too many tags for %q", text)

	seen := make(map[string]struct{}, len(got))
	for _, name := range got {
		_, dup := seen[name]
		assert.False(t, dup, "duplicate tag %q for %q", name, text)
		seen[name] = struct{}{}

		_, ok := g.Lookup(name)
		assert.True(t, ok, "tag %q for %q is not a gazetteer name", name, text)
	}
}

func TestTagger_InvariantsOverGazetteerNames(t *testing.T) {
	g := DefaultGazetteer()
	tagger := NewTagger(g)
	names := gazetteerNames(g)

	reversed := slices.Clone(names)
	slices.Reverse(reversed)

	tests := []struct {
		name string
		text string
	}{
		{"all names", strings.Join(names, " ")},
		{"all names reversed", strings.Join(reversed, ", ")},
		{"all names glued", strings.Join(names, "")},
		{"all names lowercase", strings.ToLower(strings.Join(names, " "))},
		{"all names uppercase", strings.ToUpper(strings.Join(names, " "))},
		{"all names twice", strings.Repeat(strings.Join(names, " ")+" ", 2)},
		{"first name repeated", strings.Repeat(names[0]+" ", 10)},
		{"last six", strings.Join(names[len(names)-6:], " and ")},
		{"single name", names[len(names)/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTagInvariants(t, g, tt.text, tagger.Tag(tt.text))
		})
	}

	// The full table always fills the cap.
	assert.Len(t, tagger.Tag(strings.Join(names, " ")), MaxLocationsPerItem)
}

func FuzzTagger_Tag(f *testing.F) {
	g := DefaultGazetteer()
	tagger := NewTagger(g)
	names := gazetteerNames(g)

	f.Add("")
	f.Add(strings.Join(names, " "))
	f.Add(strings.Join(names, ""))
	for _, name := range names {
		f.Add(name)
		f.Add(strings.ToLower(name) + " and " + name)
	}

	f.Fuzz(func(t *testing.T, text string) {
		assertTagInvariants(t, g, text, tagger.Tag(text))
	})
}
