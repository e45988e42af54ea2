// Command validate checks a gazetteer table offline and shows how headlines
// and captured proxy payloads would be tagged with it.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -gazetteer config/gazetteer.yaml \
//	  -text "Tensions rise between Iran and Israel near Gaza" \
//	  -payload testdata/rss2json_un.json
//
// Without -gazetteer the embedded default table is checked.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/geo-news-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase. Notes are informational.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// texts collects repeated -text flags.
type texts []string

func (t *texts) String() string     { return strings.Join(*t, " | ") }
func (t *texts) Set(v string) error { *t = append(*t, v); return nil }

func main() {
	gazetteerPath := flag.String("gazetteer", "", "gazetteer YAML file (default: embedded table)")
	payloadPath := flag.String("payload", "", "captured rss2json-style proxy response to normalize")
	var samples texts
	flag.Var(&samples, "text", "headline to tag (repeatable)")
	flag.Parse()

	if code := run(*gazetteerPath, *payloadPath, samples); code != 0 {
		os.Exit(code)
	}
}

func run(gazetteerPath, payloadPath string, samples []string) int {
	// Fixed clock so items with missing timestamps print reproducibly.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Gazetteer Validation ===")
	fmt.Println()

	g, err := loadGazetteer(gazetteerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load gazetteer: %v\n", err)
		return 1
	}
	tagger := domain.NewTagger(g)

	phases := []*phase{
		validateTable(g),
		validateShadowing(g),
		tagSamples(tagger, samples),
	}
	if payloadPath != "" {
		phases = append(phases, checkPayload(tagger, payloadPath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Locations: %d\n", g.Len())

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, n := range p.notes {
			fmt.Printf("  %s\n", n)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadGazetteer(path string) (*domain.Gazetteer, error) {
	if path == "" {
		return domain.DefaultGazetteer(), nil
	}
	return domain.LoadGazetteerFile(path)
}

// ── Phase 1: Table ──
// NewGazetteer already rejects duplicates and bad ranges; this re-checks
// what a loadable table can still get wrong.

func validateTable(g *domain.Gazetteer) *phase {
	p := &phase{name: "Phase 1: Table (names, coordinates)"}
	tagger := domain.NewTagger(g)
	for i, e := range g.All() {
		if e.Name != strings.TrimSpace(e.Name) {
			p.errorf("entry %d: name %q has surrounding whitespace", i, e.Name)
		}
		if e.Lat == 0 && e.Lon == 0 {
			p.errorf("entry %d (%s): coordinates are both zero", i, e.Name)
		}
		if !slices.Contains(tagger.Tag(e.Name), e.Name) {
			p.errorf("entry %d (%s): name does not tag itself", i, e.Name)
		}
	}
	return p
}

// ── Phase 2: Shadowing ──
// Substring matching means "Africa" also fires on "South Africa". These are
// reported, not failed: the policy accepts them.

func validateShadowing(g *domain.Gazetteer) *phase {
	p := &phase{name: "Phase 2: Shadowing (substring overlaps)"}
	entries := g.All()
	for _, outer := range entries {
		upper := strings.ToUpper(outer.Name)
		for _, inner := range entries {
			if inner.Name == outer.Name {
				continue
			}
			if strings.Contains(upper, strings.ToUpper(inner.Name)) {
				p.notef("%q also matches inside %q", inner.Name, outer.Name)
			}
		}
	}
	return p
}

// ── Phase 3: Samples ──

func tagSamples(tagger *domain.Tagger, samples []string) *phase {
	p := &phase{name: "Phase 3: Tagging samples"}
	for _, text := range samples {
		locs := tagger.Tag(text)
		if len(locs) > domain.MaxLocationsPerItem {
			p.errorf("%q: %d locations exceeds cap", text, len(locs))
		}
		p.notef("%q -> %v", text, locs)
	}
	return p
}

// ── Phase 4: Payload ──

func checkPayload(tagger *domain.Tagger, path string) *phase {
	p := &phase{name: "Phase 4: Payload normalization"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read payload: %v", err)
		return p
	}
	payload, err := domain.ParseFeedPayload(data)
	if err != nil {
		p.errorf("parse payload: %v", err)
		return p
	}

	items := domain.NewNormalizer(tagger).Normalize(payload, "file://"+path)
	untagged := 0
	for i, item := range items {
		if item.Title == "" {
			p.errorf("item %d: empty title", i)
		}
		if len(item.Locations) == 0 {
			untagged++
		}
		p.notef("%s  %-60s %v", item.PublishedAt.Format(time.RFC3339), domain.Truncate(item.Title, 60), item.Locations)
	}
	p.notef("%d items, %d untagged", len(items), untagged)
	return p
}
