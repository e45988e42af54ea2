package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var defaultGazetteerYAML []byte

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// GazetteerEntry maps one canonical place name to a representative point.
type GazetteerEntry struct {
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// Geo returns the entry's coordinate.
func (e GazetteerEntry) Geo() Geo {
	return Geo{Lat: e.Lat, Lon: e.Lon}
}

// Gazetteer is an immutable, ordered table of known places. The order entries
// were declared in is the order the tagger tests them.
type Gazetteer struct {
	entries []GazetteerEntry
	byName  map[string]int
}

type gazetteerFile struct {
	Locations []GazetteerEntry `yaml:"locations"`
}

// NewGazetteer validates entries and builds a Gazetteer. Names must be
// non-empty and unique ignoring case; coordinates must be in range.
func NewGazetteer(entries []GazetteerEntry) (*Gazetteer, error) {
	if len(entries) == 0 {
		return nil, errors.New("gazetteer has no entries")
	}

	g := &Gazetteer{
		entries: make([]GazetteerEntry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	seen := make(map[string]string, len(entries))

	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("gazetteer entry %d: empty name", i)
		}
		if e.Lat < -90 || e.Lat > 90 {
			return nil, fmt.Errorf("gazetteer entry %q: latitude %v out of range", e.Name, e.Lat)
		}
		if e.Lon < -180 || e.Lon > 180 {
			return nil, fmt.Errorf("gazetteer entry %q: longitude %v out of range", e.Name, e.Lon)
		}
		folded := strings.ToUpper(e.Name)
		if prev, dup := seen[folded]; dup {
			return nil, fmt.Errorf("gazetteer entry %q duplicates %q", e.Name, prev)
		}
		seen[folded] = e.Name
		g.byName[e.Name] = len(g.entries)
		g.entries = append(g.entries, e)
	}
	return g, nil
}

// LoadGazetteer decodes a YAML table of the form
//
//	locations:
//	  - {name: "Iran", lat: 32.43, lon: 53.69}
func LoadGazetteer(r io.Reader) (*Gazetteer, error) {
	var f gazetteerFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	return NewGazetteer(f.Locations)
}

// LoadGazetteerFile opens path and decodes it with LoadGazetteer.
func LoadGazetteerFile(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	defer f.Close()
	return LoadGazetteer(f)
}

var (
	defaultGazetteerOnce sync.Once
	defaultGazetteer     *Gazetteer
)

// DefaultGazetteer returns the built-in table. The embedded file is validated
// by tests, so a decode failure here is a programming error.
func DefaultGazetteer() *Gazetteer {
	defaultGazetteerOnce.Do(func() {
		g, err := LoadGazetteer(strings.NewReader(string(defaultGazetteerYAML)))
		if err != nil {
			panic(fmt.Sprintf("embedded gazetteer: %v", err))
		}
		defaultGazetteer = g
	})
	return defaultGazetteer
}

// Lookup returns the coordinate for an exact canonical name.
func (g *Gazetteer) Lookup(name string) (Geo, bool) {
	i, ok := g.byName[name]
	if !ok {
		return Geo{}, false
	}
	return g.entries[i].Geo(), true
}

// All returns a copy of the entries in declaration order.
func (g *Gazetteer) All() []GazetteerEntry {
	out := make([]GazetteerEntry, len(g.entries))
	copy(out, g.entries)
	return out
}

func (g *Gazetteer) Len() int { return len(g.entries) }
