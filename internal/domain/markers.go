package domain

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	// MarkerBaseRadius is the radius of a location's first marker.
	MarkerBaseRadius = 8.0
	// MarkerTitleLength caps the headline shown in a marker popup.
	MarkerTitleLength = 80
	// DefaultClusterLevel is the S2 level markers are grouped at. Level 4
	// cells are a few hundred kilometres across.
	DefaultClusterLevel = 4
)

// Marker is one (item, location) occurrence placed on the map. Count is the
// running number of occurrences of Location up to and including this one,
// so later markers for a busy location are drawn larger.
type Marker struct {
	Location string  `json:"location"`
	Geo      Geo     `json:"geo"`
	Count    int     `json:"count"`
	Radius   float64 `json:"radius"`
	Title    string  `json:"title"`
}

// MarkerRadius is 8 + 2*ln(count).
func MarkerRadius(count int) float64 {
	if count < 1 {
		count = 1
	}
	return MarkerBaseRadius + math.Log(float64(count))*2
}

// BuildMarkers walks the first MapWindow items in order and emits a marker
// for every tagged location the gazetteer can place.
func BuildMarkers(items []NewsItem, g *Gazetteer) []Marker {
	counts := make(map[string]int)
	markers := []Marker{}
	for _, item := range window(items, MapWindow) {
		for _, loc := range item.Locations {
			geo, ok := g.Lookup(loc)
			if !ok {
				continue
			}
			counts[loc]++
			markers = append(markers, Marker{
				Location: loc,
				Geo:      geo,
				Count:    counts[loc],
				Radius:   MarkerRadius(counts[loc]),
				Title:    Truncate(item.Title, MarkerTitleLength),
			})
		}
	}
	return markers
}

// Cluster groups markers that fall in the same S2 cell.
type Cluster struct {
	Cell      string   `json:"cell"`
	Center    Geo      `json:"center"`
	Markers   int      `json:"markers"`
	Locations []string `json:"locations"`
}

// ClusterMarkers buckets markers by their S2 cell at level. Clusters come
// back in order of first appearance; Center is the mean marker position.
func ClusterMarkers(markers []Marker, level int) []Cluster {
	if level < 0 || level > s2.MaxLevel {
		level = DefaultClusterLevel
	}

	type acc struct {
		cluster  Cluster
		lat, lon float64
		seen     map[string]struct{}
	}
	index := make(map[s2.CellID]int)
	var accs []*acc

	for _, m := range markers {
		cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(m.Geo.Lat, m.Geo.Lon)).Parent(level)
		i, ok := index[cell]
		if !ok {
			i = len(accs)
			index[cell] = i
			accs = append(accs, &acc{
				cluster: Cluster{Cell: cell.ToToken()},
				seen:    make(map[string]struct{}),
			})
		}
		a := accs[i]
		a.cluster.Markers++
		a.lat += m.Geo.Lat
		a.lon += m.Geo.Lon
		if _, dup := a.seen[m.Location]; !dup {
			a.seen[m.Location] = struct{}{}
			a.cluster.Locations = append(a.cluster.Locations, m.Location)
		}
	}

	out := make([]Cluster, len(accs))
	for i, a := range accs {
		n := float64(a.cluster.Markers)
		a.cluster.Center = Geo{Lat: a.lat / n, Lon: a.lon / n}
		out[i] = a.cluster
	}
	return out
}

// ClusterOptions mirrors the client-side clustering configuration so the
// map renders the same way regardless of which client draws it.
type ClusterOptions struct {
	MaxClusterRadius    int  `json:"max_cluster_radius"`
	SpiderfyOnMaxZoom   bool `json:"spiderfy_on_max_zoom"`
	ShowCoverageOnHover bool `json:"show_coverage_on_hover"`
	ZoomToBoundsOnClick bool `json:"zoom_to_bounds_on_click"`
}

// DefaultClusterOptions are the dashboard's clustering settings.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		MaxClusterRadius:    50,
		SpiderfyOnMaxZoom:   true,
		ShowCoverageOnHover: false,
		ZoomToBoundsOnClick: true,
	}
}
