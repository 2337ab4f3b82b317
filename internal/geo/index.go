package geo

import (
	"math"
	"sync/atomic"
)

// DefaultMaxRadiusKm bounds nearest-centroid resolution. A coordinate farther
// than this from every centroid resolves to nothing, matching typical suburb
// extent in the reference data set.
const DefaultMaxRadiusKm = 5.0

const earthRadiusKm = 6371.0

// Bounds is an axis-aligned latitude/longitude rectangle.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the coordinate lies inside the rectangle.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

type snapshot struct {
	suburbs []Suburb
	byID    map[string]Suburb
}

// Index maps coordinates to suburbs by nearest centroid. Reads are lock-free
// against an immutable snapshot; Replace swaps the snapshot atomically so
// in-flight lookups never observe a partially-updated list. The linear scan
// is intentional: the reference set is a few hundred to low thousands of
// entries and lookups happen once per report interval.
type Index struct {
	current     atomic.Pointer[snapshot]
	maxRadiusKm float64
}

// NewIndex creates an empty index. maxRadiusKm <= 0 falls back to the default.
func NewIndex(maxRadiusKm float64) *Index {
	if maxRadiusKm <= 0 {
		maxRadiusKm = DefaultMaxRadiusKm
	}
	idx := &Index{maxRadiusKm: maxRadiusKm}
	idx.current.Store(&snapshot{byID: map[string]Suburb{}})
	return idx
}

// Replace installs a new suburb list as the current snapshot.
func (x *Index) Replace(suburbs []Suburb) {
	next := &snapshot{
		suburbs: make([]Suburb, len(suburbs)),
		byID:    make(map[string]Suburb, len(suburbs)),
	}
	copy(next.suburbs, suburbs)
	for _, s := range next.suburbs {
		next.byID[s.ID] = s
	}
	x.current.Store(next)
}

// Resolve returns the suburb whose centroid is nearest to the coordinate,
// provided it lies within the maximum radius. The second return value is
// false when no suburb qualifies; callers must treat that as "no suburb
// match, skip alert evaluation".
func (x *Index) Resolve(lat, lon float64) (Suburb, bool) {
	snap := x.current.Load()

	var (
		best     Suburb
		bestDist = math.MaxFloat64
		found    bool
	)
	for _, s := range snap.suburbs {
		d := haversineKm(lat, lon, s.Latitude, s.Longitude)
		if d < bestDist {
			bestDist = d
			best = s
			found = true
		}
	}

	if !found || bestDist > x.maxRadiusKm {
		return Suburb{}, false
	}
	return best, true
}

// FilterWithin returns every suburb whose centroid lies inside the rectangle.
// Used for map-viewport queries; shares the snapshot with Resolve.
func (x *Index) FilterWithin(b Bounds) []Suburb {
	snap := x.current.Load()

	var result []Suburb
	for _, s := range snap.suburbs {
		if b.Contains(s.Latitude, s.Longitude) {
			result = append(result, s)
		}
	}
	return result
}

// Lookup returns the suburb with the given id.
func (x *Index) Lookup(id string) (Suburb, bool) {
	s, ok := x.current.Load().byID[id]
	return s, ok
}

// Exists reports whether the id is present in the current reference set.
func (x *Index) Exists(id string) bool {
	_, ok := x.current.Load().byID[id]
	return ok
}

// Snapshot returns the current suburb list. The slice must not be mutated.
func (x *Index) Snapshot() []Suburb {
	return x.current.Load().suburbs
}

// haversineKm computes the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
