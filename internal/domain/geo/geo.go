// Package geo holds the point type and distance math used by proximity search.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/kailas-cloud/venuedex/internal/domain"
)

// DefaultRadiusMeters is the proximity search radius (10 km).
const DefaultRadiusMeters = 10_000.0

const (
	// MaxLatitude is the largest latitude a Redis GEO field accepts (Web Mercator bound).
	MaxLatitude = 85.05112878
	// EarthRadiusMeters is the sphere radius Redis uses for geodistance and
	// GEO radius filters, so post-filtering agrees with the index.
	EarthRadiusMeters = 6372797.560856
)

// Point is a longitude/latitude pair in degrees.
type Point struct {
	p orb.Point
}

// NewPoint validates coordinates and returns a Point.
// NaN, Inf and out-of-range values are rejected with domain.ErrValidation.
func NewPoint(lng, lat float64) (Point, error) {
	if !finite(lng) || !finite(lat) {
		return Point{}, domain.Validationf("coordinates must be finite numbers")
	}
	if !ValidateCoordinates(lat, lng) {
		return Point{}, domain.Validationf("coordinates out of range: lng=%g lat=%g", lng, lat)
	}
	return Point{p: orb.Point{lng, lat}}, nil
}

// ParsePoint parses the "lng,lat" storage representation.
func ParsePoint(s string) (Point, error) {
	lngStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, domain.Validationf("point %q must be \"lng,lat\"", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, domain.Validationf("invalid longitude %q", lngStr)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, domain.Validationf("invalid latitude %q", latStr)
	}
	return NewPoint(lng, lat)
}

// Lng returns the longitude.
func (p Point) Lng() float64 { return p.p.Lon() }

// Lat returns the latitude.
func (p Point) Lat() float64 { return p.p.Lat() }

// Coordinates returns [lng, lat], GeoJSON order.
func (p Point) Coordinates() [2]float64 { return [2]float64{p.p.Lon(), p.p.Lat()} }

// String returns the "lng,lat" form indexed by the GEO field.
func (p Point) String() string {
	return strconv.FormatFloat(p.p.Lon(), 'f', -1, 64) + "," + strconv.FormatFloat(p.p.Lat(), 'f', -1, 64)
}

// DistanceMeters returns the great-circle distance to q on the Redis sphere.
// Haversine distance scales linearly with the radius.
func (p Point) DistanceMeters(q Point) float64 {
	return orbgeo.DistanceHaversine(p.p, q.p) * (EarthRadiusMeters / orb.EarthRadius)
}

// Within reports whether q lies within radius meters of p.
func (p Point) Within(q Point, radius float64) bool {
	return p.DistanceMeters(q) <= radius
}

// ValidateCoordinates checks that latitude is within ±MaxLatitude and
// longitude in [-180,180]. Points outside that band cannot be GEO-indexed.
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -MaxLatitude && lat <= MaxLatitude && lng >= -180 && lng <= 180
}

// RadiusKm formats meters as the km radius used in GEO query clauses.
func RadiusKm(meters float64) string {
	return fmt.Sprintf("%g", meters/1000)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
