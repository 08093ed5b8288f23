package masterdata

import (
	"fmt"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0088

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinate lies within the normalized lat/lng range.
func (c Coordinate) Valid() bool {
	return s2.LatLngFromDegrees(c.Lat, c.Lng).IsValid()
}

// String renders the coordinate as "lat,lng", the form routing providers expect.
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// DistanceKm returns the great-circle distance to another coordinate.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	a := s2.LatLngFromDegrees(c.Lat, c.Lng)
	b := s2.LatLngFromDegrees(other.Lat, other.Lng)
	return a.Distance(b).Radians() * earthRadiusKm
}

// Place is a geocoded point of interest whose commute time from the anchor is tracked.
type Place struct {
	ID       string
	Name     string
	Location *Coordinate
}

// HasLocation reports whether the place carries coordinates.
func (p Place) HasLocation() bool {
	return p.Location != nil
}

// Anchor is the tenant's reference point (the university campus).
type Anchor struct {
	ID       string
	Code     string
	Name     string
	Location *Coordinate
}

// HasLocation reports whether the anchor carries usable coordinates.
func (a *Anchor) HasLocation() bool {
	return a != nil && a.Location != nil && a.Location.Valid()
}
