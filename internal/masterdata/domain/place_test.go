package masterdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinateValid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 3.0, Lng: 101.0}.Valid())
	assert.False(t, Coordinate{Lat: 91, Lng: 101.0}.Valid())
	assert.False(t, Coordinate{Lat: 3.0, Lng: 181}.Valid())
}

func TestCoordinateString(t *testing.T) {
	assert.Equal(t, "3.1,101.1", Coordinate{Lat: 3.1, Lng: 101.1}.String())
}

func TestCoordinateDistanceKm(t *testing.T) {
	// one degree of latitude is roughly 111 km
	d := Coordinate{Lat: 3.0, Lng: 101.0}.DistanceKm(Coordinate{Lat: 4.0, Lng: 101.0})
	assert.InDelta(t, 111.2, d, 0.5)
}

func TestAnchorHasLocation(t *testing.T) {
	var nilAnchor *Anchor
	assert.False(t, nilAnchor.HasLocation())
	assert.False(t, (&Anchor{ID: "a"}).HasLocation())
	assert.True(t, (&Anchor{ID: "a", Location: &Coordinate{Lat: 3, Lng: 101}}).HasLocation())
}
