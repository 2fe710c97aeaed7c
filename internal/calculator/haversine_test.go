package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skymatch/internal/models"
)

func TestAngularSeparation_GroundDistance(t *testing.T) {
	// Istanbul to Ankara, roughly 350 km.
	istanbul := models.Coordinate{Lat: 41.0082, Lon: 28.9784}
	ankara := models.Coordinate{Lat: 39.9334, Lon: 32.8597}
	assert.InDelta(t, 350000, ArcsecToMeters(AngularSeparation(istanbul, ankara)), 5000)
}

func TestAngularSeparation(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Coordinate
		want float64
	}{
		{"same point", models.Coordinate{Lat: 12, Lon: 34}, models.Coordinate{Lat: 12, Lon: 34}, 0},
		{"one arcsec in dec", models.Coordinate{Lat: 0, Lon: 0}, models.Coordinate{Lat: 1.0 / 3600, Lon: 0}, 1},
		{"one degree on equator", models.Coordinate{Lat: 0, Lon: 359.5}, models.Coordinate{Lat: 0, Lon: 0.5}, 3600},
		{"antipodes", models.Coordinate{Lat: 90, Lon: 0}, models.Coordinate{Lat: -90, Lon: 0}, 180 * 3600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AngularSeparation(tt.a, tt.b), 1e-6)
		})
	}
}

func TestMetersToArcsec(t *testing.T) {
	// One arcminute of latitude is about one nautical mile.
	assert.InDelta(t, 60, MetersToArcsec(1853.2), 0.1)
	assert.InDelta(t, 1000, ArcsecToMeters(MetersToArcsec(1000)), 1e-9)
}
