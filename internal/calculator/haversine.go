package calculator

import (
	"math"

	"skymatch/internal/models"
)

const (
	earthRadius     = 6371000.0 // meters
	arcsecPerRadian = 180.0 * 3600.0 / math.Pi
	arcsecPerDegree = 3600.0
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// centralAngle returns the great-circle angle in radians between two points
// given in degrees.
func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lon1Rad := toRadians(lon1)
	lat2Rad := toRadians(lat2)
	lon2Rad := toRadians(lon2)

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	if a > 1 {
		a = 1
	}
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// AngularSeparation returns the on-sky separation of a and b in arcseconds.
func AngularSeparation(a, b models.Coordinate) float64 {
	return centralAngle(a.Lat, a.Lon, b.Lat, b.Lon) * arcsecPerRadian
}

// MetersToArcsec converts a ground distance on the Earth sphere into the
// angle it subtends at the centre.
func MetersToArcsec(meters float64) float64 {
	return meters / earthRadius * arcsecPerRadian
}

// ArcsecToMeters is the inverse of MetersToArcsec.
func ArcsecToMeters(arcsec float64) float64 {
	return arcsec / arcsecPerRadian * earthRadius
}
