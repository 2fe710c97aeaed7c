// Package wcs provides pixel-to-sky projections used to place observed
// records in the same frame as a reference catalogue.
package wcs

import (
	"fmt"
	"math"
	"strings"
)

// Projector maps a native (x, y) position to (RA, Dec) in degrees.
type Projector interface {
	Project(x, y float64) (ra, dec float64)
}

// Identity treats native coordinates as already being (RA, Dec) in degrees.
type Identity struct{}

func (Identity) Project(x, y float64) (float64, float64) {
	return normalizeRA(x), y
}

// TAN is a gnomonic projection with a linear pixel transform, the usual
// FITS TAN WCS without distortion terms.
type TAN struct {
	CRPix [2]float64    // reference pixel
	CRVal [2]float64    // RA, Dec of the reference pixel in degrees
	CD    [2][2]float64 // degrees per pixel
}

// NewTAN validates the CD matrix and returns the projection.
func NewTAN(crpix, crval [2]float64, cd [2][2]float64) (*TAN, error) {
	det := cd[0][0]*cd[1][1] - cd[0][1]*cd[1][0]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, fmt.Errorf("singular CD matrix %v", cd)
	}
	if crval[1] < -90 || crval[1] > 90 {
		return nil, fmt.Errorf("reference declination %g out of range", crval[1])
	}
	return &TAN{CRPix: crpix, CRVal: crval, CD: cd}, nil
}

// Project deprojects pixel (x, y) onto the sky.
func (t *TAN) Project(x, y float64) (float64, float64) {
	dx := x - t.CRPix[0]
	dy := y - t.CRPix[1]
	xi := toRadians(t.CD[0][0]*dx + t.CD[0][1]*dy)
	eta := toRadians(t.CD[1][0]*dx + t.CD[1][1]*dy)

	ra0 := toRadians(t.CRVal[0])
	dec0 := toRadians(t.CRVal[1])

	rho := math.Hypot(xi, eta)
	if rho == 0 {
		return normalizeRA(t.CRVal[0]), t.CRVal[1]
	}
	c := math.Atan(rho)
	sinC, cosC := math.Sincos(c)
	sinDec0, cosDec0 := math.Sincos(dec0)

	dec := math.Asin(cosC*sinDec0 + eta*sinC*cosDec0/rho)
	ra := ra0 + math.Atan2(xi*sinC, rho*cosDec0*cosC-eta*sinDec0*sinC)

	return normalizeRA(toDegrees(ra)), toDegrees(dec)
}

// Options selects and parameterises a projection by name.
type Options struct {
	Type  string
	CRPix [2]float64
	CRVal [2]float64
	CD    [2][2]float64
}

// New builds the projector named by opts.Type ("identity" or "tan").
func New(opts Options) (Projector, error) {
	switch strings.ToLower(opts.Type) {
	case "", "identity":
		return Identity{}, nil
	case "tan":
		return NewTAN(opts.CRPix, opts.CRVal, opts.CD)
	default:
		return nil, fmt.Errorf("unknown projection %q", opts.Type)
	}
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

func normalizeRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	return ra
}
