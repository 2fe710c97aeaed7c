package wcs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	ra, dec := Identity{}.Project(-10, 45)
	assert.InDelta(t, 350, ra, 1e-12)
	assert.Equal(t, 45.0, dec)
}

func TestTAN_ReferencePixel(t *testing.T) {
	p, err := NewTAN([2]float64{512, 512}, [2]float64{150, 2}, [2][2]float64{{-0.2 / 3600, 0}, {0, 0.2 / 3600}})
	require.NoError(t, err)

	ra, dec := p.Project(512, 512)
	assert.InDelta(t, 150, ra, 1e-12)
	assert.InDelta(t, 2, dec, 1e-12)
}

func TestTAN_SmallOffsets(t *testing.T) {
	const scale = 0.2 / 3600
	p, err := NewTAN([2]float64{0, 0}, [2]float64{0, 0}, [2][2]float64{{scale, 0}, {0, scale}})
	require.NoError(t, err)

	// Near the tangent point the projection is close to linear.
	ra, dec := p.Project(100, 0)
	assert.InDelta(t, 100*scale, ra, 1e-9)
	assert.InDelta(t, 0, dec, 1e-12)

	ra, dec = p.Project(0, -100)
	assert.InDelta(t, 0, ra, 1e-12)
	assert.InDelta(t, -100*scale, dec, 1e-9)

	ra, _ = p.Project(-100, 0)
	assert.InDelta(t, 360-100*scale, ra, 1e-9)
}

func TestTAN_LargeAngle(t *testing.T) {
	// 45 degrees along xi on the equator is tan(45°) in the tangent plane.
	p, err := NewTAN([2]float64{0, 0}, [2]float64{0, 0}, [2][2]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)

	ra, dec := p.Project(math.Tan(math.Pi/4)*180/math.Pi, 0)
	assert.InDelta(t, 45, ra, 1e-9)
	assert.InDelta(t, 0, dec, 1e-9)
}

func TestNewTAN_Invalid(t *testing.T) {
	_, err := NewTAN([2]float64{}, [2]float64{0, 0}, [2][2]float64{{1, 1}, {1, 1}})
	assert.Error(t, err)

	_, err = NewTAN([2]float64{}, [2]float64{0, 95}, [2][2]float64{{1, 0}, {0, 1}})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	p, err := New(Options{Type: ""})
	require.NoError(t, err)
	assert.IsType(t, Identity{}, p)

	p, err = New(Options{Type: "TAN", CD: [2][2]float64{{1, 0}, {0, 1}}})
	require.NoError(t, err)
	assert.IsType(t, &TAN{}, p)

	_, err = New(Options{Type: "sip"})
	assert.Error(t, err)
}
