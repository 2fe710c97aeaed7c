package calculator

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymatch/internal/models"
)

func rec(id string, ra, dec float64) models.PointRecord {
	return models.PointRecord{ID: id, Sky: models.Coordinate{Lon: ra, Lat: dec}}
}

func TestRadiusMatcher_Generate(t *testing.T) {
	observed := []models.PointRecord{
		rec("o1", 10, 20),
		rec("o2", 10, 20+3.0/3600),
		rec("o3", 100, -45),
	}
	reference := []models.PointRecord{
		rec("r1", 10, 20+1.0/3600),
		rec("r2", 10, 20),
		rec("r3", 100, -45+10.0/3600),
	}

	m := &RadiusMatcher{Workers: 2}
	got, err := m.Generate(observed, reference, 2.5)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "o1", got[0].ObservedID)
	assert.Equal(t, "r1", got[0].ReferenceID)
	assert.InDelta(t, 1, got[0].Distance, 1e-6)
	assert.Equal(t, "o1", got[1].ObservedID)
	assert.Equal(t, "r2", got[1].ReferenceID)
	assert.InDelta(t, 0, got[1].Distance, 1e-6)
	assert.Equal(t, "o2", got[2].ObservedID)
	assert.Equal(t, "r1", got[2].ReferenceID)
	assert.InDelta(t, 2, got[2].Distance, 1e-6)
}

func TestRadiusMatcher_Empty(t *testing.T) {
	m := &RadiusMatcher{}
	got, err := m.Generate(nil, []models.PointRecord{rec("r", 0, 0)}, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.Generate(nil, nil, -1)
	assert.Error(t, err)
}

func TestRadiusMatcher_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var observed, reference []models.PointRecord
	for i := 0; i < 300; i++ {
		observed = append(observed, rec(fmt.Sprintf("o%d", i), 150+rng.Float64()*0.05, 2+rng.Float64()*0.05))
	}
	for i := 0; i < 300; i++ {
		reference = append(reference, rec(fmt.Sprintf("r%d", i), 150+rng.Float64()*0.05, 2+rng.Float64()*0.05))
	}
	const radius = 10.0

	var want []models.CandidatePair
	for _, o := range observed {
		for _, r := range reference {
			if d := AngularSeparation(o.Sky, r.Sky); d <= radius {
				want = append(want, models.CandidatePair{ObservedID: o.ID, ReferenceID: r.ID, Distance: d})
			}
		}
	}
	require.NotEmpty(t, want)

	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var progressed int
			m := &RadiusMatcher{
				Workers:    workers,
				OnProgress: func(current, total int, _ string) { progressed = current },
			}
			got, err := m.Generate(observed, reference, radius)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, len(observed), progressed)
		})
	}
}

func TestRadiusMatcher_RejectsUnorderablePositions(t *testing.T) {
	good := []models.PointRecord{rec("o1", 10, 3)}
	tests := []struct {
		name      string
		observed  []models.PointRecord
		reference []models.PointRecord
		wantErr   string
	}{
		{"nan declination in reference", good, []models.PointRecord{rec("r0", 10, 3), rec("r1", 10, math.NaN()), rec("r2", 10, 1)}, `"r1"`},
		{"infinite ra in reference", good, []models.PointRecord{rec("r0", math.Inf(1), 3)}, "non-finite"},
		{"negative infinite declination", good, []models.PointRecord{rec("r0", 10, math.Inf(-1))}, "non-finite"},
		{"declination above the pole", good, []models.PointRecord{rec("r0", 10, 95)}, "out of range"},
		{"declination below the pole", good, []models.PointRecord{rec("r0", 10, -90.5)}, "out of range"},
		{"nan in observed", []models.PointRecord{rec("o1", math.NaN(), 3)}, []models.PointRecord{rec("r0", 10, 3)}, `observed record "o1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &RadiusMatcher{Workers: 2}
			got, err := m.Generate(tt.observed, tt.reference, 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestRadiusMatcher_PolesAreValid(t *testing.T) {
	m := &RadiusMatcher{Workers: 1}
	got, err := m.Generate(
		[]models.PointRecord{rec("o1", 0, 90), rec("o2", 0, -90)},
		[]models.PointRecord{rec("r1", 180, 90), rec("r2", 45, -90)},
		1,
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ReferenceID)
	assert.Equal(t, "r2", got[1].ReferenceID)
}
