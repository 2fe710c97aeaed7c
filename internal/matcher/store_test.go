package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skymatch/internal/models"
)

func TestCloneRecords(t *testing.T) {
	src := []models.PointRecord{{ID: "a", X: 1}, {ID: "b", X: 2}}
	out := CloneRecords(src)
	assert.Equal(t, src, out)

	out[0].X = 99
	out[1].Sky.Lat = 45
	assert.Equal(t, 1.0, src[0].X)
	assert.Zero(t, src[1].Sky.Lat)
}

func TestCloneRecords_Empty(t *testing.T) {
	out := CloneRecords(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]models.CandidatePair{pair("a", "b", 3), pair("c", "d", 4)})
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 3.5, s.Mean, 1e-12)
	assert.InDelta(t, 3.5355339, s.RMS, 1e-6)
	assert.Equal(t, 4.0, s.Max)
}
