package matcher

import (
	"math"

	"skymatch/internal/models"
)

// Summary describes the separations of a match set in arcseconds.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	RMS   float64 `json:"rms"`
	Max   float64 `json:"max"`
}

func Summarize(pairs []models.CandidatePair) Summary {
	sum := Summary{Count: len(pairs)}
	if sum.Count == 0 {
		return sum
	}
	var total, squares float64
	for _, p := range pairs {
		total += p.Distance
		squares += p.Distance * p.Distance
		sum.Max = math.Max(sum.Max, p.Distance)
	}
	n := float64(sum.Count)
	sum.Mean = total / n
	sum.RMS = math.Sqrt(squares / n)
	return sum
}
