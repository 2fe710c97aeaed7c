package matcher

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymatch/internal/models"
)

func pair(o, r string, d float64) models.CandidatePair {
	return models.CandidatePair{ObservedID: o, ReferenceID: r, Distance: d}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   []models.CandidatePair
		want []models.CandidatePair
	}{
		{
			name: "closer pair wins on both sides",
			in:   []models.CandidatePair{pair("o1", "r1", 0.5), pair("o1", "r2", 0.2), pair("o2", "r2", 0.9)},
			want: []models.CandidatePair{pair("o1", "r2", 0.2)},
		},
		{
			name: "single pair",
			in:   []models.CandidatePair{pair("o1", "r1", 1.0)},
			want: []models.CandidatePair{pair("o1", "r1", 1.0)},
		},
		{
			name: "empty",
			in:   nil,
			want: []models.CandidatePair{},
		},
		{
			name: "no conflicts keeps order",
			in:   []models.CandidatePair{pair("o3", "r1", 0.9), pair("o1", "r3", 0.1), pair("o2", "r2", 0.5)},
			want: []models.CandidatePair{pair("o3", "r1", 0.9), pair("o1", "r3", 0.1), pair("o2", "r2", 0.5)},
		},
		{
			name: "tie keeps earliest on observed side",
			in:   []models.CandidatePair{pair("o1", "r1", 0.5), pair("o1", "r2", 0.5)},
			want: []models.CandidatePair{pair("o1", "r1", 0.5)},
		},
		{
			name: "tie keeps earliest on reference side",
			in:   []models.CandidatePair{pair("o2", "r1", 0.5), pair("o1", "r1", 0.5)},
			want: []models.CandidatePair{pair("o2", "r1", 0.5)},
		},
		{
			name: "group of three on one observed id",
			in: []models.CandidatePair{
				pair("o1", "r1", 0.7), pair("o2", "r4", 0.1), pair("o1", "r2", 0.3), pair("o1", "r3", 0.6),
			},
			want: []models.CandidatePair{pair("o2", "r4", 0.1), pair("o1", "r2", 0.3)},
		},
		{
			name: "chain across both sides",
			// o1-r1 and o2-r1 share r1, o2-r2 shares o2 with o2-r1.
			in: []models.CandidatePair{
				pair("o1", "r1", 0.4), pair("o2", "r1", 0.1), pair("o2", "r2", 0.3), pair("o3", "r2", 0.2),
			},
			// observed pass: o1-r1, o2-r1, o3-r2. reference pass: r1 -> o2, r2 -> o3.
			want: []models.CandidatePair{pair("o2", "r1", 0.1), pair("o3", "r2", 0.2)},
		},
		{
			name: "observed pass runs before reference pass",
			in: []models.CandidatePair{
				pair("o1", "r1", 0.1), pair("o1", "r2", 0.05), pair("o2", "r1", 0.5),
			},
			want: []models.CandidatePair{pair("o1", "r2", 0.05), pair("o2", "r1", 0.5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_DoesNotModifyInput(t *testing.T) {
	in := []models.CandidatePair{pair("o1", "r1", 0.5), pair("o1", "r2", 0.2), pair("o2", "r2", 0.9)}
	orig := append([]models.CandidatePair(nil), in...)

	_ = Resolve(in)
	assert.Equal(t, orig, in)
}

func TestResolve_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	once := Resolve(randomCandidates(rng, 40, 30, 200))
	assert.Equal(t, once, Resolve(once))
}

func TestResolve_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	in := randomCandidates(rng, 25, 25, 150)
	first := Resolve(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Resolve(in))
	}
}

func TestResolve_Properties(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			raw := randomCandidates(rng, 1+rng.Intn(30), 1+rng.Intn(30), rng.Intn(200))
			got := Resolve(raw)

			// one-to-one
			seenObs := map[string]bool{}
			seenRef := map[string]bool{}
			for _, p := range got {
				require.False(t, seenObs[p.ObservedID], "observed %s repeated", p.ObservedID)
				require.False(t, seenRef[p.ReferenceID], "reference %s repeated", p.ReferenceID)
				seenObs[p.ObservedID] = true
				seenRef[p.ReferenceID] = true
			}

			// subset
			for _, p := range got {
				assert.Contains(t, raw, p)
			}

			// An observed survivor is the closest of all raw candidates for
			// that ID. A reference survivor is the closest among pairs left
			// by the observed pass.
			for _, p := range got {
				for _, q := range raw {
					if q.ObservedID == p.ObservedID {
						assert.LessOrEqual(t, p.Distance, q.Distance)
					}
				}
			}
			afterObserved := resolveSide(raw, func(p models.CandidatePair) string { return p.ObservedID })
			for _, p := range got {
				for _, q := range afterObserved {
					if q.ReferenceID == p.ReferenceID {
						assert.LessOrEqual(t, p.Distance, q.Distance)
					}
				}
			}

			// Every reference ID left after the observed pass keeps a pair.
			for _, q := range afterObserved {
				assert.True(t, seenRef[q.ReferenceID], "reference %s lost all pairs", q.ReferenceID)
			}
		})
	}
}

func randomCandidates(rng *rand.Rand, nObs, nRef, n int) []models.CandidatePair {
	out := make([]models.CandidatePair, n)
	for i := range out {
		out[i] = pair(
			fmt.Sprintf("o%d", rng.Intn(nObs)),
			fmt.Sprintf("r%d", rng.Intn(nRef)),
			// coarse values so ties actually occur
			float64(rng.Intn(20))/10,
		)
	}
	return out
}

func BenchmarkResolve(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	in := randomCandidates(rng, 5000, 5000, 20000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Resolve(in)
	}
}
