package matcher

import "skymatch/internal/models"

// Resolve reduces a many-to-many candidate list to a one-to-one assignment.
//
// Conflicts are resolved per observed ID first, then per reference ID on
// what survived. Within a group the pair with the smallest distance wins and
// an exact tie goes to the pair seen first. Survivors keep their input
// order. The input slice is not modified.
func Resolve(candidates []models.CandidatePair) []models.CandidatePair {
	byObserved := resolveSide(candidates, func(p models.CandidatePair) string { return p.ObservedID })
	return resolveSide(byObserved, func(p models.CandidatePair) string { return p.ReferenceID })
}

// resolveSide keeps, for every key, the first pair with the minimal distance.
// Decisions are made over the whole list before the result is built.
func resolveSide(pairs []models.CandidatePair, key func(models.CandidatePair) string) []models.CandidatePair {
	best := make(map[string]int, len(pairs))
	for i, p := range pairs {
		k := key(p)
		j, ok := best[k]
		if !ok || p.Distance < pairs[j].Distance {
			best[k] = i
		}
	}

	out := make([]models.CandidatePair, 0, len(best))
	for i, p := range pairs {
		if best[key(p)] == i {
			out = append(out, p)
		}
	}
	return out
}
