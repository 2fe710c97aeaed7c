package calculator

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"skymatch/internal/models"
)

type ProgressCallback func(current, total int, msg string)
type LoggerCallback func(msg string)

// RadiusMatcher proposes every (observed, reference) pair whose angular
// separation is within the search radius. It does not enforce uniqueness.
//
// Output order is deterministic: observed input order, then reference input
// order within each observed record, whatever the worker count.
type RadiusMatcher struct {
	// Workers bounds the number of goroutines. Zero means runtime.NumCPU().
	Workers int

	OnProgress ProgressCallback
	Logger     LoggerCallback
}

// refEntry is a reference record position in the declination-sorted index.
type refEntry struct {
	idx int
	dec float64
}

// Generate implements the candidate generation step of a match session.
// maxArcsec is the inclusive search radius in arcseconds.
func (m *RadiusMatcher) Generate(observed, reference []models.PointRecord, maxArcsec float64) ([]models.CandidatePair, error) {
	if maxArcsec < 0 {
		return nil, fmt.Errorf("negative search radius %g", maxArcsec)
	}
	if err := checkPositions("observed", observed); err != nil {
		return nil, err
	}
	if err := checkPositions("reference", reference); err != nil {
		return nil, err
	}
	total := len(observed)
	if total == 0 || len(reference) == 0 {
		return nil, nil
	}

	index := make([]refEntry, len(reference))
	for i, r := range reference {
		index[i] = refEntry{idx: i, dec: r.Sky.Lat}
	}
	sort.SliceStable(index, func(a, b int) bool { return index[a].dec < index[b].dec })

	numCPU := m.Workers
	if numCPU < 1 {
		numCPU = runtime.NumCPU()
	}
	chunkSize := (total + numCPU - 1) / numCPU
	numChunks := (total + chunkSize - 1) / chunkSize

	m.log(fmt.Sprintf("Starting radius search (%.3f arcsec) with %d workers, %d observed, %d reference",
		maxArcsec, numCPU, total, len(reference)))

	window := maxArcsec / arcsecPerDegree
	chunks := make([][]models.CandidatePair, numChunks)
	var processed int64

	var g errgroup.Group
	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, total)

		g.Go(func() error {
			var local []models.CandidatePair
			var hits []int

			for idx := start; idx < end; idx++ {
				src := observed[idx]
				lo := sort.Search(len(index), func(i int) bool { return index[i].dec >= src.Sky.Lat-window })

				hits = hits[:0]
				for i := lo; i < len(index) && index[i].dec <= src.Sky.Lat+window; i++ {
					hits = append(hits, index[i].idx)
				}
				sort.Ints(hits)

				for _, ri := range hits {
					ref := reference[ri]
					d := AngularSeparation(src.Sky, ref.Sky)
					if d <= maxArcsec {
						local = append(local, models.CandidatePair{
							ObservedID:  src.ID,
							ReferenceID: ref.ID,
							Distance:    d,
						})
					}
				}

				count := atomic.AddInt64(&processed, 1)
				if count%500 == 0 && m.OnProgress != nil {
					m.OnProgress(int(count), total, "")
				}
			}
			chunks[c] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.CandidatePair
	for _, chunk := range chunks {
		all = append(all, chunk...)
	}

	if m.OnProgress != nil {
		m.OnProgress(total, total, "")
	}
	m.log(fmt.Sprintf("Radius search completed: %d candidate pairs.", len(all)))
	return all, nil
}

// checkPositions rejects sky positions the declination index cannot order.
func checkPositions(set string, records []models.PointRecord) error {
	for i, r := range records {
		ra, dec := r.Sky.Lon, r.Sky.Lat
		if math.IsNaN(ra) || math.IsInf(ra, 0) || math.IsNaN(dec) || math.IsInf(dec, 0) {
			return fmt.Errorf("%s record %q (position %d): non-finite sky position (%g, %g)", set, r.ID, i, ra, dec)
		}
		if dec < -90 || dec > 90 {
			return fmt.Errorf("%s record %q (position %d): declination %g out of range", set, r.ID, i, dec)
		}
	}
	return nil
}

func (m *RadiusMatcher) log(msg string) {
	if m.Logger != nil {
		m.Logger(msg)
	}
}
