// Package matcher resolves candidate correspondences between an observed
// and a reference point set into a one-to-one assignment.
//
// A Session owns copies of both sets, projects observed records onto the
// sky, asks a CandidateGenerator for every pair within the threshold and
// then resolves conflicts with Resolve.
//
//	s, err := matcher.NewSession(observed, reference, wcs.Identity{}, 2.0)
//	if err != nil { ... }
//	if err := s.Run(ctx); err != nil { ... }
//	pairs, _ := s.Matches()
package matcher

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"skymatch/internal/calculator"
	"skymatch/internal/logging"
	"skymatch/internal/models"
)

// Projector maps a native position to a sky position (u = RA, v = Dec).
// It must be pure.
type Projector interface {
	Project(x, y float64) (u, v float64)
}

// ProjectorFunc adapts a plain function to Projector.
type ProjectorFunc func(x, y float64) (float64, float64)

func (f ProjectorFunc) Project(x, y float64) (float64, float64) { return f(x, y) }

// CandidateGenerator returns every pair within maxDistance, in any
// multiplicity. Distances share the unit of maxDistance.
type CandidateGenerator interface {
	Generate(observed, reference []models.PointRecord, maxDistance float64) ([]models.CandidatePair, error)
}

// GeneratorFunc adapts a plain function to CandidateGenerator.
type GeneratorFunc func(observed, reference []models.PointRecord, maxDistance float64) ([]models.CandidatePair, error)

func (f GeneratorFunc) Generate(observed, reference []models.PointRecord, maxDistance float64) ([]models.CandidatePair, error) {
	return f(observed, reference, maxDistance)
}

// Option configures a Session.
type Option func(*Session)

// WithGenerator replaces the default radius search.
func WithGenerator(g CandidateGenerator) Option {
	return func(s *Session) { s.generator = g }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers bounds the goroutines used for projection and for the default
// generator. Values below one mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *Session) { s.workers = n }
}

// Session is a configured matching run. It is not safe for concurrent use.
type Session struct {
	threshold float64
	projector Projector
	generator CandidateGenerator
	workers   int
	logger    *logging.Logger

	observed  []models.PointRecord
	reference []models.PointRecord
	obsIndex  recordIndex
	refIndex  recordIndex

	matches    []models.CandidatePair
	candidates int
	valid      bool
}

// NewSession validates the configuration and stores owned copies of both
// sets. threshold is in arcseconds and must be strictly positive.
func NewSession(observed, reference []models.PointRecord, projector Projector, threshold float64, opts ...Option) (*Session, error) {
	s := &Session{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.NumCPU()
	}
	if s.generator == nil {
		s.generator = &calculator.RadiusMatcher{Workers: s.workers}
	}

	if err := s.SetThreshold(threshold); err != nil {
		return nil, err
	}
	if err := s.SetProjector(projector); err != nil {
		return nil, err
	}
	if err := s.SetObserved(observed); err != nil {
		return nil, err
	}
	if err := s.SetReference(reference); err != nil {
		return nil, err
	}
	return s, nil
}

// SetThreshold changes the maximum match distance in arcseconds.
func (s *Session) SetThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return configErr("threshold", "distance must be > 0, got %g", threshold)
	}
	s.threshold = threshold
	s.invalidate()
	return nil
}

// SetProjector changes the projection applied to observed records.
func (s *Session) SetProjector(p Projector) error {
	if p == nil {
		return configErr("projector", "projector is required")
	}
	s.projector = p
	s.invalidate()
	return nil
}

// SetGenerator changes the candidate generator.
func (s *Session) SetGenerator(g CandidateGenerator) error {
	if g == nil {
		return configErr("generator", "candidate generator is required")
	}
	s.generator = g
	s.invalidate()
	return nil
}

// SetObserved replaces the observed set with a copy of records.
func (s *Session) SetObserved(records []models.PointRecord) error {
	idx, err := indexRecords("observed", records)
	if err != nil {
		return err
	}
	s.observed = CloneRecords(records)
	s.obsIndex = idx
	s.invalidate()
	return nil
}

// SetReference replaces the reference set with a copy of records.
func (s *Session) SetReference(records []models.PointRecord) error {
	idx, err := indexRecords("reference", records)
	if err != nil {
		return err
	}
	s.reference = CloneRecords(records)
	s.refIndex = idx
	s.invalidate()
	return nil
}

// Threshold returns the configured match distance in arcseconds.
func (s *Session) Threshold() float64 { return s.threshold }

func (s *Session) invalidate() {
	s.matches = nil
	s.candidates = 0
	s.valid = false
}

// Run projects the observed set, generates candidates and resolves them.
// On failure the session holds no match set.
func (s *Session) Run(ctx context.Context) error {
	s.invalidate()

	matches, err := s.run(ctx)
	rms := 0.0
	if err == nil {
		rms = Summarize(matches).RMS
	}
	s.logger.LogRun(ctx, len(s.observed), len(s.reference), s.candidates, len(matches), rms, err)
	if err != nil {
		return err
	}

	s.matches = matches
	s.valid = true
	return nil
}

func (s *Session) run(ctx context.Context) ([]models.CandidatePair, error) {
	if err := s.project(ctx); err != nil {
		return nil, fmt.Errorf("project observed records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates, err := s.generator.Generate(CloneRecords(s.observed), CloneRecords(s.reference), s.threshold)
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}
	s.candidates = len(candidates)
	s.logger.DebugContext(ctx, "candidates generated", "count", len(candidates), "threshold_arcsec", s.threshold)

	if err := s.checkCandidates(candidates); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := Resolve(candidates)
	if len(matches) == 0 {
		return nil, &NoMatchesError{Observed: len(s.observed), Reference: len(s.reference)}
	}
	return matches, nil
}

// project fills the sky position of every owned observed record.
func (s *Session) project(ctx context.Context) error {
	total := len(s.observed)
	if total == 0 {
		return nil
	}
	chunkSize := (total + s.workers - 1) / s.workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				r := &s.observed[i]
				u, v := s.projector.Project(r.X, r.Y)
				r.Sky = models.Coordinate{Lat: v, Lon: u}
				r.Projected = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "observed records projected", "count", total)
	return nil
}

func (s *Session) checkCandidates(candidates []models.CandidatePair) error {
	for i, c := range candidates {
		if _, ok := s.obsIndex[c.ObservedID]; !ok {
			return fmt.Errorf("%w: pair %d: unknown observed ID %q", ErrInvalidCandidate, i, c.ObservedID)
		}
		if _, ok := s.refIndex[c.ReferenceID]; !ok {
			return fmt.Errorf("%w: pair %d: unknown reference ID %q", ErrInvalidCandidate, i, c.ReferenceID)
		}
		if math.IsNaN(c.Distance) || c.Distance < 0 || c.Distance > s.threshold {
			return fmt.Errorf("%w: pair %d (%s, %s): distance %g outside [0, %g]",
				ErrInvalidCandidate, i, c.ObservedID, c.ReferenceID, c.Distance, s.threshold)
		}
	}
	return nil
}

// Matches returns a copy of the resolved match set.
func (s *Session) Matches() ([]models.CandidatePair, error) {
	if !s.valid {
		return nil, ErrNotRun
	}
	out := make([]models.CandidatePair, len(s.matches))
	copy(out, s.matches)
	return out, nil
}

// MatchedPairs returns the match set joined with the owned records, the
// observed side carrying its projected sky position.
func (s *Session) MatchedPairs() ([]models.MatchedPair, error) {
	if !s.valid {
		return nil, ErrNotRun
	}
	out := make([]models.MatchedPair, len(s.matches))
	for i, m := range s.matches {
		out[i] = models.MatchedPair{
			Observed:  s.observed[s.obsIndex[m.ObservedID]],
			Reference: s.reference[s.refIndex[m.ReferenceID]],
			Distance:  m.Distance,
		}
	}
	return out, nil
}

// Observed returns a copy of the owned observed records.
func (s *Session) Observed() []models.PointRecord { return CloneRecords(s.observed) }

// Reference returns a copy of the owned reference records.
func (s *Session) Reference() []models.PointRecord { return CloneRecords(s.reference) }
