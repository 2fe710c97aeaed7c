// Package pipeline runs a complete workbook match: read both sheets, run a
// match session and write the resolved pairs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"skymatch/internal/calculator"
	"skymatch/internal/config"
	"skymatch/internal/excel"
	"skymatch/internal/logging"
	"skymatch/internal/matcher"
	"skymatch/internal/models"
	"skymatch/internal/wcs"
)

// Options describes one workbook run.
type Options struct {
	ObservedSheet  string
	ReferenceSheet string
	ResultSheet    string
	Layout         excel.Layout

	RadiusArcsec float64
	Projector    matcher.Projector
	Workers      int

	Logger     *logging.Logger
	OnProgress calculator.ProgressCallback
	OnLog      calculator.LoggerCallback
}

// OptionsFromConfig builds Options from a validated Config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	radius, err := cfg.Match.RadiusArcsec()
	if err != nil {
		return Options{}, err
	}
	wcsOpts, err := cfg.WCS.Options()
	if err != nil {
		return Options{}, err
	}
	proj, err := wcs.New(wcsOpts)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ObservedSheet:  cfg.Excel.ObservedSheet,
		ReferenceSheet: cfg.Excel.ReferenceSheet,
		ResultSheet:    cfg.Excel.ResultSheet,
		Layout: excel.Layout{
			IDColumn:   cfg.Excel.IDColumn,
			NameColumn: cfg.Excel.NameColumn,
			XColumn:    cfg.Excel.XColumn,
			YColumn:    cfg.Excel.YColumn,
		},
		RadiusArcsec: radius,
		Projector:    proj,
		Workers:      cfg.Match.Workers,
	}, nil
}

// Result summarises a finished run.
type Result struct {
	Observed   int             `json:"observed"`
	Reference  int             `json:"reference"`
	Skipped    int             `json:"skipped"`
	Summary    matcher.Summary `json:"summary"`
	OutputPath string          `json:"output"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// MatchWorkbook reads inputPath, matches and writes outputPath.
func MatchWorkbook(ctx context.Context, inputPath, outputPath string, opts Options) (*Result, error) {
	logf := opts.OnLog
	if logf == nil {
		logf = func(string) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	f, err := excel.OpenFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	logf(fmt.Sprintf("Reading sheet %s...", opts.ObservedSheet))
	observed, skippedObs, err := excel.ReadSheet(f, opts.ObservedSheet, opts.Layout)
	if err != nil {
		return nil, err
	}
	logf(fmt.Sprintf("%d observed records read (%d skipped).", len(observed), skippedObs))

	logf(fmt.Sprintf("Reading sheet %s...", opts.ReferenceSheet))
	reference, skippedRef, err := excel.ReadReferenceSheet(f, opts.ReferenceSheet, opts.Layout)
	if err != nil {
		return nil, err
	}
	logf(fmt.Sprintf("%d reference records read (%d skipped).", len(reference), skippedRef))

	pairs, summary, elapsed, err := Match(ctx, observed, reference, opts)
	if err != nil {
		return nil, err
	}
	logf(fmt.Sprintf("%d objects matched in %s, rms scatter %.3f arcsec.", summary.Count, elapsed, summary.RMS))

	rows := make([]models.ResultRow, len(pairs))
	for i, p := range pairs {
		rows[i] = models.NewResultRow(p)
	}
	logf("Writing result workbook...")
	if err := excel.WriteResult(outputPath, rows, opts.ResultSheet, summary); err != nil {
		return nil, fmt.Errorf("write result: %w", err)
	}
	logger.InfoContext(ctx, "result written", "path", outputPath, "rows", len(rows))

	return &Result{
		Observed:   len(observed),
		Reference:  len(reference),
		Skipped:    skippedObs + skippedRef,
		Summary:    summary,
		OutputPath: outputPath,
		Elapsed:    elapsed,
	}, nil
}

// Match runs a session over in-memory sets using the default radius search.
func Match(ctx context.Context, observed, reference []models.PointRecord, opts Options) ([]models.MatchedPair, matcher.Summary, time.Duration, error) {
	start := time.Now()
	gen := &calculator.RadiusMatcher{
		Workers:    opts.Workers,
		OnProgress: opts.OnProgress,
		Logger:     opts.OnLog,
	}
	s, err := matcher.NewSession(observed, reference, opts.Projector, opts.RadiusArcsec,
		matcher.WithGenerator(gen),
		matcher.WithWorkers(opts.Workers),
		matcher.WithLogger(opts.Logger),
	)
	if err != nil {
		return nil, matcher.Summary{}, 0, err
	}
	if err := s.Run(ctx); err != nil {
		return nil, matcher.Summary{}, 0, err
	}

	matches, err := s.Matches()
	if err != nil {
		return nil, matcher.Summary{}, 0, err
	}
	pairs, err := s.MatchedPairs()
	if err != nil {
		return nil, matcher.Summary{}, 0, err
	}
	return pairs, matcher.Summarize(matches), time.Since(start), nil
}
