package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skymatch/internal/pipeline"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the observed and reference sheets of a workbook",
	Long: `Reads the observed and reference sheets of an .xlsx workbook, matches
them within the configured radius and writes the one-to-one pairs and a
summary sheet to the output workbook.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringP("input", "i", "", "input workbook (required)")
	matchCmd.Flags().StringP("output", "o", "", "output workbook (default <input>_matches.xlsx)")
	matchCmd.Flags().Float64P("radius", "r", 0, "match radius")
	matchCmd.Flags().String("unit", "", "radius unit: arcsec, arcmin, deg or m")
	matchCmd.Flags().Int("workers", 0, "parallel workers (0 = number of CPUs)")
	_ = matchCmd.MarkFlagRequired("input")

	_ = viper.BindPFlag("match.radius", matchCmd.Flags().Lookup("radius"))
	_ = viper.BindPFlag("match.unit", matchCmd.Flags().Lookup("unit"))
	_ = viper.BindPFlag("match.workers", matchCmd.Flags().Lookup("workers"))
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_matches.xlsx"
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Logger = logger
	opts.OnLog = func(msg string) { logger.Debug(msg) }

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := pipeline.MatchWorkbook(ctx, input, output, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d matches (%d observed, %d reference, %d rows skipped), rms %.3f arcsec, max %.3f arcsec\n",
		res.Summary.Count, res.Observed, res.Reference, res.Skipped, res.Summary.RMS, res.Summary.Max)
	fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", res.OutputPath)
	return nil
}
