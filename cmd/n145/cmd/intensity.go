package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/filter"
	"github.com/crtlab/n145/pkg/intensity"
	"github.com/crtlab/n145/pkg/reader/sheet"
)

var intensityCmd = &cobra.Command{
	Use:   "intensity",
	Short: "Measure 14N and 15N hit intensities in every MS1 scan",
	Long: `Look up the 14N and 15N peaks of every hit in every MS1 scan of a run
within tolerance/charge and report the intensities and their ratio.

Example:
  n145 intensity --hits hits_37.xlsx --mzxml run.mzXML --out intensity_37.xlsx --tolerance 0.01`,
	RunE: runIntensity,
}

func runIntensity(cmd *cobra.Command, args []string) error {
	hits, err := sheet.ReadHitList(intensityHits, "")
	if err != nil {
		return fmt.Errorf("failed to read hits: %w", err)
	}
	kept := hits
	if minMZ, ok := explicitMinMZ(cmd.Flags()); ok {
		kept = filter.MinMZ(hits, minMZ)
		if dropped := len(hits) - len(kept); dropped > 0 {
			logger.Info("hits below minimum m/z dropped", zap.Int("count", dropped), zap.Float64("min_mz", minMZ))
		}
	}

	spectra, err := readMS1(intensityMzXML)
	if err != nil {
		return err
	}

	opts := intensity.Options{Tolerance: cfg.Tolerance, Workers: cfg.Threads}
	rows, err := intensity.HitIntensities(cmd.Context(), kept, spectra, opts, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Measured %d hits in %d scans: %d rows\n", len(kept), len(spectra), len(rows))
	return writeResults(cmd, intensityOutput, false, intensity.HitTable(sheetTitle(intensityHits), rows))
}

// explicitMinMZ returns the --min-mz threshold only when it was given on the
// command line. Hit lists are already cut by hits.
func explicitMinMZ(flags *pflag.FlagSet) (float64, bool) {
	if !flags.Changed("min-mz") {
		return 0, false
	}
	v, err := flags.GetFloat64("min-mz")
	if err != nil {
		return 0, false
	}
	return v, true
}
