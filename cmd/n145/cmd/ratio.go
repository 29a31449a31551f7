package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/intensity"
	"github.com/crtlab/n145/pkg/ratio"
	"github.com/crtlab/n145/pkg/reader/tandem"
)

var ratioCmd = &cobra.Command{
	Use:   "ratio",
	Short: "Compute 14N/15N ratios of X!Tandem identifications",
	Long: `Read an X!Tandem result, keep the PSMs passing the target-decoy FDR,
compute the 14N and 15N isotope masses of every modified peptide and measure
both peaks in the MS1 scan at the peptide retention time.

Example:
  n145 ratio --tandem mix_37.xml --mzxml run.mzXML --mods Modifications.csv --out ratios.xlsx`,
	RunE: runRatio,
}

func runRatio(cmd *cobra.Command, args []string) error {
	start := time.Now()

	db, err := loadModDatabase(ratioMods)
	if err != nil {
		return err
	}

	f, err := os.Open(ratioTandem)
	if err != nil {
		return fmt.Errorf("failed to open X!Tandem file: %w", err)
	}
	psms, err := tandem.Read(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ratioTandem, err)
	}

	accepted := tandem.FilterFDR(psms, cfg.FDR, cfg.DecoyPrefix)
	logger.Info("PSMs passing FDR",
		zap.Int("total", len(psms)), zap.Int("accepted", len(accepted)), zap.Float64("fdr", cfg.FDR))

	spectra, err := readMS1(ratioMzXML)
	if err != nil {
		return err
	}

	opts := ratio.Options{
		MinMZ:     cfg.MinMZ,
		Intensity: intensity.Options{Tolerance: cfg.Tolerance, Workers: cfg.Threads},
	}
	table, err := ratio.Run(cmd.Context(), "Ratios", accepted, spectra, db, cfg.RegionMap(), opts, logger)
	if err != nil {
		return err
	}

	if err := writeResults(cmd, ratioOutput, true, table); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("Done in %.2f seconds (%.2f minutes)\n", elapsed.Seconds(), elapsed.Minutes())
	return nil
}

// loadModDatabase returns the default modifications extended by the CSV at path
func loadModDatabase(path string) (*core.ModDatabase, error) {
	db := core.DefaultModDatabase()
	if path == "" {
		return db, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modification CSV: %w", err)
	}
	defer f.Close()

	if err := db.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	logger.Info("loaded modifications", zap.String("file", path), zap.Int("labels", db.Len()))
	return db, nil
}
