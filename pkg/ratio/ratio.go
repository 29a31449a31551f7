// Package ratio computes 14N/15N intensity ratios for X!Tandem identifications
package ratio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/intensity"
	"github.com/crtlab/n145/pkg/reader/tandem"
)

// DefaultMinMZ drops peptides whose 14N or 15N m/z is lower
const DefaultMinMZ = 500

// Options controls the ratio pipeline
type Options struct {
	MinMZ     float64
	Intensity intensity.Options
}

// Peptide is one identified peptide species
type Peptide struct {
	Sequence      string
	ModSequence   string
	Charge        int
	Start         int
	End           int
	RT            float64
	Modifications string
	Region        string
	Masses        core.IsotopeMasses
}

// Peptides lists one peptide per PSM and protein match. Modifications the
// database has no label for are logged and left out of ModSequence.
func Peptides(psms []tandem.PSM, db *core.ModDatabase, logger *zap.Logger) []Peptide {
	var out []Peptide
	for _, psm := range psms {
		for _, prot := range psm.Proteins {
			modSeq, unsupported, err := db.ModifiedSequence(prot.Sequence, prot.Start, prot.Mods)
			if err != nil {
				logger.Warn("skipping peptide", zap.String("group", psm.ID), zap.String("sequence", prot.Sequence), zap.Error(err))
				continue
			}
			for _, mod := range unsupported {
				logger.Warn("modification is not supported",
					zap.String("residue", mod.Residue),
					zap.Int("position", mod.Position),
					zap.Float64("mass", mod.Mass))
			}

			out = append(out, Peptide{
				Sequence:      prot.Sequence,
				ModSequence:   modSeq,
				Charge:        psm.Charge,
				Start:         prot.Start,
				End:           prot.End,
				RT:            psm.RT,
				Modifications: core.FormatModList(prot.Mods),
			})
		}
	}
	return out
}

// Prepare keeps the first peptide of every ModSequence, assigns its region
// and computes the isotope masses. Peptides below minMZ or with residues
// the database does not know are dropped.
func Prepare(peptides []Peptide, regions *core.RegionMap, db *core.ModDatabase, minMZ float64, logger *zap.Logger) []Peptide {
	seen := make(map[string]bool)
	var out []Peptide
	for _, p := range peptides {
		if seen[p.ModSequence] {
			continue
		}
		seen[p.ModSequence] = true

		masses, err := core.CalculateIsotopeMasses(p.ModSequence, p.Charge, minMZ, db)
		if err != nil {
			logger.Debug("dropping peptide", zap.String("sequence", p.ModSequence), zap.Int("charge", p.Charge), zap.Error(err))
			continue
		}

		p.Region = regions.Region(p.Start, p.End)
		p.Masses = masses
		out = append(out, p)
	}
	return out
}

// Columns is the column layout of the ratio table
var Columns = []string{
	"Sequence", "Charge", "Start", "End", "Modifications", "RT", "Scan number",
	"14N mass", "14N mz (Thr)", "14N mz (Exp)", "14N Int",
	"15N mass", "15N mz (Thr)", "15N mz (Exp)", "15N Int",
	"Ratio", "Region",
}

// Measure looks up every prepared peptide in the scan at its retention time
// and returns the rows that could be measured
func Measure(ctx context.Context, name string, peptides []Peptide, spectra []*core.Spectrum, opts intensity.Options, logger *zap.Logger) (*core.Table, error) {
	targets := make([]intensity.Target, len(peptides))
	for i, p := range peptides {
		targets[i] = intensity.Target{
			Name:   p.ModSequence,
			Charge: p.Charge,
			RT:     p.RT,
			N14MZ:  p.Masses.N14MZ,
			N15MZ:  p.Masses.N15MZ,
		}
	}

	measured, err := intensity.RatioAtRT(ctx, targets, spectra, opts, logger)
	if err != nil {
		return nil, err
	}

	t := core.NewTable(name, Columns...)
	for i, m := range measured {
		if m == nil {
			continue
		}
		p := peptides[i]
		var mods any
		if p.Modifications != "" {
			mods = p.Modifications
		}
		err := t.Append(
			p.Sequence, p.Charge, p.Start, p.End, mods, p.RT, m.Scan,
			p.Masses.N14Mass, p.Masses.N14MZ, m.N14MZ, m.N14Int,
			p.Masses.N15Mass, p.Masses.N15MZ, m.N15MZ, m.N15Int,
			m.Ratio, p.Region,
		)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Run chains Peptides, Prepare and Measure
func Run(ctx context.Context, name string, psms []tandem.PSM, spectra []*core.Spectrum, db *core.ModDatabase, regions *core.RegionMap, opts Options, logger *zap.Logger) (*core.Table, error) {
	if db == nil {
		db = core.DefaultModDatabase()
	}
	if regions == nil {
		regions = core.DefaultRegionMap()
	}

	peptides := Peptides(psms, db, logger)
	logger.Info("peptides identified", zap.Int("count", len(peptides)))

	prepared := Prepare(peptides, regions, db, opts.MinMZ, logger)
	logger.Info("peptides above minimum m/z", zap.Int("count", len(prepared)), zap.Float64("min_mz", opts.MinMZ))

	t, err := Measure(ctx, name, prepared, spectra, opts.Intensity, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to measure intensities: %w", err)
	}
	logger.Info("peptides measured", zap.Int("count", t.Len()))

	return t, nil
}
