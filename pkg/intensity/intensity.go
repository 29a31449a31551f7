// Package intensity measures 14N and 15N peak intensities of peptides in
// MS1 scans
package intensity

import (
	"context"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crtlab/n145/pkg/core"
)

// DefaultTolerance is the peak search window in Da at charge 1
const DefaultTolerance = 0.01

// Options controls peak lookup
type Options struct {
	Tolerance float64 // Da, divided by the charge for each lookup
	Workers   int     // 0 = one per CPU
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) window(charge int) float64 {
	tol := o.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if charge <= 0 {
		return tol
	}
	return tol / float64(charge)
}

// Measurement is a 14N/15N peak pair found in one scan
type Measurement struct {
	Scan   string
	RT     float64
	N14MZ  float64
	N14Int float64
	N15MZ  float64
	N15Int float64
	Ratio  float64 // I15/I14 rounded to 3 decimals, 0 when I14 is zero
}

// measure looks up both peaks in one scan
func measure(spec *core.Spectrum, n14MZ, n15MZ, tol float64) (Measurement, bool) {
	i := spec.FindNearest(n14MZ, tol)
	j := spec.FindNearest(n15MZ, tol)
	if i < 0 || j < 0 {
		return Measurement{}, false
	}
	m := Measurement{
		Scan:   spec.ScanLabel(),
		RT:     spec.RetentionTime,
		N14MZ:  spec.Peaks[i].MZ,
		N14Int: spec.Peaks[i].Intensity,
		N15MZ:  spec.Peaks[j].MZ,
		N15Int: spec.Peaks[j].Intensity,
	}
	if m.N14Int != 0 {
		m.Ratio = core.RoundFloat(m.N15Int/m.N14Int, 3)
	}
	return m, true
}

// HitRow is the intensity of one hit in one scan
type HitRow struct {
	ModSeq string
	Hit    core.Hit
	Measurement
}

// HitIntensities measures every hit in every MS1 scan. A row is produced
// when both peaks are found and at least one is non-zero; the ratio is 0 when
// the 14N intensity is zero. Rows follow hit order, then scan order.
func HitIntensities(ctx context.Context, hits []core.Hit, spectra []*core.Spectrum, opts Options, logger *zap.Logger) ([]HitRow, error) {
	results := make([][]HitRow, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for i := range hits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = hitRows(&hits[i], spectra, opts, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []HitRow
	for _, r := range results {
		rows = append(rows, r...)
	}
	return rows, nil
}

func hitRows(hit *core.Hit, spectra []*core.Spectrum, opts Options, logger *zap.Logger) []HitRow {
	modSeq := hit.Sequence
	if mods, err := hit.Mods(); err != nil {
		logger.Warn("could not parse modifications",
			zap.String("sequence", hit.Sequence), zap.String("modifications", hit.Modifications), zap.Error(err))
	} else if annotated, err := core.AnnotatedSequence(hit.Sequence, hit.Start, mods); err != nil {
		logger.Warn("could not annotate sequence", zap.String("sequence", hit.Sequence), zap.Error(err))
	} else {
		modSeq = annotated
	}

	tol := opts.window(hit.Charge)
	var rows []HitRow
	for _, spec := range spectra {
		m, ok := measure(spec, hit.N14MZ, hit.N15MZ, tol)
		if !ok || (m.N14Int == 0 && m.N15Int == 0) {
			continue
		}
		rows = append(rows, HitRow{ModSeq: modSeq, Hit: *hit, Measurement: m})
	}
	return rows
}

// HitColumns is the column layout of HitTable
var HitColumns = []string{
	"ModSeq", "Sequence", "Modifications", "Charge", "RT", "Scan number",
	"14N m/z (Thr)", "14N m/z (Exp)", "14N Intensity",
	"15N m/z (Thr)", "15N m/z (Exp)", "15N Intensity", "Ratio",
}

// HitTable renders hit intensity rows
func HitTable(name string, rows []HitRow) *core.Table {
	t := core.NewTable(name, HitColumns...)
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.ModSeq, r.Hit.Sequence, r.Hit.Modifications, r.Hit.Charge, r.RT, r.Scan,
			r.Hit.N14MZ, r.N14MZ, r.N14Int,
			r.Hit.N15MZ, r.N15MZ, r.N15Int, r.Ratio,
		})
	}
	return t
}

// Target is a peptide to be measured in the scan eluting at RT
type Target struct {
	Name   string
	Charge int
	RT     float64 // seconds
	N14MZ  float64
	N15MZ  float64
}

// scanAt returns the first scan with floor(rt) < RT < ceil(rt)
func scanAt(spectra []*core.Spectrum, rt float64) *core.Spectrum {
	lo, hi := math.Floor(rt), math.Ceil(rt)
	for _, s := range spectra {
		if lo < s.RetentionTime && s.RetentionTime < hi {
			return s
		}
	}
	return nil
}

// RatioAtRT measures each target in the scan at its retention time.
// Entries are nil for targets without a scan, without either peak or with
// a zero 14N intensity. Values are rounded to 3 decimals.
func RatioAtRT(ctx context.Context, targets []Target, spectra []*core.Spectrum, opts Options, logger *zap.Logger) ([]*Measurement, error) {
	out := make([]*Measurement, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for i := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = measureTarget(&targets[i], spectra, opts, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func measureTarget(t *Target, spectra []*core.Spectrum, opts Options, logger *zap.Logger) *Measurement {
	spec := scanAt(spectra, t.RT)
	if spec == nil {
		logger.Warn("no scan at retention time", zap.String("peptide", t.Name), zap.Float64("rt", t.RT))
		return nil
	}

	m, ok := measure(spec, t.N14MZ, t.N15MZ, opts.window(t.Charge))
	if !ok {
		logger.Warn("could not add peptide",
			zap.String("peptide", t.Name),
			zap.Float64("n14_mz", t.N14MZ),
			zap.Float64("n15_mz", t.N15MZ),
			zap.Float64("rt", t.RT),
			zap.String("scan", spec.ScanLabel()))
		return nil
	}
	if m.N14Int == 0 {
		logger.Debug("zero 14N intensity", zap.String("peptide", t.Name), zap.String("scan", m.Scan))
		return nil
	}

	m.N14MZ = core.RoundFloat(m.N14MZ, 3)
	m.N15MZ = core.RoundFloat(m.N15MZ, 3)
	m.N14Int = core.RoundFloat(m.N14Int, 3)
	m.N15Int = core.RoundFloat(m.N15Int, 3)
	return &m
}
