// Package filter provides spectrum preparation and hit filters
package filter

import (
	"errors"
	"fmt"

	"github.com/crtlab/n145/pkg/core"
)

// ErrSkipped is returned by Apply for spectra that do not pass the filter
var ErrSkipped = errors.New("spectrum filtered out")

// Config holds spectrum filtering configuration
type Config struct {
	MSLevel      int     // Keep only spectra of this MS level (0 = all)
	MinIntensity float64 // Drop peaks below this intensity (0 = keep all)
	MinPeaks     int     // Skip spectra left with fewer peaks (0 = keep empty spectra)
}

// Apply prepares a spectrum for peak lookup. Spectra that should not be
// used are reported with ErrSkipped.
func (c *Config) Apply(spec *core.Spectrum) error {
	if c.MSLevel > 0 && spec.MSLevel != c.MSLevel {
		return fmt.Errorf("%w: %s is not MS%d", ErrSkipped, spec.Name(), c.MSLevel)
	}

	if c.MinIntensity > 0 {
		keepPeaks(spec, func(p core.Peak) bool { return p.Intensity >= c.MinIntensity })
	}

	if c.MinPeaks > 0 && len(spec.Peaks) < c.MinPeaks {
		return fmt.Errorf("%w: %s has %d peaks", ErrSkipped, spec.Name(), len(spec.Peaks))
	}

	// Ensure peaks are sorted after all filtering
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}

	return nil
}

func keepPeaks(spec *core.Spectrum, keep func(core.Peak) bool) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if keep(peak) {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

// MinMZ keeps hits whose 14N and 15N m/z are both at least min
func MinMZ(hits []core.Hit, min float64) []core.Hit {
	var out []core.Hit
	for _, h := range hits {
		if h.N14MZ >= min && h.N15MZ >= min {
			out = append(out, h)
		}
	}
	return out
}
