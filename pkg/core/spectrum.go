// Package core provides the intermediate representation (IR) models and validation logic
// for mass spectrometry scans used by n145.
package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Spectrum represents a single MS scan.
type Spectrum struct {
	ScanNumber    int     // Scan number as given in the file
	NativeID      string  // e.g. "scan=1234"
	MSLevel       int     // 1 for survey scans
	RetentionTime float64 // Seconds
	Peaks         []Peak  // Sorted by m/z after SortPeaks

	// Internal tracking
	SourceFile string
}

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum can be searched for peaks.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.MSLevel <= 0 {
		errs = append(errs, "ms level must be positive")
	}
	if s.RetentionTime < 0 || math.IsNaN(s.RetentionTime) {
		errs = append(errs, "retention time must be non-negative")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum " + s.Name(),
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// FindNearest returns the index of the peak closest to mz within
// [mz-tol, mz+tol], or -1. Peaks must be sorted. Ties go to the lower m/z.
func (s *Spectrum) FindNearest(mz, tol float64) int {
	if len(s.Peaks) == 0 {
		return -1
	}

	i := sort.Search(len(s.Peaks), func(i int) bool {
		return s.Peaks[i].MZ >= mz
	})

	best := -1
	bestDist := math.Inf(1)
	for _, j := range [2]int{i - 1, i} {
		if j < 0 || j >= len(s.Peaks) {
			continue
		}
		d := math.Abs(s.Peaks[j].MZ - mz)
		if d <= tol && d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// MZRange returns the lowest and highest peak m/z.
func (s *Spectrum) MZRange() (float64, float64) {
	if len(s.Peaks) == 0 {
		return 0, 0
	}
	return s.Peaks[0].MZ, s.Peaks[len(s.Peaks)-1].MZ
}

// ScanLabel returns the value of the last key=value pair of the native id,
// e.g. "1234" for "scan=1234".
func (s *Spectrum) ScanLabel() string {
	if i := strings.LastIndex(s.NativeID, "="); i >= 0 {
		return s.NativeID[i+1:]
	}
	if s.NativeID != "" {
		return s.NativeID
	}
	return strconv.Itoa(s.ScanNumber)
}

// Name returns the spectrum name in format "scan/level"
func (s *Spectrum) Name() string {
	return fmt.Sprintf("%s/MS%d", s.ScanLabel(), s.MSLevel)
}
