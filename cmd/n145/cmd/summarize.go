package cmd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/reader/mzxml"
	"github.com/crtlab/n145/pkg/writer/sqlite"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize the scans of an mzXML run",
	Long: `Print scan counts per MS level, retention time and m/z ranges and the
number of invalid scans of an mzXML file. With --db every scan is stored in
the SpectrumTable of the database.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

// runSummary accumulates scan statistics
type runSummary struct {
	levels  map[int]int
	invalid int
	peaks   int
	minRT   float64
	maxRT   float64
	minMZ   float64
	maxMZ   float64
}

func newRunSummary() *runSummary {
	return &runSummary{
		levels: make(map[int]int),
		minRT:  math.Inf(1),
		maxRT:  math.Inf(-1),
		minMZ:  math.Inf(1),
		maxMZ:  math.Inf(-1),
	}
}

func (s *runSummary) add(spec *core.Spectrum) {
	s.levels[spec.MSLevel]++
	s.peaks += len(spec.Peaks)
	s.minRT = math.Min(s.minRT, spec.RetentionTime)
	s.maxRT = math.Max(s.maxRT, spec.RetentionTime)
	if len(spec.Peaks) > 0 {
		low, high := spec.MZRange()
		s.minMZ = math.Min(s.minMZ, low)
		s.maxMZ = math.Max(s.maxMZ, high)
	}
}

func (s *runSummary) total() int {
	n := 0
	for _, c := range s.levels {
		n += c
	}
	return n
}

func runSummarize(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var writer *sqlite.Writer
	if cfg.DB != "" {
		if writer, err = sqlite.NewWriter(cfg.DB); err != nil {
			return fmt.Errorf("failed to create output database: %w", err)
		}
		defer writer.Close()
	}

	summary := newRunSummary()
	reader := mzxml.NewReader(f, filepath.Base(path))
	for reader.Next() {
		spec := reader.Spectrum()
		if !spec.ArePeaksSorted() {
			spec.SortPeaks()
		}
		if err := spec.Validate(); err != nil {
			logger.Warn("invalid scan", zap.String("scan", spec.Name()), zap.Error(err))
			summary.invalid++
		}
		summary.add(spec)

		if writer != nil {
			if err := writer.WriteSpectrum(spec); err != nil {
				return err
			}
		}
	}
	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	printRunSummary(path, summary)

	if writer != nil {
		if err := writer.Finalize(cmd.Name(), runDescription()); err != nil {
			return fmt.Errorf("failed to finalize database: %w", err)
		}
		fmt.Printf("Database: %s\n", cfg.DB)
	}
	return nil
}

func printRunSummary(path string, s *runSummary) {
	fmt.Printf("File: %s\n", path)
	fmt.Printf("Scans: %d\n", s.total())
	if s.total() == 0 {
		return
	}

	levels := make([]int, 0, len(s.levels))
	for l := range s.levels {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	for _, l := range levels {
		fmt.Printf("  MS%d: %d\n", l, s.levels[l])
	}

	fmt.Printf("Retention time: %.2f - %.2f s\n", s.minRT, s.maxRT)
	if s.peaks > 0 {
		fmt.Printf("m/z range: %.4f - %.4f\n", s.minMZ, s.maxMZ)
	}
	fmt.Printf("Peaks: %d\n", s.peaks)
	if s.invalid > 0 {
		fmt.Printf("Invalid scans: %d\n", s.invalid)
	}
}
