// Package quant counts residue modifications per protein position across
// peptide lists
package quant

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/chart"
	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/reader/sheet"
)

// Label names a modification mass
type Label struct {
	Mass float64 `yaml:"mass" mapstructure:"mass"`
	Name string  `yaml:"name" mapstructure:"name"`
}

// CombineRule sums label columns into a new column
type CombineRule struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Columns []string `yaml:"columns" mapstructure:"columns"`
}

// Condition is one peptide list to summarise
type Condition struct {
	File  string `yaml:"file" mapstructure:"file"`
	Title string `yaml:"title" mapstructure:"title"`
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// DefaultSheet is read when a condition names no sheet
const DefaultSheet = "Sheet1"

// Summary holds modification counts per position (rows) and label (columns)
type Summary struct {
	Positions   []int
	Labels      []string
	Counts      [][]int
	Percentages [][]float64
	Coverage    []int // peptides covering each position
}

// FindModifications counts the modifications of the peptides at the given
// positions. Percentages are relative to the number of peptides covering
// the position and 0 when none does.
func FindModifications(peptides []core.PeptideID, positions []int, labels []Label, logger *zap.Logger) *Summary {
	s := newSummary(positions, labels)

	row := make(map[int]int, len(s.Positions))
	for i, pos := range s.Positions {
		row[pos] = i
	}
	byMass := make(map[core.MassKey]int, len(labels))
	for _, l := range labels {
		byMass[core.KeyOf(l.Mass)] = s.label(l.Name)
	}

	for _, p := range peptides {
		mods, err := core.ParseModList(p.Modifications)
		if err != nil {
			logger.Warn("could not parse modifications",
				zap.String("sequence", p.Sequence), zap.String("modifications", p.Modifications), zap.Error(err))
			continue
		}
		for _, mod := range mods {
			i, ok := row[mod.Position]
			if !ok {
				continue
			}
			j, ok := byMass[core.KeyOf(mod.Mass)]
			if !ok {
				logger.Warn("unknown modification mass",
					zap.String("sequence", p.Sequence), zap.Int("position", mod.Position), zap.Float64("mass", mod.Mass))
				continue
			}
			s.Counts[i][j]++
		}

		for i, pos := range s.Positions {
			if p.Start <= pos && pos <= p.End {
				s.Coverage[i]++
			}
		}
	}

	for i := range s.Positions {
		for j := range s.Labels {
			if s.Coverage[i] != 0 {
				s.Percentages[i][j] = float64(s.Counts[i][j]) / float64(s.Coverage[i]) * 100
			}
		}
	}

	return s
}

func newSummary(positions []int, labels []Label) *Summary {
	s := &Summary{}

	seen := make(map[int]bool)
	for _, pos := range positions {
		if !seen[pos] {
			seen[pos] = true
			s.Positions = append(s.Positions, pos)
		}
	}
	sort.Ints(s.Positions)

	for _, l := range labels {
		if s.label(l.Name) < 0 {
			s.Labels = append(s.Labels, l.Name)
		}
	}

	s.Counts = make([][]int, len(s.Positions))
	s.Percentages = make([][]float64, len(s.Positions))
	s.Coverage = make([]int, len(s.Positions))
	for i := range s.Positions {
		s.Counts[i] = make([]int, len(s.Labels))
		s.Percentages[i] = make([]float64, len(s.Labels))
	}
	return s
}

// label returns the column of a label or -1
func (s *Summary) label(name string) int {
	for i, l := range s.Labels {
		if l == name {
			return i
		}
	}
	return -1
}

// Combine returns a summary where every rule's columns are summed into a new
// column replacing them. When order is non-empty the result holds exactly
// those columns in that order.
func (s *Summary) Combine(rules []CombineRule, order []string) (*Summary, error) {
	out := s.clone()

	for _, rule := range rules {
		var cols []int
		for _, c := range rule.Columns {
			j := out.label(c)
			if j < 0 {
				return nil, fmt.Errorf("combine %s: unknown column %s", rule.Name, c)
			}
			cols = append(cols, j)
		}
		if out.label(rule.Name) >= 0 {
			return nil, fmt.Errorf("combine %s: column already exists", rule.Name)
		}

		out.Labels = append(out.Labels, rule.Name)
		for i := range out.Positions {
			var count int
			var pct float64
			for _, j := range cols {
				count += out.Counts[i][j]
				pct += out.Percentages[i][j]
			}
			out.Counts[i] = append(out.Counts[i], count)
			out.Percentages[i] = append(out.Percentages[i], pct)
		}
		out = out.selectColumns(func(j int) bool {
			for _, c := range cols {
				if c == j {
					return false
				}
			}
			return true
		})
	}

	if len(order) == 0 {
		return out, nil
	}

	idx := make([]int, len(order))
	for k, name := range order {
		j := out.label(name)
		if j < 0 {
			return nil, fmt.Errorf("order: unknown column %s", name)
		}
		idx[k] = j
	}
	return out.reorder(idx), nil
}

func (s *Summary) clone() *Summary {
	out := &Summary{
		Positions:   append([]int(nil), s.Positions...),
		Labels:      append([]string(nil), s.Labels...),
		Coverage:    append([]int(nil), s.Coverage...),
		Counts:      make([][]int, len(s.Counts)),
		Percentages: make([][]float64, len(s.Percentages)),
	}
	for i := range s.Counts {
		out.Counts[i] = append([]int(nil), s.Counts[i]...)
		out.Percentages[i] = append([]float64(nil), s.Percentages[i]...)
	}
	return out
}

func (s *Summary) selectColumns(keep func(int) bool) *Summary {
	var idx []int
	for j := range s.Labels {
		if keep(j) {
			idx = append(idx, j)
		}
	}
	return s.reorder(idx)
}

// reorder builds a summary from the given columns
func (s *Summary) reorder(idx []int) *Summary {
	out := &Summary{
		Positions:   s.Positions,
		Coverage:    s.Coverage,
		Labels:      make([]string, len(idx)),
		Counts:      make([][]int, len(s.Positions)),
		Percentages: make([][]float64, len(s.Positions)),
	}
	for k, j := range idx {
		out.Labels[k] = s.Labels[j]
	}
	for i := range s.Positions {
		out.Counts[i] = make([]int, len(idx))
		out.Percentages[i] = make([]float64, len(idx))
		for k, j := range idx {
			out.Counts[i][k] = s.Counts[i][j]
			out.Percentages[i][k] = s.Percentages[i][j]
		}
	}
	return out
}

// Annotation renders a bar label such as "33.3%\n(1/3)", empty for zero
func (s *Summary) Annotation(i, j int) string {
	pct := s.Percentages[i][j]
	if pct == 0 {
		return ""
	}
	p := strings.TrimRight(strings.TrimRight(strconv.FormatFloat(pct, 'f', 1, 64), "0"), ".")
	return fmt.Sprintf("%s%%\n(%d/%d)", p, s.Counts[i][j], s.Coverage[i])
}

// CountTable renders counts with a trailing Total (coverage) column
func (s *Summary) CountTable(name string) *core.Table {
	t := core.NewTable(name, append(append([]string{"Position"}, s.Labels...), "Total")...)
	for i, pos := range s.Positions {
		row := []any{pos}
		for _, c := range s.Counts[i] {
			row = append(row, c)
		}
		t.Rows = append(t.Rows, append(row, s.Coverage[i]))
	}
	return t
}

// PercentageTable renders percentages rounded to 2 decimals
func (s *Summary) PercentageTable(name string) *core.Table {
	t := core.NewTable(name, append([]string{"Position"}, s.Labels...)...)
	for i, pos := range s.Positions {
		row := []any{pos}
		for _, p := range s.Percentages[i] {
			row = append(row, core.RoundFloat(p, 2))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Result is the summary of one condition
type Result struct {
	Title   string
	Summary *Summary
}

// Options describes what to count
type Options struct {
	Labels    []Label
	Positions []int
	Combine   []CombineRule
	Order     []string
}

// Quantify reads the validated peptides of every condition, counts their
// modifications and applies the combine rules
func Quantify(conditions []Condition, opts Options, logger *zap.Logger) ([]Result, error) {
	results := make([]Result, 0, len(conditions))
	for _, c := range conditions {
		path := c.File
		if filepath.Ext(path) == "" {
			path += ".xlsx"
		}
		sheetName := c.Sheet
		if sheetName == "" {
			sheetName = DefaultSheet
		}

		list, err := sheet.ReadPeptideList(path, sheetName, true)
		if err != nil {
			return nil, fmt.Errorf("condition %s: %w", c.Title, err)
		}
		logger.Info("read peptide list",
			zap.String("condition", c.Title), zap.String("file", path), zap.Int("validated", len(list.Peptides)))

		summary := FindModifications(list.Peptides, opts.Positions, opts.Labels, logger)
		if len(opts.Combine) > 0 || len(opts.Order) > 0 {
			if summary, err = summary.Combine(opts.Combine, opts.Order); err != nil {
				return nil, fmt.Errorf("condition %s: %w", c.Title, err)
			}
		}

		results = append(results, Result{Title: c.Title, Summary: summary})
	}
	return results, nil
}

// Panels converts condition results to bar chart panels of percentages
func Panels(results []Result) []chart.Panel {
	panels := make([]chart.Panel, len(results))
	for k, r := range results {
		s := r.Summary
		panel := chart.Panel{Title: r.Title}
		for _, pos := range s.Positions {
			panel.Categories = append(panel.Categories, strconv.Itoa(pos))
		}
		for j, label := range s.Labels {
			series := chart.Series{
				Name:        label,
				Values:      make([]float64, len(s.Positions)),
				Annotations: make([]string, len(s.Positions)),
			}
			for i := range s.Positions {
				series.Values[i] = s.Percentages[i][j]
				series.Annotations[i] = s.Annotation(i, j)
			}
			panel.Series = append(panel.Series, series)
		}
		panels[k] = panel
	}
	return panels
}
