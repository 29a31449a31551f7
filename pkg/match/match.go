// Package match pairs peptide identifications across isotope labels and
// experimental conditions
package match

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/crtlab/n145/pkg/core"
)

// joinKey identifies a peptide species measured in both labels
type joinKey struct {
	sequence      string
	modifications string
	charge        int
}

// dedupeKey identifies a peptide independent of charge
type dedupeKey struct {
	sequence      string
	modifications string
}

// pair is a 14N peptide with the first 15N peptide of the same species
type pair struct {
	n14, n15 *core.PeptideID
}

// join returns the 14N peptides found in the 15N list, in 14N order, keeping
// the first pair of every (Sequence, Modifications)
func join(n14, n15 []core.PeptideID) []pair {
	index := make(map[joinKey]int, len(n15))
	for i := range n15 {
		k := joinKey{n15[i].Sequence, n15[i].Modifications, n15[i].Charge}
		if _, ok := index[k]; !ok {
			index[k] = i
		}
	}

	seen := make(map[dedupeKey]bool)
	var pairs []pair
	for i := range n14 {
		p := &n14[i]
		j, ok := index[joinKey{p.Sequence, p.Modifications, p.Charge}]
		if !ok {
			continue
		}
		d := dedupeKey{p.Sequence, p.Modifications}
		if seen[d] {
			continue
		}
		seen[d] = true
		pairs = append(pairs, pair{n14: p, n15: &n15[j]})
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].n14.Start < pairs[b].n14.Start
	})
	return pairs
}

// FindHits joins the 14N and 15N lists on (Sequence, Modifications, Charge).
// Hits are unique by (Sequence, Modifications) and sorted by Start.
func FindHits(n14, n15 []core.PeptideID) []core.Hit {
	pairs := join(n14, n15)

	hits := make([]core.Hit, len(pairs))
	for i, p := range pairs {
		hits[i] = core.Hit{
			Sequence:      p.n14.Sequence,
			Modifications: p.n14.Modifications,
			Start:         p.n14.Start,
			End:           p.n14.End,
			Charge:        p.n14.Charge,
			N14MZ:         p.n14.MZ,
			N15MZ:         p.n15.MZ,
			N14MassExp:    p.n14.MassExp,
			N15MassExp:    p.n15.MassExp,
		}
	}
	return hits
}

// FindHitsRaw joins like FindHits but returns the untouched 14N rows with
// all columns of the 14N sheet
func FindHitsRaw(name string, n14, n15 *core.PeptideList) *core.Table {
	t := core.NewTable(name, n14.Columns...)
	for _, p := range join(n14.Peptides, n15.Peptides) {
		row := make([]any, len(t.Columns))
		for i := range row {
			if i < len(p.n14.Raw) {
				row[i] = CellValue(p.n14.Raw[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CellValue converts a raw spreadsheet cell back to a number where possible
func CellValue(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// conditionKey identifies a hit across conditions
type conditionKey struct {
	sequence      string
	modifications string
	start         int
}

// MatchConditions returns the hits of the first list that are present in
// every other list by (Sequence, Modifications, Start). Values come from the
// first list; output is unique by (Sequence, Modifications) and sorted by Start.
func MatchConditions(lists ...[]core.Hit) ([]core.Hit, error) {
	if len(lists) < 2 {
		return nil, fmt.Errorf("need at least two hit lists, got %d", len(lists))
	}

	others := make([]map[conditionKey]bool, len(lists)-1)
	for i, list := range lists[1:] {
		others[i] = make(map[conditionKey]bool, len(list))
		for _, h := range list {
			others[i][conditionKey{h.Sequence, h.Modifications, h.Start}] = true
		}
	}

	seen := make(map[dedupeKey]bool)
	var out []core.Hit
	for _, h := range lists[0] {
		k := conditionKey{h.Sequence, h.Modifications, h.Start}
		if !inAll(others, k) {
			continue
		}
		d := dedupeKey{h.Sequence, h.Modifications}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, h)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Start < out[b].Start
	})
	return out, nil
}

func inAll(sets []map[conditionKey]bool, k conditionKey) bool {
	for _, s := range sets {
		if !s[k] {
			return false
		}
	}
	return true
}
