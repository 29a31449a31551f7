package core

import "fmt"

// PeptideID is one row of a search engine peptide list
type PeptideID struct {
	Sequence      string
	Modifications string // "pos@mass pos@mass" or "-"
	Charge        int
	Start         int
	End           int
	MZ            float64
	MassExp       float64 // MH+ experimental
	MassThr       float64 // MH+ theoretical
	Delta         float64
	Validated     bool

	// Raw cell values aligned with PeptideList.Columns
	Raw []string
}

// PeptideList is a peptide identification sheet for one sample
type PeptideList struct {
	Name     string
	Columns  []string
	Peptides []PeptideID
}

// Hit is a peptide identified in both the 14N and the 15N sample
type Hit struct {
	Sequence      string
	Modifications string
	Start         int
	End           int
	Charge        int
	N14MZ         float64
	N15MZ         float64
	N14MassExp    float64
	N15MassExp    float64
}

// Key identifies a hit independent of charge
func (h *Hit) Key() string {
	return fmt.Sprintf("%s|%s", h.Sequence, h.Modifications)
}

// Mods parses the hit modification list
func (h *Hit) Mods() ([]Modification, error) {
	return ParseModList(h.Modifications)
}

// HitColumns is the column layout of hit lists
var HitColumns = []string{
	"Sequence", "Modifications", "Start", "End", "Charge",
	"14N m/z", "15N m/z", "14N Mass (Exp)", "15N Mass (Exp)",
}

// HitTable renders hits in the HitColumns layout
func HitTable(name string, hits []Hit) *Table {
	t := NewTable(name, HitColumns...)
	for _, h := range hits {
		t.Rows = append(t.Rows, []any{
			h.Sequence, h.Modifications, h.Start, h.End, h.Charge,
			h.N14MZ, h.N15MZ, h.N14MassExp, h.N15MassExp,
		})
	}
	return t
}
