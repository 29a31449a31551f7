package sheet

import (
	"fmt"

	"github.com/crtlab/n145/pkg/core"
)

// Column names of search engine peptide lists
const (
	ColValid   = "V"
	ColCharge  = "z"
	ColMassExp = "MH+ exp"
	ColMassThr = "MH+ theo"
	ColDelta   = "delta"
	ColFrom    = "from"
	ColTo      = "to"
	ColSeq     = "seq"
	ColMZ      = "m/z"
	ColMods    = "modifs"
)

// ReadPeptideList reads a peptide list sheet. With validatedOnly only rows
// marked V == "Y" are parsed and returned, so other rows may be incomplete.
func ReadPeptideList(path, sheet string, validatedOnly bool) (*core.PeptideList, error) {
	r, err := Open(path, sheet)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	required := []string{ColSeq, ColMods, ColFrom, ColTo}
	if validatedOnly {
		required = append(required, ColValid)
	}
	if err := r.Require(required...); err != nil {
		return nil, err
	}

	list := &core.PeptideList{Name: r.Sheet(), Columns: r.Header()}
	for r.Next() {
		row := r.Row()
		if validatedOnly && row.String(ColValid) != "Y" {
			continue
		}
		p, err := parsePeptide(r, row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		list.Peptides = append(list.Peptides, p)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return list, nil
}

func parsePeptide(r *Reader, row Row) (core.PeptideID, error) {
	p := core.PeptideID{
		Sequence:      row.String(ColSeq),
		Modifications: normalizeMods(row.String(ColMods)),
		Validated:     row.String(ColValid) == "Y",
		Raw:           row.Values(len(r.Header())),
	}

	var err error
	if p.Start, err = row.Int(ColFrom); err != nil {
		return p, err
	}
	if p.End, err = row.Int(ColTo); err != nil {
		return p, err
	}
	if r.Has(ColCharge) {
		if p.Charge, err = row.Int(ColCharge); err != nil {
			return p, err
		}
	}
	if p.MZ, err = row.OptionalFloat(ColMZ); err != nil {
		return p, err
	}
	if p.MassExp, err = row.OptionalFloat(ColMassExp); err != nil {
		return p, err
	}
	if p.MassThr, err = row.OptionalFloat(ColMassThr); err != nil {
		return p, err
	}
	if p.Delta, err = row.OptionalFloat(ColDelta); err != nil {
		return p, err
	}

	return p, nil
}

func normalizeMods(s string) string {
	if s == "" {
		return core.NoModification
	}
	return s
}

// ReadHitList reads a hit list written by the hits or match commands
func ReadHitList(path, sheet string) ([]core.Hit, error) {
	r, err := Open(path, sheet)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.Require("Sequence", "Modifications", "Start", "Charge", "14N m/z", "15N m/z"); err != nil {
		return nil, err
	}

	var hits []core.Hit
	for r.Next() {
		row := r.Row()
		h, err := parseHit(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		hits = append(hits, h)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return hits, nil
}

func parseHit(row Row) (core.Hit, error) {
	h := core.Hit{
		Sequence:      row.String("Sequence"),
		Modifications: normalizeMods(row.String("Modifications")),
	}

	var err error
	if h.Start, err = row.Int("Start"); err != nil {
		return h, err
	}
	if row.String("End") != "" {
		if h.End, err = row.Int("End"); err != nil {
			return h, err
		}
	}
	if h.Charge, err = row.Int("Charge"); err != nil {
		return h, err
	}
	if h.N14MZ, err = row.Float("14N m/z"); err != nil {
		return h, err
	}
	if h.N15MZ, err = row.Float("15N m/z"); err != nil {
		return h, err
	}
	if h.N14MassExp, err = row.OptionalFloat("14N Mass (Exp)"); err != nil {
		return h, err
	}
	if h.N15MassExp, err = row.OptionalFloat("15N Mass (Exp)"); err != nil {
		return h, err
	}

	return h, nil
}
