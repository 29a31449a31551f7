// Package core provides chemistry calculations for 14N/15N peptide masses
package core

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.00782503207
	MassC  = 12.0000000000
	MassN  = 14.0030740048
	MassO  = 15.99491461956
	MassS  = 31.972071
	MassP  = 30.97376163
	MassSe = 79.9165213
	MassNa = 22.9897692809

	// Heavy nitrogen used for metabolic labeling
	MassN15 = 15.0001088982

	// Proton mass for charge calculations
	ProtonMass = 1.00727646677
)

var (
	ErrUnknownElement = errors.New("unknown element")
	ErrUnknownResidue = errors.New("unknown residue")
	ErrBelowMinMZ     = errors.New("m/z below minimum")
)

var elementMasses = map[string]float64{
	"H":  MassH,
	"C":  MassC,
	"N":  MassN,
	"O":  MassO,
	"S":  MassS,
	"P":  MassP,
	"Se": MassSe,
	"Na": MassNa,
}

// Composition stores elemental composition as element symbol -> atom count
type Composition map[string]int

// Add returns the sum of two compositions
func (c Composition) Add(o Composition) Composition {
	out := make(Composition, len(c)+len(o))
	for el, n := range c {
		out[el] += n
	}
	for el, n := range o {
		out[el] += n
	}
	return out
}

// Sub returns c minus o
func (c Composition) Sub(o Composition) Composition {
	neg := make(Composition, len(o))
	for el, n := range o {
		neg[el] = -n
	}
	return c.Add(neg)
}

// Mass returns the monoisotopic neutral mass. With heavyN every nitrogen is 15N.
func (c Composition) Mass(heavyN bool) (float64, error) {
	mass := 0.0
	for el, n := range c {
		m, ok := elementMasses[el]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownElement, el)
		}
		if el == "N" && heavyN {
			m = MassN15
		}
		mass += float64(n) * m
	}
	return mass, nil
}

// String renders the composition as a Hill-ordered formula
func (c Composition) String() string {
	els := make([]string, 0, len(c))
	for el, n := range c {
		if n != 0 {
			els = append(els, el)
		}
	}
	sort.Slice(els, func(i, j int) bool {
		return hillRank(els[i]) < hillRank(els[j]) ||
			(hillRank(els[i]) == hillRank(els[j]) && els[i] < els[j])
	})

	var b strings.Builder
	for _, el := range els {
		b.WriteString(el)
		if n := c[el]; n != 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

func hillRank(el string) int {
	switch el {
	case "C":
		return 0
	case "H":
		return 1
	}
	return 2
}

var formulaToken = regexp.MustCompile(`([A-Z][a-z]?)(-?\d*)`)

// ParseFormula parses formulas like "C2H3NO", "O2" or "H-2S-1"
func ParseFormula(formula string) (Composition, error) {
	formula = strings.TrimSpace(formula)
	comp := make(Composition)
	if formula == "" {
		return comp, nil
	}

	consumed := 0
	for _, m := range formulaToken.FindAllStringSubmatchIndex(formula, -1) {
		if m[0] != consumed {
			return nil, fmt.Errorf("invalid formula %q at offset %d", formula, consumed)
		}
		consumed = m[1]

		el := formula[m[2]:m[3]]
		if _, ok := elementMasses[el]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, el)
		}

		n := 1
		if countStr := formula[m[4]:m[5]]; countStr != "" {
			var err error
			n, err = strconv.Atoi(countStr)
			if err != nil {
				return nil, fmt.Errorf("invalid count in formula %q: %w", formula, err)
			}
		}
		comp[el] += n
	}
	if consumed != len(formula) {
		return nil, fmt.Errorf("invalid formula %q at offset %d", formula, consumed)
	}

	return comp, nil
}

// AminoAcidComposition maps amino acid one-letter codes to residue composition
var AminoAcidComposition = map[string]Composition{
	"A": {"C": 3, "H": 5, "N": 1, "O": 1},
	"R": {"C": 6, "H": 12, "N": 4, "O": 1},
	"N": {"C": 4, "H": 6, "N": 2, "O": 2},
	"D": {"C": 4, "H": 5, "N": 1, "O": 3},
	"C": {"C": 3, "H": 5, "N": 1, "O": 1, "S": 1},
	"E": {"C": 5, "H": 7, "N": 1, "O": 3},
	"Q": {"C": 5, "H": 8, "N": 2, "O": 2},
	"G": {"C": 2, "H": 3, "N": 1, "O": 1},
	"H": {"C": 6, "H": 7, "N": 3, "O": 1},
	"I": {"C": 6, "H": 11, "N": 1, "O": 1},
	"L": {"C": 6, "H": 11, "N": 1, "O": 1},
	"K": {"C": 6, "H": 12, "N": 2, "O": 1},
	"M": {"C": 5, "H": 9, "N": 1, "O": 1, "S": 1},
	"F": {"C": 9, "H": 9, "N": 1, "O": 1},
	"P": {"C": 5, "H": 7, "N": 1, "O": 1},
	"S": {"C": 3, "H": 5, "N": 1, "O": 2},
	"T": {"C": 4, "H": 7, "N": 1, "O": 2},
	"W": {"C": 11, "H": 10, "N": 2, "O": 1},
	"Y": {"C": 9, "H": 9, "N": 1, "O": 2},
	"V": {"C": 5, "H": 9, "N": 1, "O": 1},
}

var water = Composition{"H": 2, "O": 1}

// IsotopeMasses holds the light and fully 15N labeled masses of a peptide
type IsotopeMasses struct {
	N14Mass float64
	N14MZ   float64
	N15Mass float64
	N15MZ   float64
}

// PeptideComposition sums the residue tokens of a (possibly modified)
// sequence plus water. Modified residues are written as a lowercase label
// followed by the residue, e.g. "PEPoxMIDE".
func PeptideComposition(modSeq string, db *ModDatabase) (Composition, error) {
	if db == nil {
		db = DefaultModDatabase()
	}

	tokens, err := SplitResidues(modSeq)
	if err != nil {
		return nil, err
	}

	comp := Composition{}.Add(water)
	for _, tok := range tokens {
		rc, ok := db.Residue(tok)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownResidue, tok, modSeq)
		}
		comp = comp.Add(rc)
	}
	return comp, nil
}

// SplitResidues splits a modified sequence into residue tokens
func SplitResidues(modSeq string) ([]string, error) {
	var tokens []string
	start := 0
	for i, r := range modSeq {
		switch {
		case r >= 'a' && r <= 'z':
			continue
		case r >= 'A' && r <= 'Z':
			tokens = append(tokens, modSeq[start:i+1])
			start = i + 1
		default:
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownResidue, string(r), modSeq)
		}
	}
	if start != len(modSeq) {
		return nil, fmt.Errorf("%w: dangling label %q in %s", ErrUnknownResidue, modSeq[start:], modSeq)
	}
	return tokens, nil
}

// CalculateIsotopeMasses computes the 14N and 15N neutral masses and m/z values
// of a peptide at the given charge, rounded to 3 decimals. Ambiguous I/L (J)
// is treated as I. Either m/z below minMZ yields ErrBelowMinMZ.
func CalculateIsotopeMasses(modSeq string, charge int, minMZ float64, db *ModDatabase) (IsotopeMasses, error) {
	if charge <= 0 {
		return IsotopeMasses{}, fmt.Errorf("charge must be positive, got %d", charge)
	}

	comp, err := PeptideComposition(strings.ReplaceAll(modSeq, "J", "I"), db)
	if err != nil {
		return IsotopeMasses{}, err
	}

	n14, err := comp.Mass(false)
	if err != nil {
		return IsotopeMasses{}, err
	}
	n15, err := comp.Mass(true)
	if err != nil {
		return IsotopeMasses{}, err
	}

	res := IsotopeMasses{
		N14Mass: RoundFloat(n14, 3),
		N14MZ:   RoundFloat(MZ(n14, charge), 3),
		N15Mass: RoundFloat(n15, 3),
		N15MZ:   RoundFloat(MZ(n15, charge), 3),
	}
	if res.N14MZ < minMZ || res.N15MZ < minMZ {
		return res, fmt.Errorf("%w: %s/%d (%.3f, %.3f < %.1f)", ErrBelowMinMZ, modSeq, charge, res.N14MZ, res.N15MZ, minMZ)
	}
	return res, nil
}

// MZ converts a neutral mass to m/z: (mass + charge * proton) / charge
func MZ(mass float64, charge int) float64 {
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
