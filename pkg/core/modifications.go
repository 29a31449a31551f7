// Package core provides modification parsing and management
package core

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// NoModification is the placeholder search engines write for unmodified peptides
const NoModification = "-"

// MassKey is the key modification masses are compared by (milli-dalton)
type MassKey int64

// KeyOf rounds a mass to 3 decimals for comparison
func KeyOf(mass float64) MassKey {
	return MassKey(math.Round(mass * 1000))
}

// Float returns the rounded mass
func (k MassKey) Float() float64 {
	return float64(k) / 1000
}

type labelKey struct {
	residue string
	mass    MassKey
}

// ModDatabase stores modified residue definitions
type ModDatabase struct {
	residues map[string]Composition // token (label + residue) -> composition
	labels   map[labelKey]string    // (residue, mass) -> label
}

// modRecord is one row of the modification CSV
type modRecord struct {
	Prefix      string  `csv:"Prefix"`
	Residue     string  `csv:"Residue"`
	Composition string  `csv:"Composition"`
	Mass        float64 `csv:"Mass"`
}

// NewModDatabase creates a database containing only the standard amino acids
func NewModDatabase() *ModDatabase {
	db := &ModDatabase{
		residues: make(map[string]Composition, len(AminoAcidComposition)),
		labels:   make(map[labelKey]string),
	}
	for aa, comp := range AminoAcidComposition {
		db.residues[aa] = comp
	}
	return db
}

// LoadFromCSV loads modifications from a CSV file (header: Prefix,Residue,Composition,Mass)
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	var records []*modRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	for i, rec := range records {
		delta, err := ParseFormula(rec.Composition)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+2, err)
		}
		if err := db.Add(strings.TrimSpace(rec.Prefix), strings.TrimSpace(rec.Residue), delta, rec.Mass); err != nil {
			return fmt.Errorf("line %d: %w", i+2, err)
		}
	}

	return nil
}

// Add registers a modified residue "prefix+residue" whose composition is the
// residue plus delta, labelled for the given mass shift.
func (db *ModDatabase) Add(prefix, residue string, delta Composition, mass float64) error {
	base, ok := db.residues[residue]
	if !ok || len(residue) != 1 {
		return fmt.Errorf("%w: %q", ErrUnknownResidue, residue)
	}
	if prefix == "" || strings.ToLower(prefix) != prefix {
		return fmt.Errorf("modification prefix %q must be lowercase", prefix)
	}

	db.residues[prefix+residue] = base.Add(delta)
	db.labels[labelKey{residue: residue, mass: KeyOf(mass)}] = prefix
	return nil
}

// Residue returns the composition of a residue token
func (db *ModDatabase) Residue(token string) (Composition, bool) {
	comp, ok := db.residues[token]
	return comp, ok
}

// Label returns the prefix registered for a residue and mass shift
func (db *ModDatabase) Label(residue string, mass float64) (string, bool) {
	label, ok := db.labels[labelKey{residue: residue, mass: KeyOf(mass)}]
	return label, ok
}

// Len returns the number of labelled modifications
func (db *ModDatabase) Len() int {
	return len(db.labels)
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Errors are impossible for the built-in residues
	_ = db.Add("cam", "C", Composition{"C": 2, "H": 3, "N": 1, "O": 1}, 57.021)
	_ = db.Add("ox", "M", Composition{"O": 1}, 15.995)

	return db
}

// Modification is a mass shift at an absolute protein position
type Modification struct {
	Position int     // 1-based position in the protein
	Mass     float64 // mass shift in Da
	Residue  string  // modified residue, empty when not reported
}

// ParseModList parses modification lists such as "105@15.995 137@47.985"
// or "C105@57.02147, M120@15.99491". "-" and "" mean no modification.
func ParseModList(s string) ([]Modification, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NoModification {
		return nil, nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '\t'
	})

	mods := make([]Modification, 0, len(fields))
	for _, field := range fields {
		atParts := strings.Split(field, "@")
		if len(atParts) != 2 {
			return nil, fmt.Errorf("invalid modification format '%s', expected 'position@mass'", field)
		}

		posStr := atParts[0]
		residue := strings.TrimRight(posStr, "-0123456789")
		posStr = strings.TrimPrefix(posStr, residue)

		pos, err := strconv.Atoi(posStr)
		if err != nil {
			return nil, fmt.Errorf("invalid position in '%s': %w", field, err)
		}
		mass, err := strconv.ParseFloat(atParts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mass in '%s': %w", field, err)
		}

		mods = append(mods, Modification{Position: pos, Mass: mass, Residue: residue})
	}

	return mods, nil
}

// FormatModList renders modifications as "C105@57.02147, M120@15.99491"
func FormatModList(mods []Modification) string {
	if len(mods) == 0 {
		return ""
	}
	parts := make([]string, len(mods))
	for i, mod := range mods {
		parts[i] = fmt.Sprintf("%s%d@%s", mod.Residue, mod.Position, formatMass(mod.Mass))
	}
	return strings.Join(parts, ", ")
}

func formatMass(m float64) string {
	s := strconv.FormatFloat(m, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ModifiedSequence writes the label of every known modification in front of
// its residue, e.g. "PEPoxMIDE". Modifications without a label are returned
// so the caller can report them. Ambiguous I/L (J) is resolved to I.
func (db *ModDatabase) ModifiedSequence(sequence string, start int, mods []Modification) (string, []Modification, error) {
	residues := strings.Split(sequence, "")
	var unsupported []Modification

	for _, mod := range mods {
		idx := mod.Position - start
		if idx < 0 || idx >= len(residues) {
			return "", nil, fmt.Errorf("modification at %d outside peptide %s starting at %d", mod.Position, sequence, start)
		}

		residue := mod.Residue
		if residue == "" {
			residue = sequence[idx : idx+1]
		}

		label, ok := db.Label(residue, mod.Mass)
		if !ok {
			unsupported = append(unsupported, mod)
			continue
		}
		residues[idx] = label + residues[idx]
	}

	return strings.ReplaceAll(strings.Join(residues, ""), "J", "I"), unsupported, nil
}

// AnnotatedSequence inserts "(mass)" after each modified residue,
// e.g. "PEPC(47.985)TIDE". Used as a readable key for hits.
func AnnotatedSequence(sequence string, start int, mods []Modification) (string, error) {
	sorted := make([]Modification, len(mods))
	copy(sorted, mods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})

	out := sequence
	for _, mod := range sorted {
		idx := mod.Position - start
		if idx < 0 || idx >= len(sequence) {
			return "", fmt.Errorf("modification at %d outside peptide %s starting at %d", mod.Position, sequence, start)
		}
		out = out[:idx+1] + "(" + formatMass(mod.Mass) + ")" + out[idx+1:]
	}
	return out, nil
}
