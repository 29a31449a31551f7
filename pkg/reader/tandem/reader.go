// Package tandem reads X!Tandem bioml result files and applies
// target-decoy FDR filtering to the peptide-spectrum matches.
package tandem

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/reader/mzxml"
)

// DefaultDecoyPrefix marks decoy protein labels
const DefaultDecoyPrefix = "DECOY_"

// PSM is one X!Tandem model group: a spectrum and the proteins it matched
type PSM struct {
	ID       string
	Charge   int
	RT       float64 // seconds
	Expect   float64
	MH       float64
	Proteins []ProteinMatch
}

// ProteinMatch is the peptide domain a PSM matched in one protein
type ProteinMatch struct {
	Label    string
	Sequence string
	Start    int
	End      int
	Expect   float64
	Mods     []core.Modification
}

type xmlGroup struct {
	ID       string       `xml:"id,attr"`
	Type     string       `xml:"type,attr"`
	Z        int          `xml:"z,attr"`
	RT       string       `xml:"rt,attr"`
	Expect   float64      `xml:"expect,attr"`
	MH       float64      `xml:"mh,attr"`
	Proteins []xmlProtein `xml:"protein"`
}

type xmlProtein struct {
	Label    string       `xml:"label,attr"`
	Peptides []xmlPeptide `xml:"peptide"`
}

type xmlPeptide struct {
	Domains []xmlDomain `xml:"domain"`
}

type xmlDomain struct {
	Start  int     `xml:"start,attr"`
	End    int     `xml:"end,attr"`
	Expect float64 `xml:"expect,attr"`
	Seq    string  `xml:"seq,attr"`
	AA     []xmlAA `xml:"aa"`
}

type xmlAA struct {
	Type     string  `xml:"type,attr"`
	At       int     `xml:"at,attr"`
	Modified float64 `xml:"modified,attr"`
}

// Read parses every model group of an X!Tandem result file
func Read(r io.Reader) ([]PSM, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	var psms []PSM
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "group" {
			continue
		}
		if attr(start, "type") != "model" {
			if err := d.Skip(); err != nil {
				return nil, err
			}
			continue
		}

		var g xmlGroup
		if err := d.DecodeElement(&g, &start); err != nil {
			return nil, fmt.Errorf("failed to decode group: %w", err)
		}
		psm, err := convertGroup(&g)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.ID, err)
		}
		psms = append(psms, psm)
	}

	return psms, nil
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func convertGroup(g *xmlGroup) (PSM, error) {
	psm := PSM{
		ID:     g.ID,
		Charge: g.Z,
		Expect: g.Expect,
		MH:     g.MH,
	}

	if g.RT != "" {
		rt, err := strconv.ParseFloat(g.RT, 64)
		if err != nil {
			rt, err = mzxml.ParseDuration(g.RT)
			if err != nil {
				return psm, fmt.Errorf("invalid rt '%s': %w", g.RT, err)
			}
		}
		psm.RT = rt
	}

	for _, p := range g.Proteins {
		for _, pep := range p.Peptides {
			for _, dom := range pep.Domains {
				match := ProteinMatch{
					Label:    p.Label,
					Sequence: dom.Seq,
					Start:    dom.Start,
					End:      dom.End,
					Expect:   dom.Expect,
				}
				for _, aa := range dom.AA {
					match.Mods = append(match.Mods, core.Modification{
						Position: aa.At,
						Mass:     aa.Modified,
						Residue:  aa.Type,
					})
				}
				psm.Proteins = append(psm.Proteins, match)
			}
		}
	}

	return psm, nil
}

// IsDecoy reports whether every protein the PSM matched carries the prefix
func (p *PSM) IsDecoy(prefix string) bool {
	if len(p.Proteins) == 0 {
		return false
	}
	for _, prot := range p.Proteins {
		if !strings.HasPrefix(prot.Label, prefix) {
			return false
		}
	}
	return true
}

// FilterFDR keeps target PSMs whose q-value is at most fdr. PSMs are ranked
// by expect value; the FDR at a threshold is decoys / targets.
// The result is sorted by expect value.
func FilterFDR(psms []PSM, fdr float64, decoyPrefix string) []PSM {
	if decoyPrefix == "" {
		decoyPrefix = DefaultDecoyPrefix
	}

	sorted := make([]PSM, len(psms))
	copy(sorted, psms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Expect < sorted[j].Expect
	})

	decoy := make([]bool, len(sorted))
	q := make([]float64, len(sorted))

	targets, decoys := 0, 0
	for i := 0; i < len(sorted); {
		// Equal scores share one threshold
		j := i
		for j < len(sorted) && sorted[j].Expect == sorted[i].Expect {
			decoy[j] = sorted[j].IsDecoy(decoyPrefix)
			if decoy[j] {
				decoys++
			} else {
				targets++
			}
			j++
		}
		rate := float64(decoys) / float64(max(targets, 1))
		for k := i; k < j; k++ {
			q[k] = rate
		}
		i = j
	}

	for i := len(q) - 2; i >= 0; i-- {
		q[i] = min(q[i], q[i+1])
	}

	var kept []PSM
	for i, psm := range sorted {
		if !decoy[i] && q[i] <= fdr {
			kept = append(kept, psm)
		}
	}
	return kept
}
