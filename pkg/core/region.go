package core

import (
	"fmt"
	"sort"
)

// RegionBound names the positions below End. The last bound of a map is
// used for every position past the others, its End is ignored.
type RegionBound struct {
	Name string `yaml:"name" mapstructure:"name"`
	End  int    `yaml:"end" mapstructure:"end"`
}

// RegionMap assigns protein positions to named domains
type RegionMap struct {
	bounds []RegionBound
}

// NewRegionMap validates and sorts region bounds
func NewRegionMap(bounds []RegionBound) (*RegionMap, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("region map needs at least one region")
	}

	sorted := make([]RegionBound, len(bounds))
	copy(sorted, bounds)
	for i, b := range sorted {
		if b.Name == "" {
			return nil, fmt.Errorf("region %d has no name", i)
		}
	}

	head := sorted[:len(sorted)-1]
	sort.SliceStable(head, func(i, j int) bool { return head[i].End < head[j].End })
	for i := 1; i < len(head); i++ {
		if head[i].End == head[i-1].End {
			return nil, fmt.Errorf("regions %s and %s share end %d", head[i-1].Name, head[i].Name, head[i].End)
		}
	}

	return &RegionMap{bounds: sorted}, nil
}

// DefaultRegionMap is the domain layout of calreticulin (CRT)
func DefaultRegionMap() *RegionMap {
	rm, _ := NewRegionMap([]RegionBound{
		{Name: "Signal", End: 17},
		{Name: "Core", End: 204},
		{Name: "P", End: 305},
		{Name: "Core", End: 336},
		{Name: "C"},
	})
	return rm
}

// At returns the region of a single position
func (m *RegionMap) At(pos int) string {
	for _, b := range m.bounds[:len(m.bounds)-1] {
		if pos < b.End {
			return b.Name
		}
	}
	return m.bounds[len(m.bounds)-1].Name
}

// Region returns the region of a peptide, or "start;end" regions when it
// crosses a boundary
func (m *RegionMap) Region(start, end int) string {
	s, e := m.At(start), m.At(end)
	if s == e {
		return s
	}
	return s + ";" + e
}
