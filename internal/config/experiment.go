package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/quant"
)

// Experiment describes a modification survey across conditions
type Experiment struct {
	Modifications []quant.Label       `yaml:"modifications"`
	Positions     []int               `yaml:"positions"`
	Combine       []quant.CombineRule `yaml:"combine"`
	Order         []string            `yaml:"order"`
	Labels        []string            `yaml:"labels"`
	Conditions    []quant.Condition   `yaml:"conditions"`
	MaxY          float64             `yaml:"max_y"`
}

// LoadExperiment strictly decodes an experiment file. Relative condition
// files are resolved against the directory of the experiment file.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment: %w", err)
	}

	exp, err := ParseExperiment(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, c := range exp.Conditions {
		if !filepath.IsAbs(c.File) {
			exp.Conditions[i].File = filepath.Join(dir, c.File)
		}
	}
	return exp, nil
}

// ParseExperiment decodes and validates an experiment document
func ParseExperiment(data []byte) (*Experiment, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var exp Experiment
	if err := dec.Decode(&exp); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}
	if exp.MaxY == 0 {
		exp.MaxY = 100
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Validate checks that the experiment can be quantified
func (e *Experiment) Validate() error {
	if len(e.Modifications) == 0 {
		return fmt.Errorf("experiment has no modifications")
	}
	if len(e.Positions) == 0 {
		return fmt.Errorf("experiment has no positions")
	}
	if len(e.Conditions) == 0 {
		return fmt.Errorf("experiment has no conditions")
	}

	masses := make(map[core.MassKey]string)
	for _, m := range e.Modifications {
		if m.Name == "" {
			return fmt.Errorf("modification %.3f has no name", m.Mass)
		}
		k := core.KeyOf(m.Mass)
		if prev, ok := masses[k]; ok && prev != m.Name {
			return fmt.Errorf("mass %.3f is named both %s and %s", m.Mass, prev, m.Name)
		}
		masses[k] = m.Name
	}
	for i, c := range e.Conditions {
		if c.File == "" {
			return fmt.Errorf("condition %d has no file", i+1)
		}
	}
	if e.MaxY < 0 {
		return fmt.Errorf("max_y must be positive, got %g", e.MaxY)
	}
	return nil
}

// QuantOptions returns the counting options of the experiment
func (e *Experiment) QuantOptions() quant.Options {
	return quant.Options{
		Labels:    e.Modifications,
		Positions: e.Positions,
		Combine:   e.Combine,
		Order:     e.Order,
	}
}
