package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const experimentYAML = `
modifications:
  - {mass: 57.021, name: IAA}
  - {mass: 47.985, name: Trioxidation}
positions: [105, 137, 163]
combine:
  - name: Oxidised
    columns: [Trioxidation]
order: [IAA, Oxidised]
labels: [Reduced, Oxidised]
conditions:
  - {file: Mix_37, title: "37 °C"}
  - {file: /data/Mix_42.xlsx, title: "42 °C", sheet: List}
`

func TestLoadExperiment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(experimentYAML), 0o644))

	exp, err := LoadExperiment(path)
	require.NoError(t, err)

	require.Len(t, exp.Modifications, 2)
	assert.Equal(t, "IAA", exp.Modifications[0].Name)
	assert.Equal(t, []int{105, 137, 163}, exp.Positions)
	assert.Equal(t, []string{"Trioxidation"}, exp.Combine[0].Columns)
	assert.Equal(t, []string{"Reduced", "Oxidised"}, exp.Labels)
	assert.Equal(t, 100.0, exp.MaxY)

	require.Len(t, exp.Conditions, 2)
	assert.Equal(t, filepath.Join(dir, "Mix_37"), exp.Conditions[0].File)
	assert.Equal(t, "/data/Mix_42.xlsx", exp.Conditions[1].File)
	assert.Equal(t, "List", exp.Conditions[1].Sheet)

	opts := exp.QuantOptions()
	assert.Equal(t, exp.Positions, opts.Positions)
	assert.Equal(t, exp.Order, opts.Order)
}

func TestParseExperimentErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "modifications: [{mass: 1, name: a}]\npositions: [1]\nconditions: [{file: x}]\ncolour: red\n"},
		{"no modifications", "positions: [1]\nconditions: [{file: x}]\n"},
		{"no positions", "modifications: [{mass: 1, name: a}]\nconditions: [{file: x}]\n"},
		{"no conditions", "modifications: [{mass: 1, name: a}]\npositions: [1]\n"},
		{"condition without file", "modifications: [{mass: 1, name: a}]\npositions: [1]\nconditions: [{title: x}]\n"},
		{"conflicting names", "modifications: [{mass: 1.0001, name: a}, {mass: 1.0, name: b}]\npositions: [1]\nconditions: [{file: x}]\n"},
		{"unnamed modification", "modifications: [{mass: 1}]\npositions: [1]\nconditions: [{file: x}]\n"},
		{"regions belong to n145.yaml", "modifications: [{mass: 1, name: a}]\npositions: [1]\nconditions: [{file: x}]\nregions: [{name: N}]\n"},
		{"not yaml", "modifications: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExperiment([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestExperimentMaxY(t *testing.T) {
	exp, err := ParseExperiment([]byte("modifications: [{mass: 1, name: a}]\npositions: [1]\nconditions: [{file: x}]\nmax_y: 60\n"))
	require.NoError(t, err)
	assert.Equal(t, 60.0, exp.MaxY)

	_, err = ParseExperiment([]byte("modifications: [{mass: 1, name: a}]\npositions: [1]\nconditions: [{file: x}]\nmax_y: -1\n"))
	assert.Error(t, err)
}

func TestExampleExperiments(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "examples", "*_1?N.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			exp, err := LoadExperiment(path)
			require.NoError(t, err)
			assert.Len(t, exp.Conditions, 5)

			if len(exp.Order) > 0 {
				assert.Len(t, exp.Labels, len(exp.Order))
			}
		})
	}
}

func TestExampleSettings(t *testing.T) {
	c, err := Load(viper.New(), filepath.Join("..", "..", "examples", "n145.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.01, c.Tolerance)
	assert.Equal(t, "P", c.RegionMap().Region(250, 260))
}
