package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modCSV = `Prefix,Residue,Composition,Mass
ox,M,O,15.995
diox,C,O2,31.990
triox,C,O3,47.985
dha,C,H-2S-1,-33.988
`

func TestLoadFromCSV(t *testing.T) {
	db := NewModDatabase()
	require.NoError(t, db.LoadFromCSV(strings.NewReader(modCSV)))
	assert.Equal(t, 4, db.Len())

	label, ok := db.Label("C", 47.98474)
	require.True(t, ok)
	assert.Equal(t, "triox", label)

	_, ok = db.Label("M", 47.985)
	assert.False(t, ok)

	comp, ok := db.Residue("dhaC")
	require.True(t, ok)
	assert.Equal(t, Composition{"C": 3, "H": 3, "N": 1, "O": 1, "S": 0}, comp)
}

func TestLoadFromCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"unknown residue", "Prefix,Residue,Composition,Mass\nox,B,O,15.995\n"},
		{"bad formula", "Prefix,Residue,Composition,Mass\nox,M,Q,15.995\n"},
		{"uppercase prefix", "Prefix,Residue,Composition,Mass\nOx,M,O,15.995\n"},
		{"bad mass", "Prefix,Residue,Composition,Mass\nox,M,O,abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := NewModDatabase()
			assert.Error(t, db.LoadFromCSV(strings.NewReader(tt.csv)))
		})
	}
}

func TestParseModList(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []Modification
		wantErr bool
	}{
		{name: "placeholder", in: "-", want: nil},
		{name: "empty", in: "", want: nil},
		{name: "single", in: "105@15.995", want: []Modification{{Position: 105, Mass: 15.995}}},
		{
			name: "space separated",
			in:   "105@15.995 137@47.985",
			want: []Modification{{Position: 105, Mass: 15.995}, {Position: 137, Mass: 47.985}},
		},
		{
			name: "with residues",
			in:   "C105@57.02147, M120@15.99491",
			want: []Modification{{Position: 105, Mass: 57.02147, Residue: "C"}, {Position: 120, Mass: 15.99491, Residue: "M"}},
		},
		{name: "negative mass", in: "163@-33.988", want: []Modification{{Position: 163, Mass: -33.988}}},
		{name: "missing at", in: "105", wantErr: true},
		{name: "bad mass", in: "105@x", wantErr: true},
		{name: "bad position", in: "C@15.995", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModList(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatModList(t *testing.T) {
	mods := []Modification{{Position: 105, Mass: 57.02147, Residue: "C"}, {Position: 120, Mass: 16, Residue: "M"}}
	assert.Equal(t, "C105@57.02147, M120@16.0", FormatModList(mods))
	assert.Equal(t, "", FormatModList(nil))
}

func TestModifiedSequence(t *testing.T) {
	db := DefaultModDatabase()
	require.NoError(t, db.LoadFromCSV(strings.NewReader(modCSV)))

	seq, unsupported, err := db.ModifiedSequence("KJMPCR", 100, []Modification{
		{Position: 102, Mass: 15.99491, Residue: "M"},
		{Position: 104, Mass: 47.98474},
		{Position: 105, Mass: 0.984},
	})
	require.NoError(t, err)
	assert.Equal(t, "KIoxMPtrioxCR", seq)
	require.Len(t, unsupported, 1)
	assert.Equal(t, 105, unsupported[0].Position)

	_, _, err = db.ModifiedSequence("KMR", 100, []Modification{{Position: 99, Mass: 15.995}})
	assert.Error(t, err)
}

func TestAnnotatedSequence(t *testing.T) {
	got, err := AnnotatedSequence("PEPCTCDE", 100, []Modification{
		{Position: 103, Mass: 47.985},
		{Position: 105, Mass: 15.995},
	})
	require.NoError(t, err)
	assert.Equal(t, "PEPC(47.985)TC(15.995)DE", got)

	got, err = AnnotatedSequence("PEPTIDE", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDE", got)

	_, err = AnnotatedSequence("PEP", 1, []Modification{{Position: 9, Mass: 1}})
	assert.Error(t, err)
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, KeyOf(15.995), KeyOf(15.99491))
	assert.NotEqual(t, KeyOf(47.967), KeyOf(47.985))
	assert.Equal(t, KeyOf(-33.988), KeyOf(-33.9877))
	assert.InDelta(t, 57.021, KeyOf(57.02147).Float(), 1e-9)
}

func TestLoadExampleCSV(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "examples", "Modifications.csv"))
	require.NoError(t, err)
	defer f.Close()

	db := DefaultModDatabase()
	require.NoError(t, db.LoadFromCSV(f))
	assert.Equal(t, 11, db.Len())

	label, ok := db.Label("C", -33.988)
	require.True(t, ok)
	assert.Equal(t, "dha", label)

	masses, err := CalculateIsotopeMasses("PEPsdioxCTIDE", 2, 0, db)
	require.NoError(t, err)
	assert.Greater(t, masses.N15MZ, masses.N14MZ)
}
