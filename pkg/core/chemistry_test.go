package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateIsotopeMasses(t *testing.T) {
	tests := []struct {
		name      string
		sequence  string
		charge    int
		want      IsotopeMasses
		tolerance float64
	}{
		{
			name:      "simple tripeptide charge 1",
			sequence:  "AAA",
			charge:    1,
			want:      IsotopeMasses{N14Mass: 231.122, N14MZ: 232.129, N15Mass: 234.113, N15MZ: 235.120},
			tolerance: 0.002,
		},
		{
			name:      "PEPTIDE charge 2",
			sequence:  "PEPTIDE",
			charge:    2,
			want:      IsotopeMasses{N14Mass: 799.360, N14MZ: 400.687, N15Mass: 806.339, N15MZ: 404.177},
			tolerance: 0.002,
		},
		{
			name:      "ambiguous J treated as I",
			sequence:  "PEPTJDE",
			charge:    2,
			want:      IsotopeMasses{N14Mass: 799.360, N14MZ: 400.687, N15Mass: 806.339, N15MZ: 404.177},
			tolerance: 0.002,
		},
		{
			name:      "oxidised methionine",
			sequence:  "AoxMA",
			charge:    1,
			want:      IsotopeMasses{N14Mass: 307.120, N14MZ: 308.127, N15Mass: 310.111, N15MZ: 311.118},
			tolerance: 0.002,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateIsotopeMasses(tt.sequence, tt.charge, 0, nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.N14Mass, got.N14Mass, tt.tolerance)
			assert.InDelta(t, tt.want.N14MZ, got.N14MZ, tt.tolerance)
			assert.InDelta(t, tt.want.N15Mass, got.N15Mass, tt.tolerance)
			assert.InDelta(t, tt.want.N15MZ, got.N15MZ, tt.tolerance)
			assert.Greater(t, got.N15MZ, got.N14MZ)
		})
	}
}

func TestCalculateIsotopeMassesErrors(t *testing.T) {
	_, err := CalculateIsotopeMasses("AAA", 1, 500, nil)
	assert.True(t, errors.Is(err, ErrBelowMinMZ), "got %v", err)

	_, err = CalculateIsotopeMasses("AAXA", 1, 0, nil)
	assert.True(t, errors.Is(err, ErrUnknownResidue), "got %v", err)

	_, err = CalculateIsotopeMasses("AAphM", 1, 0, nil)
	assert.True(t, errors.Is(err, ErrUnknownResidue), "got %v", err)

	_, err = CalculateIsotopeMasses("AAA", 0, 0, nil)
	assert.Error(t, err)
}

func TestParseFormula(t *testing.T) {
	tests := []struct {
		formula string
		want    Composition
		wantErr bool
	}{
		{"O", Composition{"O": 1}, false},
		{"O2", Composition{"O": 2}, false},
		{"C2H3NO", Composition{"C": 2, "H": 3, "N": 1, "O": 1}, false},
		{"H-2S-1", Composition{"H": -2, "S": -1}, false},
		{"SO3", Composition{"S": 1, "O": 3}, false},
		{"", Composition{}, false},
		{"Xx2", nil, true},
		{"C2 H3", nil, true},
		{"c2", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := ParseFormula(tt.formula)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompositionMass(t *testing.T) {
	water := Composition{"H": 2, "O": 1}
	m, err := water.Mass(false)
	require.NoError(t, err)
	assert.InDelta(t, 18.0106, m, 0.0001)

	ammonia := Composition{"N": 1, "H": 3}
	light, err := ammonia.Mass(false)
	require.NoError(t, err)
	heavy, err := ammonia.Mass(true)
	require.NoError(t, err)
	assert.InDelta(t, MassN15-MassN, heavy-light, 1e-9)

	_, err = Composition{"Zz": 1}.Mass(false)
	assert.True(t, errors.Is(err, ErrUnknownElement))
}

func TestCompositionString(t *testing.T) {
	assert.Equal(t, "C2H3NO", Composition{"O": 1, "N": 1, "H": 3, "C": 2}.String())
	assert.Equal(t, "H-2S-1", Composition{"S": -1, "H": -2}.String())
}

func TestSplitResidues(t *testing.T) {
	got, err := SplitResidues("PEPoxMcamCK")
	require.NoError(t, err)
	assert.Equal(t, []string{"P", "E", "P", "oxM", "camC", "K"}, got)

	_, err = SplitResidues("PEP1")
	assert.Error(t, err)

	_, err = SplitResidues("PEPox")
	assert.Error(t, err)
}

func TestMZ(t *testing.T) {
	assert.InDelta(t, 1000.0+ProtonMass, MZ(1000, 1), 1e-9)
	assert.InDelta(t, (1000.0+2*ProtonMass)/2, MZ(1000, 2), 1e-9)
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name      string
		val       float64
		precision int
		want      float64
	}{
		{"round to 2 decimals", 3.14159, 2, 3.14},
		{"round to 3 decimals", 3.14159, 3, 3.142},
		{"round to 0 decimals", 3.6, 0, 4.0},
		{"round negative", -3.14159, 2, -3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundFloat(tt.val, tt.precision)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("RoundFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
