package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crtlab/n145/pkg/core"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		spec    core.Spectrum
		wantErr bool
		wantMZ  []float64
	}{
		{
			name: "ms1 kept and sorted",
			cfg:  Config{MSLevel: 1},
			spec: core.Spectrum{MSLevel: 1, Peaks: []core.Peak{
				{MZ: 500.2, Intensity: 10},
				{MZ: 400.1, Intensity: 0},
				{MZ: 300.3, Intensity: 5},
			}},
			wantMZ: []float64{300.3, 400.1, 500.2},
		},
		{
			name:    "ms2 skipped",
			cfg:     Config{MSLevel: 1},
			spec:    core.Spectrum{MSLevel: 2, NativeID: "scan=4"},
			wantErr: true,
		},
		{
			name: "all levels",
			cfg:  Config{},
			spec: core.Spectrum{MSLevel: 2, Peaks: []core.Peak{
				{MZ: 100, Intensity: 1},
			}},
			wantMZ: []float64{100},
		},
		{
			name: "intensity threshold",
			cfg:  Config{MinIntensity: 5},
			spec: core.Spectrum{MSLevel: 1, Peaks: []core.Peak{
				{MZ: 100, Intensity: 4},
				{MZ: 200, Intensity: 5},
			}},
			wantMZ: []float64{200},
		},
		{
			name: "too few peaks",
			cfg:  Config{MinIntensity: 1, MinPeaks: 2},
			spec: core.Spectrum{MSLevel: 1, Peaks: []core.Peak{
				{MZ: 100, Intensity: 1},
				{MZ: 200, Intensity: 0},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			err := tt.cfg.Apply(&spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSkipped))
				return
			}
			require.NoError(t, err)

			var mz []float64
			for _, p := range spec.Peaks {
				mz = append(mz, p.MZ)
			}
			assert.Equal(t, tt.wantMZ, mz)
		})
	}
}

func TestMinMZ(t *testing.T) {
	hits := []core.Hit{
		{Sequence: "LOW", N14MZ: 450, N15MZ: 455},
		{Sequence: "EDGE", N14MZ: 500, N15MZ: 505},
		{Sequence: "HIGH", N14MZ: 800, N15MZ: 808},
	}
	kept := MinMZ(hits, 500)
	require.Len(t, kept, 2)
	assert.Equal(t, "EDGE", kept[0].Sequence)
}
