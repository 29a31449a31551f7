package intensity

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crtlab/n145/pkg/core"
)

func scan(num int, rt float64, peaks ...core.Peak) *core.Spectrum {
	return &core.Spectrum{
		ScanNumber:    num,
		NativeID:      "controllerType=0 controllerNumber=1 scan=" + strconv.Itoa(num),
		MSLevel:       1,
		RetentionTime: rt,
		Peaks:         peaks,
	}
}

func testSpectra() []*core.Spectrum {
	return []*core.Spectrum{
		scan(1, 60.2,
			core.Peak{MZ: 400.686, Intensity: 1000},
			core.Peak{MZ: 404.178, Intensity: 500},
		),
		scan(2, 61.4,
			core.Peak{MZ: 400.687, Intensity: 0},
			core.Peak{MZ: 404.177, Intensity: 300},
		),
		scan(3, 62.7,
			core.Peak{MZ: 400.687, Intensity: 0},
			core.Peak{MZ: 404.177, Intensity: 0},
		),
		scan(4, 63.1,
			core.Peak{MZ: 400.687, Intensity: 800},
		),
		scan(5, 64.5,
			core.Peak{MZ: 600.1234, Intensity: 1234.56789},
			core.Peak{MZ: 606.1016, Intensity: 617.28394},
		),
	}
}

func TestHitIntensities(t *testing.T) {
	hits := []core.Hit{
		{Sequence: "PEPCIDE", Modifications: "15@47.985", Start: 12, Charge: 2, N14MZ: 400.687, N15MZ: 404.177},
		{Sequence: "NOTHERE", Modifications: "-", Start: 1, Charge: 2, N14MZ: 900, N15MZ: 910},
		{Sequence: "PEPCIDE", Modifications: "-", Start: 12, Charge: 1, N14MZ: 400.687, N15MZ: 404.177},
	}

	rows, err := HitIntensities(context.Background(), hits, testSpectra(), Options{Tolerance: 0.01, Workers: 2}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "PEPC(47.985)IDE", rows[0].ModSeq)
	assert.Equal(t, "1", rows[0].Scan)
	assert.Equal(t, 0.5, rows[0].Ratio)
	assert.Equal(t, 400.686, rows[0].N14MZ)

	// 14N peak present with zero intensity
	assert.Equal(t, "2", rows[1].Scan)
	assert.Equal(t, 0.0, rows[1].Ratio)
	assert.Equal(t, 300.0, rows[1].N15Int)

	assert.Equal(t, "PEPCIDE", rows[2].ModSeq)
	assert.Equal(t, 1, rows[2].Hit.Charge)
	assert.Equal(t, "2", rows[3].Scan)

	table := HitTable("Intensities", rows)
	assert.Equal(t, HitColumns, table.Columns)
	require.Equal(t, 4, table.Len())
	assert.Equal(t, []any{
		"PEPC(47.985)IDE", "PEPCIDE", "15@47.985", 2, 60.2, "1",
		400.687, 400.686, 1000.0,
		404.177, 404.178, 500.0, 0.5,
	}, table.Rows[0])
}

func TestHitIntensitiesTolerance(t *testing.T) {
	spectra := []*core.Spectrum{scan(1, 10,
		core.Peak{MZ: 500.004, Intensity: 10},
		core.Peak{MZ: 505.004, Intensity: 20},
	)}
	hits := []core.Hit{
		{Sequence: "A", Modifications: "-", Charge: 1, N14MZ: 500, N15MZ: 505},
		{Sequence: "B", Modifications: "-", Charge: 4, N14MZ: 500, N15MZ: 505},
	}

	rows, err := HitIntensities(context.Background(), hits, spectra, Options{Tolerance: 0.01}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Hit.Sequence)
	assert.Equal(t, 2.0, rows[0].Ratio)
}

func TestHitIntensitiesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hits := []core.Hit{{Sequence: "A", Modifications: "-", Charge: 1, N14MZ: 500, N15MZ: 505}}
	_, err := HitIntensities(ctx, hits, testSpectra(), Options{Workers: 1}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHitIntensitiesBadModifications(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)

	hits := []core.Hit{{Sequence: "PEPTIDE", Modifications: "oops", Start: 12, Charge: 2, N14MZ: 400.687, N15MZ: 404.177}}
	rows, err := HitIntensities(context.Background(), hits, testSpectra(), Options{}, zap.New(obs))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PEPTIDE", rows[0].ModSeq)
	assert.Equal(t, 1, logs.Len())
}

func TestRatioAtRT(t *testing.T) {
	targets := []Target{
		{Name: "scan1", Charge: 2, RT: 60.5, N14MZ: 400.687, N15MZ: 404.177},
		{Name: "integral rt", Charge: 2, RT: 61.0, N14MZ: 400.687, N15MZ: 404.177},
		{Name: "zero 14N", Charge: 2, RT: 61.9, N14MZ: 400.687, N15MZ: 404.177},
		{Name: "missing 15N", Charge: 2, RT: 63.5, N14MZ: 400.687, N15MZ: 404.177},
		{Name: "rounded", Charge: 1, RT: 64.2, N14MZ: 600.123, N15MZ: 606.102},
	}

	obs, logs := observer.New(zap.WarnLevel)
	got, err := RatioAtRT(context.Background(), targets, testSpectra(), Options{Tolerance: 0.01, Workers: 3}, zap.New(obs))
	require.NoError(t, err)
	require.Len(t, got, 5)

	require.NotNil(t, got[0])
	assert.Equal(t, "1", got[0].Scan)
	assert.Equal(t, 0.5, got[0].Ratio)

	assert.Nil(t, got[1])
	assert.Nil(t, got[2])
	assert.Nil(t, got[3])

	require.NotNil(t, got[4])
	assert.Equal(t, "5", got[4].Scan)
	assert.Equal(t, 600.123, got[4].N14MZ)
	assert.Equal(t, 606.102, got[4].N15MZ)
	assert.Equal(t, 1234.568, got[4].N14Int)
	assert.Equal(t, 617.284, got[4].N15Int)
	assert.Equal(t, 0.5, got[4].Ratio)

	// no scan for the integral RT, no 15N peak for scan 4
	assert.Equal(t, 2, logs.Len())
}

func TestScanAt(t *testing.T) {
	spectra := testSpectra()
	assert.Equal(t, 1, scanAt(spectra, 60.9).ScanNumber)
	assert.Equal(t, 2, scanAt(spectra, 61.01).ScanNumber)
	assert.Nil(t, scanAt(spectra, 62.0))
	assert.Nil(t, scanAt(spectra, 70.5))
}
