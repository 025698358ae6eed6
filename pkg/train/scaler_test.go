package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/hyper"
)

func TestStandardScalerRoundTrip(t *testing.T) {
	s, err := makeStandardScaler(hyper.ScalerConfig{WithMean: true, WithStd: true})
	require.NoError(t, err)

	targets := [][]mat.Float{{-0.77}, {-3.3}, {1.14}, {-2.04}}
	s.Fit(targets)
	scaled := s.Transform(targets)

	column := make([]float64, len(scaled))
	for i, row := range scaled {
		column[i] = float64(row[0])
	}
	assert.InDelta(t, 0, stat.Mean(column, nil), 1e-6)
	assert.InDelta(t, 1, stat.PopStdDev(column, nil), 1e-6)

	want := stat.PopStdDev([]float64{-0.77, -3.3, 1.14, -2.04}, nil)
	assert.InDelta(t, want, s.Scale()[0], 1e-9)

	restored := s.InverseTransform(scaled)
	for i := range targets {
		assert.InDelta(t, float64(targets[i][0]), float64(restored[i][0]), 1e-6)
	}

	// The input is left untouched.
	assert.Equal(t, mat.Float(-0.77), targets[0][0])
}

func TestStandardScalerWithoutMean(t *testing.T) {
	s, err := makeStandardScaler(hyper.ScalerConfig{WithMean: false, WithStd: true})
	require.NoError(t, err)

	targets := [][]mat.Float{{10}, {12}, {14}}
	s.Fit(targets)
	scaled := s.Transform(targets)

	// Values keep their offset, only the spread changes.
	assert.True(t, scaled[0][0] > 0)
	assert.True(t, scaled[0][0] < scaled[2][0])
}

func TestStandardScalerConstantColumn(t *testing.T) {
	s, err := makeStandardScaler(hyper.ScalerConfig{WithMean: true, WithStd: true})
	require.NoError(t, err)

	targets := [][]mat.Float{{5}, {5}, {5}}
	s.Fit(targets)
	assert.Equal(t, []float64{1}, s.Scale())

	scaled := s.Transform(targets)
	for _, row := range scaled {
		assert.InDelta(t, 0, float64(row[0]), 1e-6)
	}
}
