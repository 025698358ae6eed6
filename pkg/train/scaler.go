package train

import (
	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"gonum.org/v1/gonum/stat"

	"molnet/pkg/hyper"
	"molnet/pkg/registry"
)

// StandardScaler centers and scales target columns to zero mean and unit
// standard deviation, fitted on the training split only.
type StandardScaler struct {
	withMean bool
	withStd  bool
	mean     []float64
	std      []float64
}

func makeStandardScaler(cfg hyper.ScalerConfig) (registry.Scaler, error) {
	return &StandardScaler{withMean: cfg.WithMean, withStd: cfg.WithStd}, nil
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(targets [][]mat.Float) {
	if len(targets) == 0 {
		return
	}
	dim := len(targets[0])
	s.mean = make([]float64, dim)
	s.std = make([]float64, dim)
	column := make([]float64, len(targets))
	for j := 0; j < dim; j++ {
		for i, t := range targets {
			column[i] = float64(t[j])
		}
		mean := stat.Mean(column, nil)
		std := stat.PopStdDev(column, nil)
		if !s.withMean {
			mean = 0
		}
		if !s.withStd || std == 0 {
			std = 1
		}
		s.mean[j] = mean
		s.std[j] = std
	}
}

func (s *StandardScaler) Transform(targets [][]mat.Float) [][]mat.Float {
	out := make([][]mat.Float, len(targets))
	for i, t := range targets {
		row := make([]mat.Float, len(t))
		for j := range t {
			row[j] = mat.Float((float64(t[j]) - s.mean[j]) / s.std[j])
		}
		out[i] = row
	}
	return out
}

func (s *StandardScaler) InverseTransform(targets [][]mat.Float) [][]mat.Float {
	out := make([][]mat.Float, len(targets))
	for i, t := range targets {
		row := make([]mat.Float, len(t))
		for j := range t {
			row[j] = mat.Float(float64(t[j])*s.std[j] + s.mean[j])
		}
		out[i] = row
	}
	return out
}

// Scale reports the per-column standard deviation used, nil before Fit.
func (s *StandardScaler) Scale() []float64 { return s.std }
