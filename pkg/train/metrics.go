package train

import (
	"math"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/registry"
)

// Metrics accumulate in the units the trainer feeds them: when a scaler is
// configured, predictions and targets are mapped back to original units
// before the update, so reported values match the data_unit of the run.

type maeMetric struct {
	sum float64
	n   int
}

func (m *maeMetric) Name() string { return "mean_absolute_error" }

func (m *maeMetric) Update(prediction, target []mat.Float) {
	for i := range target {
		m.sum += math.Abs(float64(prediction[i]) - float64(target[i]))
		m.n++
	}
}

func (m *maeMetric) Result() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

type rmseMetric struct {
	sum float64
	n   int
}

func (m *rmseMetric) Name() string { return "root_mean_squared_error" }

func (m *rmseMetric) Update(prediction, target []mat.Float) {
	for i := range target {
		d := float64(prediction[i]) - float64(target[i])
		m.sum += d * d
		m.n++
	}
}

func (m *rmseMetric) Result() float64 {
	if m.n == 0 {
		return 0
	}
	return math.Sqrt(m.sum / float64(m.n))
}

type accuracyMetric struct {
	correct int
	n       int
}

func (m *accuracyMetric) Name() string { return "categorical_accuracy" }

func (m *accuracyMetric) Update(prediction, target []mat.Float) {
	if argmax(prediction) == argmax(target) {
		m.correct++
	}
	m.n++
}

func (m *accuracyMetric) Result() float64 {
	if m.n == 0 {
		return 0
	}
	return float64(m.correct) / float64(m.n)
}

func newMAE() registry.Metric      { return &maeMetric{} }
func newRMSE() registry.Metric     { return &rmseMetric{} }
func newAccuracy() registry.Metric { return &accuracyMetric{} }
