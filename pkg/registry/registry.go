// Package registry is the explicit mapping between the class_name strings
// of a hyperparameter document and the Go components that implement them:
// model builders, optimizers, learning-rate schedules, losses, metrics,
// datasets, dataset methods and scalers. A Registry is populated once at
// startup and passed into the loader, so there is no ambient process-wide
// lookup and tests can run against fakes.
package registry

import (
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/graph"
	"molnet/pkg/hyper"
)

// Model is a built model graph: parameters plus a forward pass over a
// batch of graph samples, one output node per sample.
type Model interface {
	// Module exposes the underlying spago module for parameter iteration.
	Module() nn.Model
	// InitParams initializes the parameters with the given source.
	InitParams(gen *rand.LockedRand)
	// Forward runs the model over a batch within ctx's graph.
	Forward(ctx nn.Context, batch graph.Batch) []ag.Node
}

// ModelBuilder constructs a model from its validated hyperparameter
// section, or fails with a SchemaError for bad architecture args.
type ModelBuilder func(section *hyper.ModelSection) (Model, error)

// Optimizer couples a spago gradient descent method with a hook that
// learning-rate schedules use to retune the step size between epochs.
type Optimizer struct {
	Method  gd.Method
	SetRate func(rate float64)
}

type OptimizerBuilder func(args hyper.OptimizerArgs) (*Optimizer, error)

// Schedule yields the learning rate for a zero-based epoch.
type Schedule interface {
	Rate(epoch int) float64
}

// ScheduleBuilder parses the schedule's config document.
type ScheduleBuilder func(config []byte) (Schedule, error)

// LossFunc builds the loss expression for one sample in g.
type LossFunc func(g *ag.Graph, prediction ag.Node, target []mat.Float) ag.Node

// Metric accumulates prediction/target pairs and reports a single value.
type Metric interface {
	Name() string
	Update(prediction, target []mat.Float)
	Result() float64
}

// MetricBuilder returns a fresh accumulator.
type MetricBuilder func() Metric

// Dataset is a fully constructed dataset binding.
type Dataset interface {
	Name() string
	// Bindings reports which record properties feed the graph fields,
	// after any set_attributes rebinding.
	Bindings() graph.Bindings
	Samples() ([]*graph.Graph, error)
}

type DatasetBuilder func(spec *hyper.DatasetSpec) (Dataset, error)

// DatasetMethod is a post-construction call on a dataset, e.g.
// set_attributes.
type DatasetMethod func(ds Dataset, args []byte) error

// Scaler normalizes target values before training and reports the scale
// used, so metrics can be mapped back to original units.
type Scaler interface {
	Fit(targets [][]mat.Float)
	Transform(targets [][]mat.Float) [][]mat.Float
	InverseTransform(targets [][]mat.Float) [][]mat.Float
	Scale() []float64
}

type ScalerBuilder func(cfg hyper.ScalerConfig) (Scaler, error)

type Registry struct {
	models     map[string]ModelBuilder
	optimizers map[string]OptimizerBuilder
	schedules  map[string]ScheduleBuilder
	losses     map[string]LossFunc
	metrics    map[string]MetricBuilder
	datasets   map[string]DatasetBuilder
	methods    map[string]DatasetMethod
	scalers    map[string]ScalerBuilder
}

func New() *Registry {
	return &Registry{
		models:     map[string]ModelBuilder{},
		optimizers: map[string]OptimizerBuilder{},
		schedules:  map[string]ScheduleBuilder{},
		losses:     map[string]LossFunc{},
		metrics:    map[string]MetricBuilder{},
		datasets:   map[string]DatasetBuilder{},
		methods:    map[string]DatasetMethod{},
		scalers:    map[string]ScalerBuilder{},
	}
}
