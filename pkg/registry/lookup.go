package registry

import (
	"fmt"

	"molnet/pkg/hyper"
)

// Register* panics on duplicate names: registration happens once at
// startup and a collision is a programming error.

func (r *Registry) RegisterModel(name string, b ModelBuilder) {
	if _, exists := r.models[name]; exists {
		panic(fmt.Sprintf("registry: model %q already registered", name))
	}
	r.models[name] = b
}

func (r *Registry) RegisterOptimizer(name string, b OptimizerBuilder) {
	if _, exists := r.optimizers[name]; exists {
		panic(fmt.Sprintf("registry: optimizer %q already registered", name))
	}
	r.optimizers[name] = b
}

func (r *Registry) RegisterSchedule(name string, b ScheduleBuilder) {
	if _, exists := r.schedules[name]; exists {
		panic(fmt.Sprintf("registry: schedule %q already registered", name))
	}
	r.schedules[name] = b
}

func (r *Registry) RegisterLoss(name string, fn LossFunc) {
	if _, exists := r.losses[name]; exists {
		panic(fmt.Sprintf("registry: loss %q already registered", name))
	}
	r.losses[name] = fn
}

func (r *Registry) RegisterMetric(name string, b MetricBuilder) {
	if _, exists := r.metrics[name]; exists {
		panic(fmt.Sprintf("registry: metric %q already registered", name))
	}
	r.metrics[name] = b
}

func (r *Registry) RegisterDataset(name string, b DatasetBuilder) {
	if _, exists := r.datasets[name]; exists {
		panic(fmt.Sprintf("registry: dataset %q already registered", name))
	}
	r.datasets[name] = b
}

func (r *Registry) RegisterDatasetMethod(name string, m DatasetMethod) {
	if _, exists := r.methods[name]; exists {
		panic(fmt.Sprintf("registry: dataset method %q already registered", name))
	}
	r.methods[name] = m
}

func (r *Registry) RegisterScaler(name string, b ScalerBuilder) {
	if _, exists := r.scalers[name]; exists {
		panic(fmt.Sprintf("registry: scaler %q already registered", name))
	}
	r.scalers[name] = b
}

func (r *Registry) Model(name string) (ModelBuilder, error) {
	b, ok := r.models[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "model", Name: name}
	}
	return b, nil
}

func (r *Registry) Optimizer(name string) (OptimizerBuilder, error) {
	b, ok := r.optimizers[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "optimizer", Name: name}
	}
	return b, nil
}

func (r *Registry) Schedule(name string) (ScheduleBuilder, error) {
	b, ok := r.schedules[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "callback", Name: name}
	}
	return b, nil
}

func (r *Registry) Loss(name string) (LossFunc, error) {
	fn, ok := r.losses[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "loss", Name: name}
	}
	return fn, nil
}

func (r *Registry) Metric(name string) (MetricBuilder, error) {
	b, ok := r.metrics[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "metric", Name: name}
	}
	return b, nil
}

func (r *Registry) Dataset(name string) (DatasetBuilder, error) {
	b, ok := r.datasets[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "dataset", Name: name}
	}
	return b, nil
}

func (r *Registry) DatasetMethod(name string) (DatasetMethod, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "dataset method", Name: name}
	}
	return m, nil
}

func (r *Registry) Scaler(name string) (ScalerBuilder, error) {
	b, ok := r.scalers[name]
	if !ok {
		return nil, &hyper.UnsupportedOptionError{Kind: "scaler", Name: name}
	}
	return b, nil
}

// Catalog view used by the hyper loader.

func (r *Registry) HasModel(name string) bool     { _, ok := r.models[name]; return ok }
func (r *Registry) HasOptimizer(name string) bool { _, ok := r.optimizers[name]; return ok }
func (r *Registry) HasLoss(name string) bool      { _, ok := r.losses[name]; return ok }
func (r *Registry) HasMetric(name string) bool    { _, ok := r.metrics[name]; return ok }
func (r *Registry) HasDataset(name string) bool   { _, ok := r.datasets[name]; return ok }
func (r *Registry) HasDatasetMethod(name string) bool {
	_, ok := r.methods[name]
	return ok
}
func (r *Registry) HasScaler(name string) bool { _, ok := r.scalers[name]; return ok }

// CheckSchedule builds the schedule once and discards it, surfacing
// missing or malformed parameters at load time.
func (r *Registry) CheckSchedule(name string, config []byte) error {
	b, err := r.Schedule(name)
	if err != nil {
		return err
	}
	_, err = b(config)
	return err
}

var _ hyper.Catalog = &Registry{}
