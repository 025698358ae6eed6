package train

import (
	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd/adam"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd/rmsprop"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd/sgd"

	"molnet/pkg/hyper"
	"molnet/pkg/registry"
)

func makeAdam(args hyper.OptimizerArgs) (*registry.Optimizer, error) {
	cfg := adam.NewDefaultConfig()
	cfg.StepSize = mat.Float(args.LR.Value)
	if args.Beta1 != nil {
		cfg.Beta1 = mat.Float(*args.Beta1)
	}
	if args.Beta2 != nil {
		cfg.Beta2 = mat.Float(*args.Beta2)
	}
	if args.Epsilon != nil {
		cfg.Epsilon = mat.Float(*args.Epsilon)
	}
	method := adam.New(cfg)
	return &registry.Optimizer{
		Method:  method,
		SetRate: func(rate float64) { method.StepSize = mat.Float(rate) },
	}, nil
}

func makeSGD(args hyper.OptimizerArgs) (*registry.Optimizer, error) {
	momentum := 0.0
	if args.Momentum != nil {
		momentum = *args.Momentum
	}
	nesterov := false
	if args.Nesterov != nil {
		nesterov = *args.Nesterov
	}
	method := sgd.New(sgd.NewConfig(mat.Float(args.LR.Value), mat.Float(momentum), nesterov))
	return &registry.Optimizer{
		Method:  method,
		SetRate: func(rate float64) { method.LR = mat.Float(rate) },
	}, nil
}

func makeRMSProp(args hyper.OptimizerArgs) (*registry.Optimizer, error) {
	epsilon := 1e-08
	if args.Epsilon != nil {
		epsilon = *args.Epsilon
	}
	decay := 0.9
	if args.Decay != nil {
		decay = *args.Decay
	}
	method := rmsprop.New(rmsprop.NewConfig(mat.Float(args.LR.Value), mat.Float(epsilon), mat.Float(decay)))
	return &registry.Optimizer{
		Method:  method,
		SetRate: func(rate float64) { method.LR = mat.Float(rate) },
	}, nil
}
