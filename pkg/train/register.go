package train

import "molnet/pkg/registry"

// Register wires the optimizers, learning-rate schedules, losses, metrics
// and scalers into the registry.
func Register(r *registry.Registry) {
	r.RegisterOptimizer("Adam", makeAdam)
	r.RegisterOptimizer("SGD", makeSGD)
	r.RegisterOptimizer("RMSprop", makeRMSProp)

	r.RegisterSchedule("LinearLearningRateScheduler", makeLinearSchedule)
	r.RegisterSchedule("ExponentialDecay", makeExponentialDecay)
	r.RegisterSchedule("LinearWarmupExponentialLearningRateScheduler", makeWarmupExponentialSchedule)

	r.RegisterLoss("mean_squared_error", meanSquaredError)
	r.RegisterLoss("mean_absolute_error", meanAbsoluteError)
	r.RegisterLoss("categorical_crossentropy", categoricalCrossEntropy)

	r.RegisterMetric("mean_absolute_error", newMAE)
	r.RegisterMetric("root_mean_squared_error", newRMSE)
	r.RegisterMetric("categorical_accuracy", newAccuracy)

	r.RegisterScaler("StandardScaler", makeStandardScaler)
}
