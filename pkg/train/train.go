package train

import (
	"fmt"

	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/data"
	"molnet/pkg/graph"
	"molnet/pkg/hyper"
	"molnet/pkg/registry"
)

const gradientClipThreshold = 2000.0

// Options are the run parameters not carried by the hyperparameter
// document itself.
type Options struct {
	// DataDir is used when the dataset config leaves data_directory empty.
	DataDir string
	// OutputDir is the root for result summaries; empty disables writing.
	OutputDir string
	Seed      uint64
}

// EpochStats is one row of a fold's training history.
type EpochStats struct {
	Epoch      int                `json:"epoch"`
	Loss       float64            `json:"loss"`
	Validation map[string]float64 `json:"validation,omitempty"`
}

// FoldResult is the history and final test metrics of one split.
type FoldResult struct {
	Fold    int                `json:"fold"`
	History []EpochStats       `json:"history"`
	Final   map[string]float64 `json:"final"`
}

// Result is the outcome of a full run over all splits.
type Result struct {
	Model       string             `json:"model"`
	Dataset     string             `json:"dataset"`
	DataUnit    string             `json:"data_unit,omitempty"`
	Folds       []FoldResult       `json:"folds"`
	Metrics     map[string]float64 `json:"metrics"`
	SummaryPath string             `json:"-"`
}

// Run executes the training pipeline described by a validated document:
// build the dataset, split it, and fit a fresh model per split.
func Run(reg *registry.Registry, cfg *hyper.Config, opts Options) (*Result, error) {
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	spec := cfg.Data.Dataset
	if spec.Config.DataDirectory == "" {
		spec.Config.DataDirectory = opts.DataDir
	}
	ds, err := data.Build(reg, &spec)
	if err != nil {
		return nil, err
	}
	samples, err := ds.Samples()
	if err != nil {
		return nil, err
	}
	if fd, ok := ds.(*data.FileDataset); ok {
		for _, pe := range fd.Errors() {
			log.Warn().Str("dataset", ds.Name()).Int("line", pe.Line).
				Err(pe.Err).Msg("skipping bad record")
		}
	}
	if err := graph.SelectTargets(samples, cfg.Training.MultiTargetIndices); err != nil {
		return nil, err
	}
	if err := graph.CheckModelInputs(samples, cfg.Model.Config.Inputs, ds.Bindings()); err != nil {
		return nil, err
	}
	targetDim, err := graph.TargetDim(samples)
	if err != nil {
		return nil, err
	}
	units := cfg.Model.Config.OutputMLP.Units
	if out := units[len(units)-1]; out != targetDim {
		return nil, fmt.Errorf("train: model outputs %d values but targets have %d", out, targetDim)
	}

	folds, err := splits(cfg, len(samples), int64(opts.Seed))
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", cfg.Model.ClassName).Str("dataset", ds.Name()).
		Int("samples", len(samples)).Int("folds", len(folds)).Msg("starting run")

	result := &Result{
		Model:    cfg.Model.ClassName,
		Dataset:  ds.Name(),
		DataUnit: cfg.Data.DataUnit,
	}
	for i, fold := range folds {
		fr, err := runFold(reg, cfg, samples, fold, i, opts.Seed)
		if err != nil {
			return nil, fmt.Errorf("train: fold %d: %w", i, err)
		}
		result.Folds = append(result.Folds, *fr)
	}
	result.Metrics = aggregateMetrics(result.Folds)

	if opts.OutputDir != "" {
		path, err := writeSummary(opts.OutputDir, cfg, result)
		if err != nil {
			return nil, err
		}
		result.SummaryPath = path
		log.Info().Str("path", path).Msg("wrote summary")
	}
	return result, nil
}

func splits(cfg *hyper.Config, n int, seed int64) ([]Fold, error) {
	cv := cfg.Training.CrossValidation
	if cv == nil {
		return []Fold{holdout(n, seed)}, nil
	}
	// More splits than samples would leave folds with nothing to test on.
	if cv.Config.NSplits > n {
		return nil, fmt.Errorf("train: %d cross-validation splits but only %d samples", cv.Config.NSplits, n)
	}
	if cv.Config.RandomState != nil {
		seed = *cv.Config.RandomState
	}
	k := KFold{NSplits: cv.Config.NSplits, Shuffle: cv.Config.Shuffle, Seed: seed}
	return k.Split(n), nil
}

func runFold(reg *registry.Registry, cfg *hyper.Config, samples []*graph.Graph, fold Fold, foldIndex int, seed uint64) (*FoldResult, error) {
	trainSamples := graph.Subset(samples, fold.Train)
	testSamples := graph.Subset(samples, fold.Test)

	var scaler registry.Scaler
	if sc := cfg.Training.Scaler; sc != nil {
		builder, err := reg.Scaler(sc.ClassName)
		if err != nil {
			return nil, err
		}
		scaler, err = builder(sc.Config)
		if err != nil {
			return nil, err
		}
		scaler.Fit(targetsOf(trainSamples))
		trainSamples = rescaleTargets(scaler, trainSamples)
		testSamples = rescaleTargets(scaler, testSamples)
	}

	modelBuilder, err := reg.Model(cfg.Model.ClassName)
	if err != nil {
		return nil, err
	}
	m, err := modelBuilder(&cfg.Model)
	if err != nil {
		return nil, err
	}
	m.InitParams(rand.NewLockedRand(seed))

	lossFn, err := reg.Loss(cfg.Training.Compile.Loss)
	if err != nil {
		return nil, err
	}
	metricBuilders := make([]registry.MetricBuilder, 0, len(cfg.Training.Compile.Metrics))
	for _, name := range cfg.Training.Compile.Metrics {
		b, err := reg.Metric(name)
		if err != nil {
			return nil, err
		}
		metricBuilders = append(metricBuilders, b)
	}

	schedules, err := buildSchedules(reg, cfg)
	if err != nil {
		return nil, err
	}
	args := cfg.Training.Compile.Optimizer.Config
	if args.LR.Schedule != nil {
		// The nested schedule is always first in the list.
		args.LR.Value = schedules[0].Rate(0)
	}
	optBuilder, err := reg.Optimizer(cfg.Training.Compile.Optimizer.ClassName)
	if err != nil {
		return nil, err
	}
	opt, err := optBuilder(args)
	if err != nil {
		return nil, err
	}
	optimizer := gd.NewOptimizer(opt.Method, nn.NewDefaultParamsIterator(m.Module()),
		gd.ClipGradByValue(gradientClipThreshold))

	fit := cfg.Training.Fit
	fr := &FoldResult{Fold: foldIndex}
	for epoch := 0; epoch < fit.Epochs; epoch++ {
		optimizer.IncEpoch()
		for _, schedule := range schedules {
			opt.SetRate(schedule.Rate(epoch))
		}

		batches := graph.MakeBatches(trainSamples, fit.BatchSize)
		epochLoss := 0.0
		for _, batch := range batches {
			epochLoss += trainBatch(optimizer, m, lossFn, batch, seed)
			optimizer.Optimize()
		}
		epochLoss /= float64(len(batches))

		stats := EpochStats{Epoch: epoch, Loss: epochLoss}
		if (epoch+1)%fit.ValidationFreq == 0 || epoch == fit.Epochs-1 {
			stats.Validation = evaluate(m, testSamples, metricBuilders, fit.BatchSize, scaler, seed)
			fr.Final = stats.Validation
		}
		fr.History = append(fr.History, stats)

		ev := log.Info().Int("fold", foldIndex).Int("epoch", epoch).Float64("loss", epochLoss)
		for name, value := range stats.Validation {
			ev = ev.Float64(name, value)
		}
		ev.Msg("epoch complete")
	}
	return fr, nil
}

func trainBatch(optimizer *gd.GradientDescent, m registry.Model, lossFn registry.LossFunc, batch graph.Batch, seed uint64) float64 {
	optimizer.IncBatch()
	g := ag.NewGraph(ag.Rand(rand.NewLockedRand(seed)))
	defer g.Clear()
	ctx := nn.Context{Graph: g, Mode: nn.Training}
	predictions := m.Forward(ctx, batch)
	var loss ag.Node
	for i := range batch {
		loss = g.Add(loss, lossFn(g, predictions[i], batch[i].Targets))
	}
	loss = g.DivScalar(loss, g.NewScalar(mat.Float(len(batch))))
	g.Backward(loss)
	return float64(loss.ScalarValue())
}

// evaluate runs the model over the test split in inference mode. When a
// scaler is active, predictions and targets are mapped back to original
// units before the metrics see them.
func evaluate(m registry.Model, samples []*graph.Graph, builders []registry.MetricBuilder, batchSize int, scaler registry.Scaler, seed uint64) map[string]float64 {
	metrics := make([]registry.Metric, len(builders))
	for i, b := range builders {
		metrics[i] = b()
	}
	for _, batch := range graph.MakeBatches(samples, batchSize) {
		g := ag.NewGraph(ag.Rand(rand.NewLockedRand(seed)))
		ctx := nn.Context{Graph: g, Mode: nn.Inference}
		predictions := m.Forward(ctx, batch)
		for i := range batch {
			prediction := predictions[i].Value().Data()
			target := batch[i].Targets
			if scaler != nil {
				prediction = scaler.InverseTransform([][]mat.Float{prediction})[0]
				target = scaler.InverseTransform([][]mat.Float{target})[0]
			}
			for _, metric := range metrics {
				metric.Update(prediction, target)
			}
		}
		g.Clear()
	}
	out := make(map[string]float64, len(metrics))
	for _, metric := range metrics {
		out[metric.Name()] = metric.Result()
	}
	return out
}

func buildSchedules(reg *registry.Registry, cfg *hyper.Config) ([]registry.Schedule, error) {
	var specs []hyper.CallbackSpec
	if lr := cfg.Training.Compile.Optimizer.Config.LR; lr.Schedule != nil {
		specs = append(specs, *lr.Schedule)
	}
	specs = append(specs, cfg.Training.Fit.Callbacks...)

	schedules := make([]registry.Schedule, 0, len(specs))
	for _, spec := range specs {
		builder, err := reg.Schedule(spec.ClassName)
		if err != nil {
			return nil, err
		}
		s, err := builder(spec.Config)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

func targetsOf(samples []*graph.Graph) [][]mat.Float {
	targets := make([][]mat.Float, len(samples))
	for i, s := range samples {
		targets[i] = s.Targets
	}
	return targets
}

// rescaleTargets returns shallow copies so the shared sample slice keeps
// its original targets across folds.
func rescaleTargets(scaler registry.Scaler, samples []*graph.Graph) []*graph.Graph {
	scaled := scaler.Transform(targetsOf(samples))
	out := make([]*graph.Graph, len(samples))
	for i, s := range samples {
		clone := *s
		clone.Targets = scaled[i]
		out[i] = &clone
	}
	return out
}

func aggregateMetrics(folds []FoldResult) map[string]float64 {
	values := map[string][]float64{}
	for _, fr := range folds {
		for name, v := range fr.Final {
			values[name] = append(values[name], v)
		}
	}
	out := make(map[string]float64, len(values))
	for name, vs := range values {
		out[name] = stat.Mean(vs, nil)
	}
	return out
}
