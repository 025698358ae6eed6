package hyper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Catalog is the set of component names a loader validates against. It is
// passed in explicitly so tests can run against fakes instead of the
// process-wide default registry.
type Catalog interface {
	HasModel(name string) bool
	HasOptimizer(name string) bool
	HasLoss(name string) bool
	HasMetric(name string) bool
	HasDataset(name string) bool
	HasDatasetMethod(name string) bool
	HasScaler(name string) bool

	// CheckSchedule validates that name is a recognized learning-rate
	// schedule and that config carries its required numeric parameters.
	CheckSchedule(name string, config []byte) error
}

var dtypes = map[string]bool{
	"float32": true,
	"float64": true,
	"int32":   true,
	"int64":   true,
	"bool":    true,
}

// LoadFile reads and validates the hyperparameter document at path.
func LoadFile(path string, cat Catalog) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hyper: opening document: %w", err)
	}
	defer f.Close()
	return Load(f, cat)
}

// Load parses a hyperparameter document and validates it against cat. It
// either returns a fully validated Config or fails before any downstream
// component is invoked.
func Load(r io.Reader, cat Catalog) (*Config, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("hyper: decoding document: %w", err)
	}

	cfg := &Config{}
	for _, s := range []struct {
		key string
		dst interface{}
	}{
		{"model", &cfg.Model},
		{"training", &cfg.Training},
		{"data", &cfg.Data},
		{"info", &cfg.Info},
	} {
		raw, ok := doc[s.key]
		if !ok {
			return nil, &SchemaError{Field: s.key, Reason: "required key missing"}
		}
		if err := json.Unmarshal(raw, s.dst); err != nil {
			return nil, &SchemaError{Field: s.key, Reason: err.Error()}
		}
	}

	if err := cfg.Validate(cat); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the document semantics against the catalog. Load calls
// it on every document; it is exported for configs assembled in code.
func (c *Config) Validate(cat Catalog) error {
	if err := c.validateModel(cat); err != nil {
		return err
	}
	if err := c.validateTraining(cat); err != nil {
		return err
	}
	return c.validateData(cat)
}

func (c *Config) validateModel(cat Catalog) error {
	m := &c.Model
	if m.ClassName == "" {
		return schemaErrorf("model.class_name", "required")
	}
	if !cat.HasModel(m.ClassName) {
		return &UnsupportedOptionError{Kind: "model", Name: m.ClassName}
	}
	if len(m.Config.Inputs) == 0 {
		return schemaErrorf("model.config.inputs", "at least one input required")
	}
	for i, in := range m.Config.Inputs {
		field := fmt.Sprintf("model.config.inputs[%d]", i)
		if in.Name == "" {
			return schemaErrorf(field+".name", "required")
		}
		if !dtypes[in.DType] {
			return schemaErrorf(field+".dtype", "unknown dtype %q", in.DType)
		}
		if len(in.Shape) == 0 {
			return schemaErrorf(field+".shape", "required")
		}
		if in.Ragged && in.Shape[0] != VarDim {
			return schemaErrorf(field+".shape", "ragged input requires a variable first axis")
		}
	}
	for name, emb := range m.Config.InputEmbedding {
		field := "model.config.input_embedding." + name
		if emb.InputDim < 1 {
			return schemaErrorf(field+".input_dim", "must be positive")
		}
		if emb.OutputDim < 1 {
			return schemaErrorf(field+".output_dim", "must be positive")
		}
	}
	if m.Config.Depth < 0 {
		return schemaErrorf("model.config.depth", "must not be negative")
	}
	if m.Config.Dropout < 0 || m.Config.Dropout >= 1 {
		return schemaErrorf("model.config.dropout", "must be in [0, 1)")
	}
	if m.Config.OutputMLP != nil {
		if err := ValidateMLP("model.config.output_mlp", m.Config.OutputMLP); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMLP checks the per-layer lists of an MLP specification,
// prefixing reported fields with the document path in field.
func ValidateMLP(field string, m *MLPSpec) error {
	err := m.Check()
	if err == nil {
		return nil
	}
	var se *SchemaError
	if errors.As(err, &se) {
		return &SchemaError{Field: field + "." + se.Field, Reason: se.Reason}
	}
	return &SchemaError{Field: field, Reason: err.Error()}
}

func (c *Config) validateTraining(cat Catalog) error {
	t := &c.Training

	if t.Fit.BatchSize < 1 {
		return schemaErrorf("training.fit.batch_size", "must be positive")
	}
	if t.Fit.Epochs < 1 {
		return schemaErrorf("training.fit.epochs", "must be positive")
	}
	if t.Fit.ValidationFreq < 1 {
		return schemaErrorf("training.fit.validation_freq", "must be positive")
	}
	for i, cb := range t.Fit.Callbacks {
		if err := cat.CheckSchedule(cb.ClassName, cb.Config); err != nil {
			return fmt.Errorf("training.fit.callbacks[%d]: %w", i, err)
		}
	}

	opt := &t.Compile.Optimizer
	if opt.ClassName == "" {
		return schemaErrorf("training.compile.optimizer.class_name", "required")
	}
	if !cat.HasOptimizer(opt.ClassName) {
		return &UnsupportedOptionError{Kind: "optimizer", Name: opt.ClassName}
	}
	if opt.Config.LR.Schedule != nil {
		sched := opt.Config.LR.Schedule
		if err := cat.CheckSchedule(sched.ClassName, sched.Config); err != nil {
			return fmt.Errorf("training.compile.optimizer.config.lr: %w", err)
		}
	} else if opt.Config.LR.Value <= 0 {
		return schemaErrorf("training.compile.optimizer.config.lr", "must be positive")
	}

	if t.Compile.Loss == "" {
		return schemaErrorf("training.compile.loss", "required")
	}
	if !cat.HasLoss(t.Compile.Loss) {
		return &UnsupportedOptionError{Kind: "loss", Name: t.Compile.Loss}
	}
	for _, metric := range t.Compile.Metrics {
		if !cat.HasMetric(metric) {
			return &UnsupportedOptionError{Kind: "metric", Name: metric}
		}
	}

	if cv := t.CrossValidation; cv != nil {
		if cv.ClassName != "KFold" {
			return &UnsupportedOptionError{Kind: "cross_validation", Name: cv.ClassName}
		}
		if cv.Config.NSplits < 2 {
			return schemaErrorf("training.cross_validation.config.n_splits", "must be at least 2")
		}
	}

	if sc := t.Scaler; sc != nil {
		if !cat.HasScaler(sc.ClassName) {
			return &UnsupportedOptionError{Kind: "scaler", Name: sc.ClassName}
		}
	}

	for i, idx := range t.MultiTargetIndices {
		if idx < 0 {
			return schemaErrorf(fmt.Sprintf("training.multi_target_indices[%d]", i), "must not be negative")
		}
	}
	return nil
}

func (c *Config) validateData(cat Catalog) error {
	ds := &c.Data.Dataset
	if ds.ClassName == "" {
		return schemaErrorf("data.dataset.class_name", "required")
	}
	if !cat.HasDataset(ds.ClassName) {
		return &UnsupportedOptionError{Kind: "dataset", Name: ds.ClassName}
	}
	for i, m := range ds.Methods {
		if !cat.HasDatasetMethod(m.Name) {
			return fmt.Errorf("data.dataset.methods[%d]: %w", i,
				&UnsupportedOptionError{Kind: "dataset method", Name: m.Name})
		}
	}
	return nil
}
