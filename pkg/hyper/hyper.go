// Package hyper implements the hyperparameter document: a single JSON
// object with the top-level keys "model", "training", "data" and "info"
// that fully describes one training run. A loaded Config is treated as
// read-only by everything downstream.
package hyper

import (
	"encoding/json"
	"fmt"
)

type Config struct {
	Model    ModelSection    `json:"model"`
	Training TrainingSection `json:"training"`
	Data     DataSection     `json:"data"`
	Info     InfoSection     `json:"info"`
}

type ModelSection struct {
	ClassName  string      `json:"class_name"`
	ModuleName string      `json:"module_name,omitempty"`
	Config     ModelConfig `json:"config"`
}

// ModelConfig carries the architecture hyperparameters. Keys that are not
// common to all architectures (attention_args, gin_mlp, pooling_args, ...)
// stay in Args and are interpreted by the model builder that owns them.
type ModelConfig struct {
	Name            string
	Inputs          []InputSpec
	InputEmbedding  map[string]EmbeddingSpec
	Depth           int
	Dropout         float64
	OutputEmbedding string
	OutputMLP       *MLPSpec
	Args            map[string]json.RawMessage
}

func (m *ModelConfig) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	pop := func(key string, dst interface{}) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}
	if err := pop("name", &m.Name); err != nil {
		return err
	}
	if err := pop("inputs", &m.Inputs); err != nil {
		return err
	}
	if err := pop("input_embedding", &m.InputEmbedding); err != nil {
		return err
	}
	if err := pop("depth", &m.Depth); err != nil {
		return err
	}
	if err := pop("dropout", &m.Dropout); err != nil {
		return err
	}
	if err := pop("output_embedding", &m.OutputEmbedding); err != nil {
		return err
	}
	if err := pop("output_mlp", &m.OutputMLP); err != nil {
		return err
	}
	if len(raw) > 0 {
		m.Args = raw
	} else {
		m.Args = nil
	}
	return nil
}

func (m ModelConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Args)+7)
	for k, v := range m.Args {
		out[k] = v
	}
	put := func(key string, v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		out[key] = b
		return nil
	}
	if err := put("name", m.Name); err != nil {
		return nil, err
	}
	if err := put("inputs", m.Inputs); err != nil {
		return nil, err
	}
	if m.InputEmbedding != nil {
		if err := put("input_embedding", m.InputEmbedding); err != nil {
			return nil, err
		}
	}
	if err := put("depth", m.Depth); err != nil {
		return nil, err
	}
	if err := put("dropout", m.Dropout); err != nil {
		return nil, err
	}
	if err := put("output_embedding", m.OutputEmbedding); err != nil {
		return nil, err
	}
	if m.OutputMLP != nil {
		if err := put("output_mlp", m.OutputMLP); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// Arg unmarshals an architecture-specific argument into dst. It reports
// whether the key was present.
func (m *ModelConfig) Arg(key string, dst interface{}) (bool, error) {
	raw, ok := m.Args[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, schemaErrorf("model.config."+key, "%s", err)
	}
	return true, nil
}

// Dim is one axis of a tensor shape. A JSON null marks a variable-length
// axis and round-trips back to null.
type Dim int

// VarDim is the variable-length (ragged) axis marker.
const VarDim Dim = -1

func (d *Dim) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = VarDim
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = Dim(v)
	return nil
}

func (d Dim) MarshalJSON() ([]byte, error) {
	if d < 0 {
		return []byte("null"), nil
	}
	return json.Marshal(int(d))
}

// InputSpec couples one model input layer to a dataset property by name,
// the way a keras Input layer name selects the dataset tensor.
type InputSpec struct {
	Shape  []Dim  `json:"shape"`
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Ragged bool   `json:"ragged"`
}

// InnerDim returns the size of the last shape axis, or -1 if it is
// variable.
func (s InputSpec) InnerDim() int {
	if len(s.Shape) == 0 {
		return -1
	}
	return int(s.Shape[len(s.Shape)-1])
}

type EmbeddingSpec struct {
	InputDim  int `json:"input_dim"`
	OutputDim int `json:"output_dim"`
}

// MLPSpec describes the layers of an output head, one entry per layer.
// A scalar value in the document broadcasts over all layers; explicit
// lists must have one entry per layer.
type MLPSpec struct {
	Units      []int    `json:"units"`
	Activation []string `json:"activation"`
	UseBias    []bool   `json:"use_bias"`
}

func (m *MLPSpec) UnmarshalJSON(b []byte) error {
	var raw struct {
		Units      json.RawMessage `json:"units"`
		Activation json.RawMessage `json:"activation"`
		UseBias    json.RawMessage `json:"use_bias"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	units, _, err := intScalarOrList(raw.Units)
	if err != nil {
		return fmt.Errorf("units: %w", err)
	}
	m.Units = units
	n := len(units)

	activation, scalar, err := stringScalarOrList(raw.Activation)
	if err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	if activation == nil {
		activation, scalar = []string{"linear"}, true
	}
	m.Activation = broadcastStrings(activation, scalar, n)

	useBias, scalar, err := boolScalarOrList(raw.UseBias)
	if err != nil {
		return fmt.Errorf("use_bias: %w", err)
	}
	if useBias == nil {
		useBias, scalar = []bool{true}, true
	}
	m.UseBias = broadcastBools(useBias, scalar, n)
	return nil
}

// Layers returns the number of layers, taken from units.
func (m *MLPSpec) Layers() int { return len(m.Units) }

// Check verifies the per-layer lists describe the same number of layers.
// Reported fields are relative to the MLP object.
func (m *MLPSpec) Check() error {
	if len(m.Units) == 0 {
		return &SchemaError{Field: "units", Reason: "at least one layer required"}
	}
	for i, u := range m.Units {
		if u < 1 {
			return &SchemaError{Field: fmt.Sprintf("units[%d]", i), Reason: "must be positive"}
		}
	}
	if len(m.Activation) != len(m.Units) {
		return &SchemaError{
			Field:  "activation",
			Reason: fmt.Sprintf("length %d does not match units length %d", len(m.Activation), len(m.Units)),
		}
	}
	if len(m.UseBias) != len(m.Units) {
		return &SchemaError{
			Field:  "use_bias",
			Reason: fmt.Sprintf("length %d does not match units length %d", len(m.UseBias), len(m.Units)),
		}
	}
	return nil
}

func intScalarOrList(raw json.RawMessage) ([]int, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err == nil {
		return []int{v}, true, nil
	}
	var vs []int
	if err := json.Unmarshal(raw, &vs); err != nil {
		return nil, false, err
	}
	return vs, false, nil
}

func stringScalarOrList(raw json.RawMessage) ([]string, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err == nil {
		return []string{v}, true, nil
	}
	var vs []string
	if err := json.Unmarshal(raw, &vs); err != nil {
		return nil, false, err
	}
	return vs, false, nil
}

func boolScalarOrList(raw json.RawMessage) ([]bool, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err == nil {
		return []bool{v}, true, nil
	}
	var vs []bool
	if err := json.Unmarshal(raw, &vs); err != nil {
		return nil, false, err
	}
	return vs, false, nil
}

func broadcastStrings(vs []string, scalar bool, n int) []string {
	if !scalar || len(vs) != 1 {
		return vs
	}
	out := make([]string, n)
	for i := range out {
		out[i] = vs[0]
	}
	return out
}

func broadcastBools(vs []bool, scalar bool, n int) []bool {
	if !scalar || len(vs) != 1 {
		return vs
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = vs[0]
	}
	return out
}

type TrainingSection struct {
	Fit     FitSpec     `json:"fit"`
	Compile CompileSpec `json:"compile"`

	// CrossValidation and Scaler are optional stages: nil means skip.
	CrossValidation    *CrossValidationSpec `json:"cross_validation,omitempty"`
	Scaler             *ScalerSpec          `json:"scaler,omitempty"`
	MultiTargetIndices []int                `json:"multi_target_indices,omitempty"`
}

type FitSpec struct {
	BatchSize      int            `json:"batch_size"`
	Epochs         int            `json:"epochs"`
	ValidationFreq int            `json:"validation_freq"`
	Verbose        int            `json:"verbose,omitempty"`
	Callbacks      []CallbackSpec `json:"callbacks"`
}

// An absent validation_freq means evaluating every epoch.
func (f *FitSpec) UnmarshalJSON(b []byte) error {
	type plain FitSpec
	raw := plain{ValidationFreq: 1}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = FitSpec(raw)
	return nil
}

// CallbackSpec names a learning-rate schedule with its parameters.
type CallbackSpec struct {
	ClassName string          `json:"class_name"`
	Config    json.RawMessage `json:"config"`
}

type CompileSpec struct {
	Optimizer OptimizerSpec `json:"optimizer"`
	Loss      string        `json:"loss"`
	Metrics   []string      `json:"metrics"`
}

type OptimizerSpec struct {
	ClassName string        `json:"class_name"`
	Config    OptimizerArgs `json:"config"`
}

type OptimizerArgs struct {
	LR       LearningRate `json:"lr"`
	Beta1    *float64     `json:"beta_1,omitempty"`
	Beta2    *float64     `json:"beta_2,omitempty"`
	Epsilon  *float64     `json:"epsilon,omitempty"`
	Momentum *float64     `json:"momentum,omitempty"`
	Nesterov *bool        `json:"nesterov,omitempty"`
	Decay    *float64     `json:"decay,omitempty"`
}

// LearningRate is either a constant rate or a serialized schedule, as in
// {"lr": {"class_name": "ExponentialDecay", "config": {...}}}.
type LearningRate struct {
	Value    float64
	Schedule *CallbackSpec
}

func (l *LearningRate) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		l.Value = v
		l.Schedule = nil
		return nil
	}
	var s CallbackSpec
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	l.Schedule = &s
	return nil
}

func (l LearningRate) MarshalJSON() ([]byte, error) {
	if l.Schedule != nil {
		return json.Marshal(l.Schedule)
	}
	return json.Marshal(l.Value)
}

type CrossValidationSpec struct {
	ClassName string      `json:"class_name"`
	Config    KFoldConfig `json:"config"`
}

type KFoldConfig struct {
	NSplits     int    `json:"n_splits"`
	RandomState *int64 `json:"random_state"`
	Shuffle     bool   `json:"shuffle"`
}

type ScalerSpec struct {
	ClassName string       `json:"class_name"`
	Config    ScalerConfig `json:"config"`
}

type ScalerConfig struct {
	WithMean bool `json:"with_mean"`
	WithStd  bool `json:"with_std"`
	Copy     bool `json:"copy,omitempty"`
}

type DataSection struct {
	Dataset  DatasetSpec `json:"dataset"`
	DataUnit string      `json:"data_unit"`
}

type DatasetSpec struct {
	ClassName  string        `json:"class_name"`
	ModuleName string        `json:"module_name,omitempty"`
	Config     DatasetConfig `json:"config"`
	Methods    []MethodSpec  `json:"methods"`
}

type DatasetConfig struct {
	FilePath      string `json:"file_path,omitempty"`
	DataDirectory string `json:"data_directory,omitempty"`
}

// MethodSpec is one post-construction dataset method call, serialized as a
// one-key object: {"set_attributes": {...}}.
type MethodSpec struct {
	Name string
	Args json.RawMessage
}

func (m *MethodSpec) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("method entry must have exactly one key, got %d", len(raw))
	}
	for k, v := range raw {
		m.Name = k
		m.Args = v
	}
	return nil
}

func (m MethodSpec) MarshalJSON() ([]byte, error) {
	args := m.Args
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return json.Marshal(map[string]json.RawMessage{m.Name: args})
}

type InfoSection struct {
	Postfix     string `json:"postfix"`
	PostfixFile string `json:"postfix_file"`
	Version     string `json:"version,omitempty"`
}
