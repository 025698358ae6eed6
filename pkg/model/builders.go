package model

import (
	"fmt"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/hyper"
	"molnet/pkg/registry"
)

// Register wires the supported architectures into the registry.
func Register(r *registry.Registry) {
	r.RegisterModel("GCN", makeGCN)
	r.RegisterModel("GIN", makeGIN)
	r.RegisterModel("Unet", makeUnet)
	r.RegisterModel("AttentiveFP", makeAttentiveFP)
}

type gcnArgs struct {
	Units         int    `json:"units"`
	Activation    string `json:"activation"`
	PoolingMethod string `json:"pooling_method"`
}

func makeGCN(section *hyper.ModelSection) (registry.Model, error) {
	cfg := &section.Config
	if err := requireInputs(cfg, 2); err != nil {
		return nil, err
	}
	in, err := nodeDim(cfg)
	if err != nil {
		return nil, err
	}
	args := gcnArgs{Activation: "relu"}
	if _, err := cfg.Arg("gcn_args", &args); err != nil {
		return nil, err
	}
	hidden := args.Units
	if hidden == 0 {
		hidden = embeddingDim(cfg, 64)
	}
	return finish(section, Arch{
		InputDim:   in,
		HiddenDim:  hidden,
		Depth:      cfg.Depth,
		Dropout:    mat.Float(cfg.Dropout),
		Pooling:    args.PoolingMethod,
		Activation: args.Activation,
	})
}

func makeGIN(section *hyper.ModelSection) (registry.Model, error) {
	cfg := &section.Config
	if err := requireInputs(cfg, 2); err != nil {
		return nil, err
	}
	in, err := nodeDim(cfg)
	if err != nil {
		return nil, err
	}
	var ginMLP hyper.MLPSpec
	ok, err := cfg.Arg("gin_mlp", &ginMLP)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &hyper.SchemaError{Field: "model.config.gin_mlp", Reason: "required"}
	}
	if err := hyper.ValidateMLP("model.config.gin_mlp", &ginMLP); err != nil {
		return nil, err
	}
	return finish(section, Arch{
		InputDim:   in,
		HiddenDim:  ginMLP.Units[len(ginMLP.Units)-1],
		Depth:      cfg.Depth,
		Dropout:    mat.Float(cfg.Dropout),
		Pooling:    "sum",
		Activation: ginMLP.Activation[0],
	})
}

type unetHiddenArgs struct {
	Units      int    `json:"units"`
	UseBias    bool   `json:"use_bias"`
	Activation string `json:"activation"`
}

type poolingArgs struct {
	PoolingMethod string `json:"pooling_method"`
}

func makeUnet(section *hyper.ModelSection) (registry.Model, error) {
	cfg := &section.Config
	if err := requireInputs(cfg, 3); err != nil {
		return nil, err
	}
	in, err := nodeDim(cfg)
	if err != nil {
		return nil, err
	}
	hiddenArgs := unetHiddenArgs{Activation: "linear"}
	ok, err := cfg.Arg("hidden_dim", &hiddenArgs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &hyper.SchemaError{Field: "model.config.hidden_dim", Reason: "required"}
	}
	if hiddenArgs.Units < 1 {
		return nil, &hyper.SchemaError{Field: "model.config.hidden_dim.units", Reason: "must be positive"}
	}
	var pooling poolingArgs
	if _, err := cfg.Arg("pooling_args", &pooling); err != nil {
		return nil, err
	}
	return finish(section, Arch{
		InputDim:   in,
		HiddenDim:  hiddenArgs.Units,
		Depth:      cfg.Depth,
		Dropout:    mat.Float(cfg.Dropout),
		Pooling:    pooling.PoolingMethod,
		Activation: hiddenArgs.Activation,
	})
}

type attentionArgs struct {
	Units int `json:"units"`
}

func makeAttentiveFP(section *hyper.ModelSection) (registry.Model, error) {
	cfg := &section.Config
	if err := requireInputs(cfg, 3); err != nil {
		return nil, err
	}
	in, err := nodeDim(cfg)
	if err != nil {
		return nil, err
	}
	var attention attentionArgs
	ok, err := cfg.Arg("attention_args", &attention)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &hyper.SchemaError{Field: "model.config.attention_args", Reason: "required"}
	}
	if attention.Units < 1 {
		return nil, &hyper.SchemaError{Field: "model.config.attention_args.units", Reason: "must be positive"}
	}
	return finish(section, Arch{
		InputDim:   in,
		HiddenDim:  attention.Units,
		Depth:      cfg.Depth,
		Dropout:    mat.Float(cfg.Dropout),
		Pooling:    "sum",
		Activation: "relu",
	})
}

// finish validates the parts common to every architecture and assembles
// the model.
func finish(section *hyper.ModelSection, arch Arch) (registry.Model, error) {
	cfg := &section.Config
	out := cfg.OutputMLP
	if out == nil {
		return nil, &hyper.SchemaError{Field: "model.config.output_mlp", Reason: "required"}
	}
	if cfg.OutputEmbedding != "" && cfg.OutputEmbedding != "graph" {
		return nil, &hyper.UnsupportedOptionError{Kind: "output_embedding", Name: cfg.OutputEmbedding}
	}
	for _, a := range out.Activation {
		if !activations[a] {
			return nil, &hyper.UnsupportedOptionError{Kind: "activation", Name: a}
		}
	}
	if !activations[arch.Activation] {
		return nil, &hyper.UnsupportedOptionError{Kind: "activation", Name: arch.Activation}
	}
	if arch.Pooling == "" {
		arch.Pooling = "mean"
	}
	if arch.Pooling != "mean" && arch.Pooling != "sum" {
		return nil, &hyper.UnsupportedOptionError{Kind: "pooling_method", Name: arch.Pooling}
	}
	if arch.HiddenDim < 1 {
		return nil, &hyper.SchemaError{Field: "model.config", Reason: "hidden dimension must be positive"}
	}
	arch.Name = section.ClassName
	arch.OutputActivation = out.Activation
	return newGraphModel(arch, out.Units, out.UseBias), nil
}

// Inputs are positional: the first entry is the node property, the last
// the edge index pairs, with edge features in between for architectures
// that take them. The names themselves are resolved against the dataset's
// property bindings when a run starts.
func requireInputs(cfg *hyper.ModelConfig, n int) error {
	if len(cfg.Inputs) != n {
		return &hyper.SchemaError{
			Field:  "model.config.inputs",
			Reason: fmt.Sprintf("architecture expects %d inputs, got %d", n, len(cfg.Inputs)),
		}
	}
	return nil
}

func nodeDim(cfg *hyper.ModelConfig) (int, error) {
	d := cfg.Inputs[0].InnerDim()
	if d < 1 {
		return 0, &hyper.SchemaError{
			Field:  "model.config.inputs[0].shape",
			Reason: "node input requires a fixed inner dimension",
		}
	}
	return d, nil
}

func embeddingDim(cfg *hyper.ModelConfig, fallback int) int {
	if emb, ok := cfg.InputEmbedding["node"]; ok && emb.OutputDim > 0 {
		return emb.OutputDim
	}
	return fallback
}
