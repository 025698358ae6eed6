package model

import (
	"encoding/json"
	"errors"
	"testing"

	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/stretchr/testify/require"

	"molnet/pkg/graph"
	"molnet/pkg/hyper"
)

func unetSection(t *testing.T) *hyper.ModelSection {
	t.Helper()
	return &hyper.ModelSection{
		ClassName: "Unet",
		Config: hyper.ModelConfig{
			Name: "Unet",
			Inputs: []hyper.InputSpec{
				{Shape: []hyper.Dim{hyper.VarDim, 5}, Name: graph.NodeAttributes, DType: "float32", Ragged: true},
				{Shape: []hyper.Dim{hyper.VarDim, 3}, Name: graph.EdgeAttributes, DType: "float32", Ragged: true},
				{Shape: []hyper.Dim{hyper.VarDim, 2}, Name: graph.EdgeIndices, DType: "int64", Ragged: true},
			},
			Depth:           2,
			Dropout:         0.1,
			OutputEmbedding: "graph",
			OutputMLP: &hyper.MLPSpec{
				Units:      []int{25, 1},
				Activation: []string{"relu", "linear"},
				UseBias:    []bool{true, true},
			},
			Args: map[string]json.RawMessage{
				"hidden_dim": json.RawMessage(`{"units": 16, "use_bias": true, "activation": "relu"}`),
			},
		},
	}
}

func testBatch(nodeDim int) graph.Batch {
	batch := make(graph.Batch, 3)
	for i := range batch {
		g := &graph.Graph{Targets: []mat.Float{1.0}}
		for n := 0; n < 4+i; n++ {
			g.NodeAttributes = append(g.NodeAttributes, make([]mat.Float, nodeDim))
			g.EdgeAttributes = append(g.EdgeAttributes, make([]mat.Float, 3))
			g.EdgeIndices = append(g.EdgeIndices, [2]int{n % (4 + i), (n + 1) % (4 + i)})
		}
		batch[i] = g
	}
	return batch
}

func TestUnetForward(t *testing.T) {
	built, err := makeUnet(unetSection(t))
	require.NoError(t, err)

	m := built.(*GraphModel)
	require.Equal(t, 5, m.Arch.InputDim)
	require.Equal(t, 16, m.Arch.HiddenDim)
	require.Equal(t, 2, len(m.Hidden))
	require.Equal(t, 2, len(m.Output))

	m.InitParams(rand.NewLockedRand(42))

	g := ag.NewGraph(ag.Rand(rand.NewLockedRand(42)))
	ctx := nn.Context{Graph: g, Mode: nn.Inference}
	out := built.Forward(ctx, testBatch(5))
	require.Equal(t, 3, len(out))
	for _, o := range out {
		require.Equal(t, 1, o.Value().Rows())
	}
}

func TestBuilderInputValidation(t *testing.T) {
	section := unetSection(t)
	section.Config.Inputs = section.Config.Inputs[:2]

	_, err := makeUnet(section)
	var schemaErr *hyper.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	require.Equal(t, "model.config.inputs", schemaErr.Field)
}

func TestBuilderInputsArePositional(t *testing.T) {
	section := unetSection(t)
	section.Config.Inputs[0].Name = "node_labels"

	built, err := makeUnet(section)
	require.NoError(t, err)
	require.Equal(t, 5, built.(*GraphModel).Arch.InputDim)
}

func TestBuilderRequiresArchArgs(t *testing.T) {
	section := unetSection(t)
	delete(section.Config.Args, "hidden_dim")

	_, err := makeUnet(section)
	var schemaErr *hyper.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	require.Equal(t, "model.config.hidden_dim", schemaErr.Field)

	section = unetSection(t)
	section.Config.Args["attention_args"] = json.RawMessage(`{"units": 32}`)
	_, err = makeAttentiveFP(section)
	require.NoError(t, err)

	delete(section.Config.Args, "attention_args")
	_, err = makeAttentiveFP(section)
	require.True(t, errors.As(err, &schemaErr))
	require.Equal(t, "model.config.attention_args", schemaErr.Field)
}

func TestBuilderRejectsUnknownActivation(t *testing.T) {
	section := unetSection(t)
	section.Config.OutputMLP.Activation = []string{"relu", "leaky_relu"}

	_, err := makeUnet(section)
	var unsupported *hyper.UnsupportedOptionError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "leaky_relu", unsupported.Name)
}

func TestGINBuilder(t *testing.T) {
	section := &hyper.ModelSection{
		ClassName: "GIN",
		Config: hyper.ModelConfig{
			Name: "GIN",
			Inputs: []hyper.InputSpec{
				{Shape: []hyper.Dim{hyper.VarDim, 7}, Name: graph.NodeAttributes, DType: "float32", Ragged: true},
				{Shape: []hyper.Dim{hyper.VarDim, 2}, Name: graph.EdgeIndices, DType: "int64", Ragged: true},
			},
			Depth:           3,
			OutputEmbedding: "graph",
			OutputMLP: &hyper.MLPSpec{
				Units:      []int{2},
				Activation: []string{"softmax"},
				UseBias:    []bool{true},
			},
			Args: map[string]json.RawMessage{
				"gin_mlp": json.RawMessage(`{"units": [64, 64], "use_bias": true, "activation": ["relu", "relu"]}`),
			},
		},
	}

	built, err := makeGIN(section)
	require.NoError(t, err)
	m := built.(*GraphModel)
	require.Equal(t, 64, m.Arch.HiddenDim)
	require.Equal(t, "sum", m.Arch.Pooling)

	section.Config.Args["gin_mlp"] = json.RawMessage(`{"units": [64, 64], "use_bias": true, "activation": ["relu"]}`)
	_, err = makeGIN(section)
	var schemaErr *hyper.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	require.Equal(t, "model.config.gin_mlp.activation", schemaErr.Field)
}
