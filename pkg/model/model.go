// Package model builds trainable models from the model section of a
// hyperparameter document. Every registered architecture shares the same
// skeleton over the framework's stock modules; the literature
// graph-convolution kernels stay on the framework side and are not rebuilt
// here. Builders differ in the inputs they demand and the architecture
// args they validate.
package model

import (
	"fmt"

	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/mat32/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/initializers"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/nn/linear"

	"molnet/pkg/graph"
)

var _ nn.Model = &GraphModel{}

// GraphModel is a node projection, a per-node hidden stack, graph pooling
// and the output head described by output_mlp.
type GraphModel struct {
	nn.BaseModel
	Arch       Arch
	Projection *linear.Model
	Hidden     []*linear.Model
	Output     []*linear.Model
}

// Arch is the resolved architecture: dimensions and choices extracted
// from the hyperparameter document by a builder.
type Arch struct {
	Name             string
	InputDim         int
	HiddenDim        int
	Depth            int
	Dropout          mat.Float
	Pooling          string
	Activation       string
	OutputActivation []string
}

func newGraphModel(arch Arch, outputUnits []int, outputBias []bool) *GraphModel {
	hidden := make([]*linear.Model, arch.Depth)
	for i := range hidden {
		hidden[i] = linear.New(arch.HiddenDim, arch.HiddenDim)
	}
	output := make([]*linear.Model, len(outputUnits))
	in := arch.HiddenDim
	for i, units := range outputUnits {
		var opts []linear.Option
		if !outputBias[i] {
			opts = append(opts, linear.BiasGrad(false))
		}
		output[i] = linear.New(in, units, opts...)
		in = units
	}
	return &GraphModel{
		BaseModel:  nn.BaseModel{},
		Arch:       arch,
		Projection: linear.New(arch.InputDim, arch.HiddenDim),
		Hidden:     hidden,
		Output:     output,
	}
}

func (m *GraphModel) Module() nn.Model { return m }

func (m *GraphModel) InitParams(gen *rand.LockedRand) {
	gain := initializers.Gain(ag.OpIdentity)
	initLinear := func(l *linear.Model) {
		initializers.XavierUniform(l.W.Value(), gain, gen)
	}
	initLinear(m.Projection)
	for _, l := range m.Hidden {
		initLinear(l)
	}
	for _, l := range m.Output {
		initLinear(l)
	}
}

// Forward runs the model over a batch, returning one output per sample.
func (m *GraphModel) Forward(ctx nn.Context, batch graph.Batch) []ag.Node {
	proc := nn.Reify(ctx, m).(*GraphModel)
	out := make([]ag.Node, len(batch))
	for i, sample := range batch {
		out[i] = proc.forwardGraph(ctx, sample)
	}
	return out
}

func (m *GraphModel) forwardGraph(ctx nn.Context, sample *graph.Graph) ag.Node {
	g := ctx.Graph
	nodes := make([]ag.Node, sample.NumNodes())
	for i, attrs := range sample.NodeAttributes {
		nodes[i] = g.NewVariable(mat.NewVecDense(attrs), false)
	}
	nodes = m.Projection.Forward(nodes...)
	for i := range nodes {
		nodes[i] = activate(g, m.Arch.Activation, nodes[i])
	}
	for _, layer := range m.Hidden {
		nodes = layer.Forward(nodes...)
		for i := range nodes {
			nodes[i] = activate(g, m.Arch.Activation, nodes[i])
			if ctx.Mode == nn.Training && m.Arch.Dropout > 0 {
				nodes[i] = g.Dropout(nodes[i], m.Arch.Dropout)
			}
		}
	}
	x := pool(g, m.Arch.Pooling, nodes)
	for i, layer := range m.Output {
		x = layer.Forward(x)[0]
		x = activate(g, m.Arch.OutputActivation[i], x)
	}
	return x
}

func pool(g *ag.Graph, kind string, nodes []ag.Node) ag.Node {
	sum := nodes[0]
	for _, n := range nodes[1:] {
		sum = g.Add(sum, n)
	}
	if kind == "sum" {
		return sum
	}
	return g.DivScalar(sum, g.NewScalar(mat.Float(len(nodes))))
}

var activations = map[string]bool{
	"linear":  true,
	"relu":    true,
	"sigmoid": true,
	"tanh":    true,
	"softmax": true,
}

func activate(g *ag.Graph, name string, x ag.Node) ag.Node {
	switch name {
	case "linear":
		return x
	case "relu":
		return g.ReLU(x)
	case "sigmoid":
		return g.Sigmoid(x)
	case "tanh":
		return g.Tanh(x)
	case "softmax":
		return g.Softmax(x)
	}
	panic(fmt.Sprintf("model: activation %q escaped validation", name))
}
