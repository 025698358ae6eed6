// Package graph holds the in-memory representation of graph samples:
// ragged node and edge attributes, edge index pairs and per-graph targets.
package graph

import (
	"fmt"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/hyper"
)

// Dataset property names a model input can bind to.
const (
	NodeAttributes = "node_attributes"
	EdgeAttributes = "edge_attributes"
	EdgeIndices    = "edge_indices"
)

// Graph is a single sample. Node and edge attribute slices are ragged:
// their outer length varies per graph, the inner length is fixed across
// the dataset.
type Graph struct {
	NodeAttributes [][]mat.Float `json:"node_attributes"`
	EdgeAttributes [][]mat.Float `json:"edge_attributes,omitempty"`
	EdgeIndices    [][2]int      `json:"edge_indices,omitempty"`
	Targets        []mat.Float   `json:"graph_labels"`
}

func (g *Graph) NumNodes() int { return len(g.NodeAttributes) }
func (g *Graph) NumEdges() int { return len(g.EdgeIndices) }

// Check verifies internal consistency: edge endpoints must point at
// existing nodes and attribute widths must be uniform within the graph.
func (g *Graph) Check() error {
	if g.NumNodes() == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	width := len(g.NodeAttributes[0])
	for i, attrs := range g.NodeAttributes {
		if len(attrs) != width {
			return fmt.Errorf("node %d has %d attributes, want %d", i, len(attrs), width)
		}
	}
	if len(g.EdgeAttributes) > 0 && len(g.EdgeAttributes) != len(g.EdgeIndices) {
		return fmt.Errorf("%d edge attribute rows for %d edges", len(g.EdgeAttributes), len(g.EdgeIndices))
	}
	for i, e := range g.EdgeIndices {
		for _, n := range e {
			if n < 0 || n >= g.NumNodes() {
				return fmt.Errorf("edge %d references node %d, graph has %d nodes", i, n, g.NumNodes())
			}
		}
	}
	return nil
}

// NodeDim returns the inner node attribute width, or 0 for an empty graph.
func (g *Graph) NodeDim() int {
	if len(g.NodeAttributes) == 0 {
		return 0
	}
	return len(g.NodeAttributes[0])
}

// EdgeDim returns the inner edge attribute width.
func (g *Graph) EdgeDim() int {
	if len(g.EdgeAttributes) == 0 {
		return 0
	}
	return len(g.EdgeAttributes[0])
}

// Batch is a fixed-size group of samples presented to the trainer together.
type Batch []*Graph

// MakeBatches splits samples into batches of at most batchSize elements,
// preserving order.
func MakeBatches(samples []*Graph, batchSize int) []Batch {
	var result []Batch
	for len(samples) > 0 {
		n := batchSize
		if n > len(samples) {
			n = len(samples)
		}
		result = append(result, Batch(samples[:n]))
		samples = samples[n:]
	}
	return result
}

// Subset selects samples by index, e.g. one side of a fold split.
func Subset(samples []*Graph, indices []int) []*Graph {
	out := make([]*Graph, len(indices))
	for i, idx := range indices {
		out[i] = samples[idx]
	}
	return out
}

// Bindings names the dataset properties feeding each graph field. A
// dataset reports its bindings so model input names resolve against them,
// including properties rebound by set_attributes.
type Bindings struct {
	Nodes       string
	Edges       string
	EdgeIndices string
}

// DefaultBindings is the conventional property naming.
func DefaultBindings() Bindings {
	return Bindings{Nodes: NodeAttributes, Edges: EdgeAttributes, EdgeIndices: EdgeIndices}
}

// CheckModelInputs is the counterpart of a model's input layer list: every
// input must name a property the dataset binds, with a matching inner
// dimension and raggedness. It fails before any training starts.
func CheckModelInputs(samples []*Graph, inputs []hyper.InputSpec, bind Bindings) error {
	if len(samples) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	for _, in := range inputs {
		if err := checkInput(samples, in, bind); err != nil {
			return fmt.Errorf("model input %q: %w", in.Name, err)
		}
	}
	return nil
}

func checkInput(samples []*Graph, in hyper.InputSpec, bind Bindings) error {
	if !in.Ragged {
		return fmt.Errorf("graph properties are ragged, input is not")
	}
	want := in.InnerDim()
	for i, s := range samples {
		var got int
		switch in.Name {
		case bind.Nodes:
			got = s.NodeDim()
		case bind.Edges:
			got = s.EdgeDim()
		case bind.EdgeIndices:
			if s.NumEdges() == 0 {
				return fmt.Errorf("sample %d has no edges", i)
			}
			got = 2
		default:
			return fmt.Errorf("dataset binds no such property")
		}
		if want >= 0 && got != want {
			return fmt.Errorf("sample %d has inner dimension %d, model expects %d", i, got, want)
		}
	}
	return nil
}

// TargetDim returns the uniform target width of the samples.
func TargetDim(samples []*Graph) (int, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("dataset is empty")
	}
	dim := len(samples[0].Targets)
	for i, s := range samples {
		if len(s.Targets) != dim {
			return 0, fmt.Errorf("sample %d has %d targets, want %d", i, len(s.Targets), dim)
		}
	}
	if dim == 0 {
		return 0, fmt.Errorf("samples carry no targets")
	}
	return dim, nil
}

// SelectTargets reduces every sample's target vector to the given indices,
// the multi_target_indices behavior.
func SelectTargets(samples []*Graph, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	for i, s := range samples {
		selected := make([]mat.Float, len(indices))
		for j, idx := range indices {
			if idx >= len(s.Targets) {
				return fmt.Errorf("sample %d: target index %d out of range (%d targets)", i, idx, len(s.Targets))
			}
			selected[j] = s.Targets[idx]
		}
		s.Targets = selected
	}
	return nil
}
