package train

import (
	mat "github.com/nlpodyssey/spago/pkg/mat32"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/losses"
)

func meanSquaredError(g *ag.Graph, prediction ag.Node, target []mat.Float) ag.Node {
	y := g.NewVariable(mat.NewVecDense(target), false)
	return losses.MSE(g, prediction, y, true)
}

func meanAbsoluteError(g *ag.Graph, prediction ag.Node, target []mat.Float) ag.Node {
	y := g.NewVariable(mat.NewVecDense(target), false)
	return g.ReduceMean(g.Abs(g.Sub(prediction, y)))
}

// categoricalCrossEntropy expects a one-hot target vector.
func categoricalCrossEntropy(g *ag.Graph, prediction ag.Node, target []mat.Float) ag.Node {
	return losses.CrossEntropy(g, prediction, argmax(target))
}

func argmax(values []mat.Float) int {
	maxIndex := 0
	for i := range values {
		if values[i] > values[maxIndex] {
			maxIndex = i
		}
	}
	return maxIndex
}
