package reconstruct

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Hyperparams are the tunable knobs of the boosted ensemble.
type Hyperparams struct {
	Trees        int
	MaxDepth     int
	LearningRate float64
	Subsample    float64
	ColSample    float64
}

// Model is a trained gradient-boosted regression tree ensemble. It is an
// opaque artifact: downstream stages only ever see its predictions merged
// back into the table.
type Model struct {
	base  float64
	rate  float64
	trees []*treeNode
}

// trainBoost fits a gradient-boosted ensemble for squared error: start from
// the target mean, then repeatedly fit a depth-limited tree to the current
// residuals on a row/column subsample and shrink its contribution by the
// learning rate. All randomness comes from rng, so a fixed seed reproduces
// the model exactly.
func trainBoost(x [][]float64, y []float64, hp Hyperparams, rng *rand.Rand) *Model {
	model := &Model{
		base: stat.Mean(y, nil),
		rate: hp.LearningRate,
	}

	rows := make([]int, len(y))
	for i := range rows {
		rows[i] = i
	}

	current := make([]float64, len(y))
	for i := range current {
		current[i] = model.base
	}

	residual := make([]float64, len(y))
	nFeatures := len(x[0])

	for m := 0; m < hp.Trees; m++ {
		for i := range y {
			residual[i] = y[i] - current[i]
		}

		sub := sampleRows(rng, rows, hp.Subsample)
		cols := sampleColumns(rng, nFeatures, hp.ColSample)
		tree := fitTree(x, residual, sub, cols, hp.MaxDepth)
		model.trees = append(model.trees, tree)

		for i := range current {
			current[i] += hp.LearningRate * tree.predict(x[i])
		}
	}
	return model
}

// Predict returns the model's estimate for one feature row.
func (m *Model) Predict(row []float64) float64 {
	out := m.base
	for _, tree := range m.trees {
		out += m.rate * tree.predict(row)
	}
	return out
}

// PredictAll returns estimates for every row.
func (m *Model) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.Predict(row)
	}
	return out
}
