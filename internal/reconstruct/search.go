package reconstruct

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// SearchSpace bounds the hyperparameter search.
type SearchSpace struct {
	TreesMin, TreesMax               int
	DepthMin, DepthMax               int
	LearningRateMin, LearningRateMax float64 // sampled log-uniform
	SubsampleMin, SubsampleMax       float64
	ColSampleMin, ColSampleMax       float64
}

// DefaultSearchSpace returns the standard search bounds.
func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		TreesMin: 50, TreesMax: 200,
		DepthMin: 3, DepthMax: 7,
		LearningRateMin: 0.01, LearningRateMax: 0.1,
		SubsampleMin: 0.6, SubsampleMax: 1.0,
		ColSampleMin: 0.6, ColSampleMax: 1.0,
	}
}

// draw samples one hyperparameter point from the space.
func (s SearchSpace) draw(rng *rand.Rand) Hyperparams {
	logLo, logHi := math.Log(s.LearningRateMin), math.Log(s.LearningRateMax)
	return Hyperparams{
		Trees:        s.TreesMin + rng.Intn(s.TreesMax-s.TreesMin+1),
		MaxDepth:     s.DepthMin + rng.Intn(s.DepthMax-s.DepthMin+1),
		LearningRate: math.Exp(logLo + rng.Float64()*(logHi-logLo)),
		Subsample:    s.SubsampleMin + rng.Float64()*(s.SubsampleMax-s.SubsampleMin),
		ColSample:    s.ColSampleMin + rng.Float64()*(s.ColSampleMax-s.ColSampleMin),
	}
}

type trial struct {
	index  int
	params Hyperparams
	seed   int64
	valMSE float64
}

// search runs a capped random search minimizing validation MSE.
//
// Every trial's hyperparameters and training seed are drawn up front from a
// single seeded source, so evaluating trials on a worker pool cannot
// perturb what gets explored. The winner is the lowest validation MSE,
// ties broken by lowest trial index, which makes the result independent of
// scheduling. Non-finite scores never win.
func search(ctx context.Context, xTrain [][]float64, yTrain []float64, xVal [][]float64, yVal []float64,
	space SearchSpace, trials int, seed int64, workers int) (trial, error) {

	rng := rand.New(rand.NewSource(seed))
	all := make([]trial, trials)
	for i := range all {
		all[i] = trial{
			index:  i,
			params: space.draw(rng),
			seed:   rng.Int63(),
			valMSE: math.Inf(1),
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := range all {
		tr := &all[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			model := trainBoost(xTrain, yTrain, tr.params, rand.New(rand.NewSource(tr.seed)))
			mse := meanSquaredError(yVal, model.PredictAll(xVal))
			if !math.IsNaN(mse) {
				tr.valMSE = mse
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return trial{}, err
	}

	best := all[0]
	for _, tr := range all[1:] {
		if tr.valMSE < best.valMSE {
			best = tr
		}
	}
	return best, nil
}

func meanSquaredError(want, got []float64) float64 {
	var sum float64
	for i := range want {
		d := want[i] - got[i]
		sum += d * d
	}
	return sum / float64(len(want))
}
