// Package reconstruct imputes missing audio features by training a
// gradient-boosted tree regressor on the tracks that have them and
// predicting the tracks that don't.
package reconstruct

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"gonum.org/v1/gonum/stat"

	"mirrorball/internal/dataset"
)

// InsufficientDataError reports too few labeled rows to train on a target.
type InsufficientDataError struct {
	Target  string
	Labeled int
	Min     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d labeled rows, need at least %d", e.Target, e.Labeled, e.Min)
}

// DegenerateTargetError reports a labeled target column with zero variance,
// which leaves R² undefined.
type DegenerateTargetError struct {
	Target string
}

func (e *DegenerateTargetError) Error() string {
	return fmt.Sprintf("degenerate target %s: labeled values have zero variance", e.Target)
}

// Config controls one target's reconstruction.
type Config struct {
	Target       string // dataset.ColumnEnergy or dataset.ColumnValence
	Seed         int64
	Trials       int
	TestFraction float64
	MinLabeled   int
	Space        SearchSpace
	Workers      int // parallel search trials; <=0 means GOMAXPROCS
}

// DefaultConfig returns the standard configuration for a target.
func DefaultConfig(target string) Config {
	return Config{
		Target:       target,
		Seed:         42,
		Trials:       30,
		TestFraction: 0.2,
		MinLabeled:   20,
		Space:        DefaultSearchSpace(),
	}
}

// Metrics is the per-target run report.
type Metrics struct {
	Target        string
	Labeled       int
	Reconstructed int
	BestTrial     int
	Best          Hyperparams
	ValidationMSE float64
	RMSE          float64
	MAE           float64
	R2            float64
}

// predictorNames are the stylometric columns used to predict audio targets.
var predictorNames = []string{
	dataset.ColumnReadingGrade,
	dataset.ColumnSyllableDensity,
	dataset.ColumnLexicalDiversity,
	dataset.ColumnDifficultRatio,
	dataset.ColumnBridgeSentimentShift,
}

func predictors(t *dataset.Track) []float64 {
	return []float64{
		t.ReadingGrade,
		t.SyllableDensity,
		t.LexicalDiversity,
		t.DifficultRatio,
		t.BridgeSentimentShift,
	}
}

// Run reconstructs one audio target. It returns a new table in which every
// row has the target present, with the provenance flag set on rows that
// were imputed rather than observed. The input table is not modified.
func Run(ctx context.Context, table dataset.Table, cfg Config) (dataset.Table, *Metrics, error) {
	labeled, unlabeled := table.Split(cfg.Target)
	if len(labeled) < cfg.MinLabeled {
		return nil, nil, &InsufficientDataError{Target: cfg.Target, Labeled: len(labeled), Min: cfg.MinLabeled}
	}

	y := make([]float64, len(labeled))
	x := make([][]float64, len(labeled))
	for i, row := range labeled {
		x[i] = predictors(&table[row])
		y[i] = targetValue(&table[row], cfg.Target)
	}
	if stat.Variance(y, nil) == 0 {
		return nil, nil, &DegenerateTargetError{Target: cfg.Target}
	}

	// Deterministic train/test partition of the labeled rows.
	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(len(labeled))
	testN := int(math.Round(cfg.TestFraction * float64(len(labeled))))
	if testN < 1 {
		testN = 1
	}
	testIdx, trainIdx := perm[:testN], perm[testN:]

	xTrain, yTrain := gather(x, y, trainIdx)
	xTest, yTest := gather(x, y, testIdx)

	// Carve a validation fold out of the training portion for tuning.
	valN := int(math.Round(cfg.TestFraction * float64(len(trainIdx))))
	if valN < 1 {
		valN = 1
	}
	xFit, yFit := xTrain[valN:], yTrain[valN:]
	xVal, yVal := xTrain[:valN], yTrain[:valN]

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	best, err := search(ctx, xFit, yFit, xVal, yVal, cfg.Space, cfg.Trials, rng.Int63(), workers)
	if err != nil {
		return nil, nil, fmt.Errorf("hyperparameter search for %s: %w", cfg.Target, err)
	}

	// Final model on the full training portion, scored once on the
	// untouched test fold. Low R² is reported, not treated as failure.
	model := trainBoost(xTrain, yTrain, best.params, rand.New(rand.NewSource(best.seed)))
	testPred := model.PredictAll(xTest)

	metrics := &Metrics{
		Target:        cfg.Target,
		Labeled:       len(labeled),
		Reconstructed: len(unlabeled),
		BestTrial:     best.index,
		Best:          best.params,
		ValidationMSE: best.valMSE,
		RMSE:          math.Sqrt(meanSquaredError(yTest, testPred)),
		MAE:           meanAbsoluteError(yTest, testPred),
		R2:            stat.RSquaredFrom(testPred, yTest, nil),
	}

	out := table.Clone()
	for _, row := range unlabeled {
		v := model.Predict(predictors(&out[row]))
		setTarget(&out[row], cfg.Target, v, true)
	}
	return out, metrics, nil
}

func targetValue(t *dataset.Track, target string) float64 {
	switch target {
	case dataset.ColumnEnergy:
		return *t.Energy
	case dataset.ColumnValence:
		return *t.Valence
	}
	panic("unknown target " + target)
}

func setTarget(t *dataset.Track, target string, v float64, reconstructed bool) {
	switch target {
	case dataset.ColumnEnergy:
		t.Energy = &v
		t.EnergyReconstructed = reconstructed
	case dataset.ColumnValence:
		t.Valence = &v
		t.ValenceReconstructed = reconstructed
	default:
		panic("unknown target " + target)
	}
}

func gather(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	gx := make([][]float64, len(idx))
	gy := make([]float64, len(idx))
	for i, j := range idx {
		gx[i] = x[j]
		gy[i] = y[j]
	}
	return gx, gy
}

func meanAbsoluteError(want, got []float64) float64 {
	var sum float64
	for i := range want {
		sum += math.Abs(want[i] - got[i])
	}
	return sum / float64(len(want))
}
