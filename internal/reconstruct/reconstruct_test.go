package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"mirrorball/internal/dataset"
)

// synthTable builds a table whose valence is a noisy function of the
// stylometric predictors for labeled rows, and absent for the rest.
func synthTable(labeled, unlabeled int, seed int64) dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	table := make(dataset.Table, 0, labeled+unlabeled)
	for i := 0; i < labeled+unlabeled; i++ {
		t := dataset.Track{
			TrackID:              fmt.Sprintf("track-%03d", i),
			ReadingGrade:         2 + rng.Float64()*8,
			SyllableDensity:      1 + rng.Float64(),
			LexicalDiversity:     rng.Float64(),
			DifficultRatio:       rng.Float64() * 0.4,
			BridgeSentimentShift: rng.Float64()*2 - 1,
			ClusterID:            -1,
		}
		if i < labeled {
			valence := 0.3 + 0.05*t.ReadingGrade + 0.2*t.LexicalDiversity + rng.NormFloat64()*0.05
			energy := 0.5 + 0.1*t.BridgeSentimentShift + rng.NormFloat64()*0.05
			t.Valence = &valence
			t.Energy = &energy
		}
		table = append(table, t)
	}
	return table
}

func TestRunFillsUnlabeledRows(t *testing.T) {
	table := synthTable(50, 10, 7)

	cfg := DefaultConfig(dataset.ColumnValence)
	cfg.Trials = 5

	out, metrics, err := Run(context.Background(), table, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(out) != 60 {
		t.Fatalf("got %d rows, want 60", len(out))
	}

	var reconstructed int
	for i := range out {
		if out[i].Valence == nil {
			t.Fatalf("track %s: valence still absent", out[i].TrackID)
		}
		if out[i].ValenceReconstructed {
			reconstructed++
			if table[i].Valence != nil {
				t.Errorf("track %s: labeled row flagged as reconstructed", out[i].TrackID)
			}
		}
	}
	if reconstructed != 10 {
		t.Errorf("got %d reconstructed rows, want 10", reconstructed)
	}

	if metrics.Labeled != 50 || metrics.Reconstructed != 10 {
		t.Errorf("metrics counts = %d/%d, want 50/10", metrics.Labeled, metrics.Reconstructed)
	}
	for name, v := range map[string]float64{
		"RMSE": metrics.RMSE, "MAE": metrics.MAE, "R2": metrics.R2, "ValidationMSE": metrics.ValidationMSE,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	table := synthTable(30, 5, 3)

	cfg := DefaultConfig(dataset.ColumnEnergy)
	cfg.Trials = 3

	if _, _, err := Run(context.Background(), table, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := range table {
		if i >= 30 && table[i].Energy != nil {
			t.Fatalf("input table was mutated: track %s gained energy", table[i].TrackID)
		}
		if table[i].EnergyReconstructed {
			t.Fatalf("input table was mutated: track %s flagged", table[i].TrackID)
		}
	}
}

func TestRunDeterminism(t *testing.T) {
	table := synthTable(40, 8, 11)

	cfg := DefaultConfig(dataset.ColumnValence)
	cfg.Trials = 5
	cfg.Workers = 4 // parallel trials must not change the outcome

	first, m1, err := Run(context.Background(), table, cfg)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, m2, err := Run(context.Background(), table, cfg)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if m1.Best != m2.Best || m1.BestTrial != m2.BestTrial {
		t.Errorf("best trial differs between runs: %+v vs %+v", m1, m2)
	}
	for i := range first {
		if *first[i].Valence != *second[i].Valence {
			t.Errorf("track %s: predictions differ: %v vs %v",
				first[i].TrackID, *first[i].Valence, *second[i].Valence)
		}
	}
}

func TestRunInsufficientData(t *testing.T) {
	table := synthTable(10, 5, 1)

	_, _, err := Run(context.Background(), table, DefaultConfig(dataset.ColumnValence))
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientDataError", err)
	}
	if insufficient.Labeled != 10 {
		t.Errorf("Labeled = %d, want 10", insufficient.Labeled)
	}
}

func TestRunDegenerateTarget(t *testing.T) {
	table := synthTable(30, 5, 1)
	for i := 0; i < 30; i++ {
		v := 0.5
		table[i].Valence = &v
	}

	_, _, err := Run(context.Background(), table, DefaultConfig(dataset.ColumnValence))
	var degenerate *DegenerateTargetError
	if !errors.As(err, &degenerate) {
		t.Fatalf("got %v, want DegenerateTargetError", err)
	}
}

func TestBoostFitsTrainingData(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 200
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		a, b := rng.Float64(), rng.Float64()
		x[i] = []float64{a, b}
		y[i] = 2*a - b
	}

	hp := Hyperparams{Trees: 100, MaxDepth: 4, LearningRate: 0.1, Subsample: 1.0, ColSample: 1.0}
	model := trainBoost(x, y, hp, rand.New(rand.NewSource(1)))

	baseline := meanSquaredError(y, constant(meanAll(y), n))
	fitted := meanSquaredError(y, model.PredictAll(x))
	if fitted >= baseline/4 {
		t.Errorf("boosting barely improved on the mean: baseline=%v fitted=%v", baseline, fitted)
	}
}

func TestTreePredictsStepFunction(t *testing.T) {
	x := [][]float64{{0.1}, {0.2}, {0.3}, {0.7}, {0.8}, {0.9}}
	y := []float64{1, 1, 1, 5, 5, 5}
	rows := []int{0, 1, 2, 3, 4, 5}

	tree := fitTree(x, y, rows, []int{0}, 3)

	if got := tree.predict([]float64{0.15}); got != 1 {
		t.Errorf("predict(0.15) = %v, want 1", got)
	}
	if got := tree.predict([]float64{0.85}); got != 5 {
		t.Errorf("predict(0.85) = %v, want 5", got)
	}
}

func TestSearchSpaceBounds(t *testing.T) {
	space := DefaultSearchSpace()
	rng := rand.New(rand.NewSource(9))

	for i := 0; i < 100; i++ {
		hp := space.draw(rng)
		if hp.Trees < space.TreesMin || hp.Trees > space.TreesMax {
			t.Fatalf("trees %d out of bounds", hp.Trees)
		}
		if hp.MaxDepth < space.DepthMin || hp.MaxDepth > space.DepthMax {
			t.Fatalf("depth %d out of bounds", hp.MaxDepth)
		}
		if hp.LearningRate < space.LearningRateMin || hp.LearningRate > space.LearningRateMax {
			t.Fatalf("learning rate %v out of bounds", hp.LearningRate)
		}
		if hp.Subsample < space.SubsampleMin || hp.Subsample > space.SubsampleMax {
			t.Fatalf("subsample %v out of bounds", hp.Subsample)
		}
		if hp.ColSample < space.ColSampleMin || hp.ColSample > space.ColSampleMax {
			t.Fatalf("colsample %v out of bounds", hp.ColSample)
		}
	}
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func meanAll(y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}
