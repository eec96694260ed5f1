package project

import (
	"fmt"
	"math/rand"
	"testing"

	"mirrorball/internal/dataset"
)

func testMatrix(n, features int, seed int64) (dataset.Table, [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	table := make(dataset.Table, n)
	matrix := make([][]float64, n)
	for i := 0; i < n; i++ {
		table[i] = dataset.Track{TrackID: fmt.Sprintf("track-%03d", i)}
		matrix[i] = make([]float64, features)
		for j := range matrix[i] {
			matrix[i][j] = rng.NormFloat64()
		}
	}
	return table, matrix
}

func TestRunPreservesRowCount(t *testing.T) {
	table, matrix := testMatrix(60, 6, 2)

	out, err := Run(table, matrix, DefaultConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 60 {
		t.Fatalf("got %d rows, want 60", len(out))
	}
	for i := range out {
		if out[i].TrackID != table[i].TrackID {
			t.Errorf("row %d: track order changed", i)
		}
	}
}

func TestRunDeterminism(t *testing.T) {
	table, matrix := testMatrix(40, 6, 9)

	first, err := Run(table, matrix, DefaultConfig())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := Run(table, matrix, DefaultConfig())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	for i := range first {
		if first[i].ProjectionX != second[i].ProjectionX || first[i].ProjectionY != second[i].ProjectionY {
			t.Errorf("track %s: embedding differs between runs", first[i].TrackID)
		}
	}
}

func TestRunRowMismatch(t *testing.T) {
	table, matrix := testMatrix(10, 6, 1)

	if _, err := Run(table, matrix[:9], DefaultConfig()); err == nil {
		t.Fatal("expected error for row count mismatch")
	}
}

func TestRunEmptyTable(t *testing.T) {
	if _, err := Run(dataset.Table{}, nil, DefaultConfig()); err == nil {
		t.Fatal("expected error for empty table")
	}
}
