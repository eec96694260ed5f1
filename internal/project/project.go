// Package project embeds the standardized clustering features into two
// dimensions for the visualization layer.
package project

import (
	"fmt"

	"github.com/nozzle/umap"

	"mirrorball/internal/dataset"
)

// Config controls the UMAP embedding.
type Config struct {
	Neighbors int
	MinDist   float64
	Epochs    int
	Seed      int64
}

// DefaultConfig returns the standard embedding parameters.
func DefaultConfig() Config {
	return Config{
		Neighbors: 15,
		MinDist:   0.1,
		Epochs:    200,
		Seed:      42,
	}
}

// Run computes a seeded 2D UMAP embedding of the standardized feature
// matrix and writes the coordinates into a copy of the table. Coordinates
// have no absolute scale; only relative distances carry meaning. Every
// input row produces exactly one coordinate pair.
func Run(table dataset.Table, matrix [][]float64, cfg Config) (dataset.Table, error) {
	if len(matrix) != len(table) {
		return nil, fmt.Errorf("feature matrix has %d rows, table has %d", len(matrix), len(table))
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("empty table")
	}

	data := make([][]float32, len(matrix))
	for i, row := range matrix {
		data[i] = make([]float32, len(row))
		for j, v := range row {
			data[i][j] = float32(v)
		}
	}

	umapCfg := umap.DefaultConfig()
	umapCfg.NComponents = 2
	umapCfg.NNeighbors = cfg.Neighbors
	umapCfg.MinDist = float32(cfg.MinDist)
	umapCfg.NEpochs = cfg.Epochs
	umapCfg.Metric = "euclidean"
	umapCfg.Seed = cfg.Seed

	embedding := umap.New(umapCfg).FitTransform(data)
	if len(embedding) != len(table) {
		return nil, fmt.Errorf("embedding has %d rows, want %d", len(embedding), len(table))
	}

	out := table.Clone()
	for i := range out {
		out[i].ProjectionX = float64(embedding[i][0])
		out[i].ProjectionY = float64(embedding[i][1])
	}
	return out, nil
}
