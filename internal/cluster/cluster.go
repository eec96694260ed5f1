// Package cluster partitions the fully-reconstructed track table into a
// fixed number of archetypes using k-means over standardized features.
package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/muesli/clusters"

	"mirrorball/internal/dataset"
)

// FeatureNames is the ordered feature subset used for clustering,
// projection and attribution. Audio features come first.
var FeatureNames = []string{
	dataset.ColumnEnergy,
	dataset.ColumnValence,
	dataset.ColumnReadingGrade,
	dataset.ColumnSyllableDensity,
	dataset.ColumnLexicalDiversity,
	dataset.ColumnBridgeSentimentShift,
}

// AudioFeature reports whether a clustering feature is an audio feature.
// The remainder are linguistic.
func AudioFeature(name string) bool {
	return name == dataset.ColumnEnergy || name == dataset.ColumnValence
}

// Config controls the clustering stage.
type Config struct {
	K    int
	Seed int64
}

// DefaultConfig returns the standard five-cluster configuration.
func DefaultConfig() Config {
	return Config{K: 5, Seed: 42}
}

// ClusterCountError reports a K larger than the number of rows.
type ClusterCountError struct {
	K    int
	Rows int
}

func (e *ClusterCountError) Error() string {
	return fmt.Sprintf("cluster count %d exceeds row count %d", e.K, e.Rows)
}

// Result carries the cluster assignments together with the standardized
// feature space they were computed in, which the projector and explainer
// reuse.
type Result struct {
	Table     dataset.Table
	Matrix    [][]float64 // standardized features, row-aligned with Table
	Centroids [][]float64 // K centroids in the standardized space
}

// rowObservation wraps a table row index so cluster membership can be
// mapped back after partitioning.
type rowObservation struct {
	row    int
	coords clusters.Coordinates
}

func (o rowObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o rowObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// Run assigns every row a cluster id in [0,K) and the matching archetype
// label from the lookup. The lookup must cover K entries; cluster indices
// produced by the algorithm are arbitrary but stable under the seed, so
// the positional mapping is consistent across runs.
func Run(table dataset.Table, archetypes []Archetype, cfg Config) (*Result, error) {
	if cfg.K > len(table) {
		return nil, &ClusterCountError{K: cfg.K, Rows: len(table)}
	}
	if len(archetypes) < cfg.K {
		return nil, fmt.Errorf("archetype lookup has %d entries, need %d", len(archetypes), cfg.K)
	}

	matrix, err := Standardize(table)
	if err != nil {
		return nil, err
	}

	obs := make(clusters.Observations, len(matrix))
	for i, row := range matrix {
		obs[i] = rowObservation{row: i, coords: clusters.Coordinates(row)}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	partition, err := partitionSeeded(obs, cfg.K, rng)
	if err != nil {
		return nil, fmt.Errorf("partitioning %d rows into %d clusters: %w", len(table), cfg.K, err)
	}

	out := table.Clone()
	centroids := make([][]float64, len(partition))
	for id, c := range partition {
		centroids[id] = append([]float64(nil), c.Center...)
		for _, o := range c.Observations {
			ro, ok := o.(rowObservation)
			if !ok {
				continue
			}
			out[ro.row].ClusterID = id
			out[ro.row].ArchetypeLabel = archetypes[id].Name
		}
	}

	for i := range out {
		if out[i].ClusterID < 0 || out[i].ArchetypeLabel == "" {
			return nil, fmt.Errorf("track %s was not assigned a cluster", out[i].TrackID)
		}
	}

	return &Result{Table: out, Matrix: matrix, Centroids: centroids}, nil
}

// maxIterations bounds the Lloyd assignment loop.
const maxIterations = 100

// partitionSeeded runs Lloyd's k-means with centroids initialized on k
// distinct rows drawn from the provided source, so a fixed seed yields
// the same partition every run.
func partitionSeeded(obs clusters.Observations, k int, rng *rand.Rand) (clusters.Clusters, error) {
	if k <= 0 {
		return nil, fmt.Errorf("cluster count must be positive, got %d", k)
	}

	cc := make(clusters.Clusters, k)
	for i, p := range rng.Perm(len(obs))[:k] {
		cc[i].Center = append(clusters.Coordinates(nil), obs[p].Coordinates()...)
	}

	assigned := make([]int, len(obs))
	for i := range assigned {
		assigned[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		for i := range cc {
			cc[i].Observations = nil
		}

		changes := 0
		for i, o := range obs {
			ci := nearestCluster(cc, o)
			if assigned[i] != ci {
				changes++
				assigned[i] = ci
			}
			cc[ci].Observations = append(cc[ci].Observations, o)
		}

		// Reseed an emptied cluster on the point farthest from its
		// assigned centroid and let the next pass recheck membership.
		for i := range cc {
			if len(cc[i].Observations) > 0 {
				continue
			}
			far := farthestObservation(cc, obs, assigned)
			cc[i].Center = append(clusters.Coordinates(nil), obs[far].Coordinates()...)
			changes++
		}

		if changes == 0 {
			return cc, nil
		}
		for i := range cc {
			if len(cc[i].Observations) > 0 {
				recenter(&cc[i])
			}
		}
	}
	return cc, nil
}

// nearestCluster returns the index of the closest centroid, preferring
// the lowest index on exact ties.
func nearestCluster(cc clusters.Clusters, o clusters.Observation) int {
	best := 0
	bestDist := o.Distance(cc[0].Center)
	for i := 1; i < len(cc); i++ {
		if d := o.Distance(cc[i].Center); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func farthestObservation(cc clusters.Clusters, obs clusters.Observations, assigned []int) int {
	far, farDist := 0, -1.0
	for i, o := range obs {
		if d := o.Distance(cc[assigned[i]].Center); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func recenter(c *clusters.Cluster) {
	center := make(clusters.Coordinates, len(c.Center))
	for _, o := range c.Observations {
		for j, v := range o.Coordinates() {
			center[j] += v
		}
	}
	n := float64(len(c.Observations))
	for j := range center {
		center[j] /= n
	}
	c.Center = center
}

// Standardize extracts the clustering features and scales each to zero
// mean and unit variance over the full table. Every row must carry both
// audio features; a row left absent by a failed reconstruction is reported
// as a missing required column.
func Standardize(table dataset.Table) ([][]float64, error) {
	matrix := make([][]float64, len(table))
	for i := range table {
		t := &table[i]
		if t.Energy == nil {
			return nil, &dataset.SchemaError{TrackID: t.TrackID, Column: dataset.ColumnEnergy, Reason: "required column absent; reconstruction did not run"}
		}
		if t.Valence == nil {
			return nil, &dataset.SchemaError{TrackID: t.TrackID, Column: dataset.ColumnValence, Reason: "required column absent; reconstruction did not run"}
		}
		matrix[i] = []float64{
			*t.Energy,
			*t.Valence,
			t.ReadingGrade,
			t.SyllableDensity,
			t.LexicalDiversity,
			t.BridgeSentimentShift,
		}
	}

	for f := range FeatureNames {
		mean, std := columnMeanStd(matrix, f)
		if std == 0 {
			std = 1
		}
		for i := range matrix {
			matrix[i][f] = (matrix[i][f] - mean) / std
		}
	}
	return matrix, nil
}

func columnMeanStd(matrix [][]float64, col int) (mean, std float64) {
	n := float64(len(matrix))
	for _, row := range matrix {
		mean += row[col]
	}
	mean /= n

	var sq float64
	for _, row := range matrix {
		d := row[col] - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}
