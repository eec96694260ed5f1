// Package explain attributes each track's cluster assignment to the single
// input feature that drove it.
package explain

import (
	"fmt"
	"math"

	"mirrorball/internal/cluster"
	"mirrorball/internal/dataset"
)

// DefaultTolerance is the margin (in squared standardized-distance units)
// within which an audio feature's contribution is considered comparable to
// a linguistic one. Reconstructed audio values carry low confidence, so
// comparable impact resolves to the linguistic feature.
const DefaultTolerance = 0.10

// Config controls attribution.
type Config struct {
	Tolerance float64
}

// DefaultConfig returns the standard attribution configuration.
func DefaultConfig() Config {
	return Config{Tolerance: DefaultTolerance}
}

// AttributionError reports a row whose feature contributions could not be
// computed. Upstream invariants should make this impossible, so any
// occurrence is a bug rather than a data condition.
type AttributionError struct {
	TrackID string
	Feature string
	Reason  string
}

func (e *AttributionError) Error() string {
	return fmt.Sprintf("attribution failed for track %q (feature %q): %s", e.TrackID, e.Feature, e.Reason)
}

// Run computes per-feature contributions to each row's cluster assignment
// and records the top driver in a copy of the table.
//
// The contribution of feature j is the additive decomposition of the
// assignment margin against the runner-up centroid:
//
//	contrib[j] = (x[j]-runnerUp[j])² - (x[j]-assigned[j])²
//
// Contributions sum exactly to the margin between the runner-up and
// assigned squared distances, and a large positive value marks a feature
// that pulled the row strongly toward its cluster.
func Run(table dataset.Table, matrix [][]float64, centroids [][]float64, cfg Config) (dataset.Table, error) {
	if len(matrix) != len(table) {
		return nil, fmt.Errorf("feature matrix has %d rows, table has %d", len(matrix), len(table))
	}

	out := table.Clone()
	for i := range out {
		contrib, err := Contributions(&out[i], matrix[i], centroids)
		if err != nil {
			return nil, err
		}
		out[i].TopDriver = TopDriver(contrib, cfg.Tolerance)
	}
	return out, nil
}

// Contributions returns the per-feature contribution vector for one row,
// ordered as cluster.FeatureNames.
func Contributions(t *dataset.Track, row []float64, centroids [][]float64) ([]float64, error) {
	if t.ClusterID < 0 || t.ClusterID >= len(centroids) {
		return nil, &AttributionError{TrackID: t.TrackID, Reason: fmt.Sprintf("cluster id %d out of range", t.ClusterID)}
	}
	assigned := centroids[t.ClusterID]
	if len(row) != len(assigned) {
		return nil, &AttributionError{TrackID: t.TrackID, Reason: "feature vector and centroid dimensions differ"}
	}

	runnerUp := nearestOther(row, centroids, t.ClusterID)

	contrib := make([]float64, len(row))
	for j := range row {
		if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
			return nil, &AttributionError{TrackID: t.TrackID, Feature: cluster.FeatureNames[j], Reason: "feature value is not finite"}
		}
		da := row[j] - assigned[j]
		if runnerUp == nil {
			// Single-cluster degenerate case: fall back to the
			// distance decomposition itself.
			contrib[j] = -da * da
			continue
		}
		dr := row[j] - runnerUp[j]
		contrib[j] = dr*dr - da*da
	}
	return contrib, nil
}

// TopDriver selects the feature name with the largest-magnitude
// contribution, preferring linguistic features over audio features when
// their impacts are within the tolerance. The preference is deliberate:
// audio features are partly model-reconstructed and should not win a
// near-tie against directly observed linguistic evidence.
func TopDriver(contrib []float64, tolerance float64) string {
	bestAudio, bestLinguistic := -1, -1
	for j := range contrib {
		mag := math.Abs(contrib[j])
		if cluster.AudioFeature(cluster.FeatureNames[j]) {
			if bestAudio < 0 || mag > math.Abs(contrib[bestAudio]) {
				bestAudio = j
			}
		} else {
			if bestLinguistic < 0 || mag > math.Abs(contrib[bestLinguistic]) {
				bestLinguistic = j
			}
		}
	}

	switch {
	case bestAudio < 0:
		return cluster.FeatureNames[bestLinguistic]
	case bestLinguistic < 0:
		return cluster.FeatureNames[bestAudio]
	}

	audioMag := math.Abs(contrib[bestAudio])
	linguisticMag := math.Abs(contrib[bestLinguistic])
	if audioMag > linguisticMag+tolerance {
		return cluster.FeatureNames[bestAudio]
	}
	return cluster.FeatureNames[bestLinguistic]
}

// nearestOther returns the closest centroid that is not the assigned one,
// ties broken by lowest index. Returns nil when no other centroid exists.
func nearestOther(row []float64, centroids [][]float64, assigned int) []float64 {
	best := -1
	bestDist := math.Inf(1)
	for id, c := range centroids {
		if id == assigned {
			continue
		}
		var dist float64
		for j := range row {
			d := row[j] - c[j]
			dist += d * d
		}
		if dist < bestDist {
			bestDist = dist
			best = id
		}
	}
	if best < 0 {
		return nil
	}
	return centroids[best]
}
