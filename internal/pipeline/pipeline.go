// Package pipeline runs the full analysis: unify the feature tables,
// reconstruct missing audio features, cluster into archetypes, project to
// 2D and attribute cluster assignments.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mirrorball/internal/cluster"
	"mirrorball/internal/dataset"
	"mirrorball/internal/explain"
	"mirrorball/internal/project"
	"mirrorball/internal/reconstruct"
)

// Pipeline holds the configuration shared by all stages.
type Pipeline struct {
	seed       int64
	trials     int
	k          int
	tolerance  float64
	archetypes []cluster.Archetype
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSeed sets the random seed used by every seeded stage.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) { p.seed = seed }
}

// WithTrials sets the hyperparameter search budget per target.
func WithTrials(trials int) Option {
	return func(p *Pipeline) { p.trials = trials }
}

// WithClusterCount sets K.
func WithClusterCount(k int) Option {
	return func(p *Pipeline) { p.k = k }
}

// WithTolerance sets the attribution tie-break tolerance.
func WithTolerance(tolerance float64) Option {
	return func(p *Pipeline) { p.tolerance = tolerance }
}

// WithArchetypes replaces the cluster-index-to-name lookup.
func WithArchetypes(archetypes []cluster.Archetype) Option {
	return func(p *Pipeline) { p.archetypes = archetypes }
}

// New creates a pipeline with default stage configuration.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		seed:       42,
		trials:     30,
		k:          5,
		tolerance:  explain.DefaultTolerance,
		archetypes: cluster.DefaultArchetypes(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TargetReport is the outcome of one audio target's reconstruction.
// Exactly one of Metrics and Err is set.
type TargetReport struct {
	Metrics *reconstruct.Metrics
	Err     error
}

// Report summarizes a pipeline run.
type Report struct {
	RunID     string
	Rows      int
	Energy    TargetReport
	Valence   TargetReport
	StartedAt time.Time
	Duration  time.Duration
}

// Run executes all stages and returns the fully-annotated table.
//
// The two reconstruction targets run concurrently against the read-only
// unified table and fail independently: a failed target leaves its column
// absent and is recorded in the report, and the clustering stage then
// reports the missing column instead of silently substituting a default.
func (p *Pipeline) Run(ctx context.Context, src dataset.Sources) (dataset.Table, *Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	unified, err := dataset.Unify(src)
	if err != nil {
		return nil, report, fmt.Errorf("unifying source tables: %w", err)
	}
	report.Rows = len(unified)

	energyTable, valenceTable := p.reconstructBoth(ctx, unified, report)

	merged := mergeTargets(unified, energyTable, valenceTable)

	clustered, err := cluster.Run(merged, p.archetypes, cluster.Config{K: p.k, Seed: p.seed})
	if err != nil {
		return merged, report, fmt.Errorf("clustering: %w", err)
	}

	projCfg := project.DefaultConfig()
	projCfg.Seed = p.seed
	projected, err := project.Run(clustered.Table, clustered.Matrix, projCfg)
	if err != nil {
		return clustered.Table, report, fmt.Errorf("projecting: %w", err)
	}

	explained, err := explain.Run(projected, clustered.Matrix, clustered.Centroids, explain.Config{Tolerance: p.tolerance})
	if err != nil {
		return projected, report, fmt.Errorf("attributing clusters: %w", err)
	}

	return explained, report, nil
}

// reconstructBoth trains the two targets concurrently. The unified table is
// read-only during this stage, so the goroutines need no coordination
// beyond waiting for both results.
func (p *Pipeline) reconstructBoth(ctx context.Context, unified dataset.Table, report *Report) (energyTable, valenceTable dataset.Table) {
	run := func(target string) (dataset.Table, *reconstruct.Metrics, error) {
		cfg := reconstruct.DefaultConfig(target)
		cfg.Seed = p.seed
		cfg.Trials = p.trials
		return reconstruct.Run(ctx, unified, cfg)
	}

	var g errgroup.Group
	g.Go(func() error {
		table, metrics, err := run(dataset.ColumnEnergy)
		energyTable = table
		report.Energy = TargetReport{Metrics: metrics, Err: err}
		return nil
	})
	g.Go(func() error {
		table, metrics, err := run(dataset.ColumnValence)
		valenceTable = table
		report.Valence = TargetReport{Metrics: metrics, Err: err}
		return nil
	})
	// Both goroutines return nil; target failures travel in the report.
	_ = g.Wait()
	return energyTable, valenceTable
}

// mergeTargets combines the per-target outputs into one table. Each
// reconstruction only touched its own column, so the merge copies the
// energy column from the energy run and the valence column from the
// valence run. A failed target contributes nothing and its column keeps
// the original (possibly absent) values.
func mergeTargets(unified, energyTable, valenceTable dataset.Table) dataset.Table {
	merged := unified.Clone()
	if energyTable != nil {
		for i := range merged {
			merged[i].Energy = energyTable[i].Energy
			merged[i].EnergyReconstructed = energyTable[i].EnergyReconstructed
		}
	}
	if valenceTable != nil {
		for i := range merged {
			merged[i].Valence = valenceTable[i].Valence
			merged[i].ValenceReconstructed = valenceTable[i].ValenceReconstructed
		}
	}
	return merged
}
