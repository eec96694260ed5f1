package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mirrorball/internal/dataset"
)

// AnalyzedRepository stores the pipeline's output table.
type AnalyzedRepository struct {
	pool *pgxpool.Pool
}

// Replace swaps the analyzed table for a new run's output inside one
// transaction, so readers never see a partially-written table.
func (r *AnalyzedRepository) Replace(ctx context.Context, runID string, table dataset.Table) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM analyzed_tracks`); err != nil {
		return fmt.Errorf("clearing analyzed tracks: %w", err)
	}

	query := `
		INSERT INTO analyzed_tracks (
			run_id, track_id, track_name, album, era_order,
			reading_grade, syllable_density, lexical_diversity, difficult_ratio,
			has_bridge, bridge_word_count, bridge_sentiment_shift, bridge_chorus_contrast,
			energy, valence, energy_reconstructed, valence_reconstructed,
			cluster_id, archetype_label, projection_x, projection_y, top_driver
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	batch := &pgx.Batch{}
	for i := range table {
		t := &table[i]
		batch.Queue(query,
			runID, t.TrackID, t.TrackName, t.Album, t.EraOrder,
			t.ReadingGrade, t.SyllableDensity, t.LexicalDiversity, t.DifficultRatio,
			t.HasBridge, t.BridgeWordCount, t.BridgeSentimentShift, t.BridgeChorusContrast,
			t.Energy, t.Valence, t.EnergyReconstructed, t.ValenceReconstructed,
			t.ClusterID, t.ArchetypeLabel, t.ProjectionX, t.ProjectionY, t.TopDriver,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting analyzed tracks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing analyzed tracks: %w", err)
	}
	return nil
}

// List returns the analyzed table ordered by era and track id.
func (r *AnalyzedRepository) List(ctx context.Context) (dataset.Table, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT track_id, track_name, album, era_order,
			reading_grade, syllable_density, lexical_diversity, difficult_ratio,
			has_bridge, bridge_word_count, bridge_sentiment_shift, bridge_chorus_contrast,
			energy, valence, energy_reconstructed, valence_reconstructed,
			cluster_id, archetype_label, projection_x, projection_y, top_driver
		FROM analyzed_tracks
		ORDER BY era_order, track_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying analyzed tracks: %w", err)
	}
	defer rows.Close()

	var table dataset.Table
	for rows.Next() {
		var t dataset.Track
		if err := rows.Scan(
			&t.TrackID, &t.TrackName, &t.Album, &t.EraOrder,
			&t.ReadingGrade, &t.SyllableDensity, &t.LexicalDiversity, &t.DifficultRatio,
			&t.HasBridge, &t.BridgeWordCount, &t.BridgeSentimentShift, &t.BridgeChorusContrast,
			&t.Energy, &t.Valence, &t.EnergyReconstructed, &t.ValenceReconstructed,
			&t.ClusterID, &t.ArchetypeLabel, &t.ProjectionX, &t.ProjectionY, &t.TopDriver,
		); err != nil {
			return nil, fmt.Errorf("scanning analyzed track: %w", err)
		}
		table = append(table, t)
	}
	return table, rows.Err()
}
