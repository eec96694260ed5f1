package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mirrorball/internal/dataset"
)

// FeatureRepository reads and writes the upstream feature tables:
// lyric_tracks, stylometric_features, bridge_features and audio_features.
type FeatureRepository struct {
	pool *pgxpool.Pool
}

// LoadSources reads all four feature tables for unification.
func (r *FeatureRepository) LoadSources(ctx context.Context) (dataset.Sources, error) {
	var src dataset.Sources
	var err error

	if src.Lyrics, err = r.lyrics(ctx); err != nil {
		return src, err
	}
	if src.Stylometry, err = r.stylometry(ctx); err != nil {
		return src, err
	}
	if src.Bridges, err = r.bridges(ctx); err != nil {
		return src, err
	}
	if src.Audio, err = r.audio(ctx); err != nil {
		return src, err
	}
	return src, nil
}

func (r *FeatureRepository) lyrics(ctx context.Context) ([]dataset.LyricRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT track_id, track_name, album, era_order
		FROM lyric_tracks
		ORDER BY era_order, track_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying lyric tracks: %w", err)
	}
	defer rows.Close()

	var records []dataset.LyricRecord
	for rows.Next() {
		var rec dataset.LyricRecord
		if err := rows.Scan(&rec.TrackID, &rec.TrackName, &rec.Album, &rec.EraOrder); err != nil {
			return nil, fmt.Errorf("scanning lyric track: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *FeatureRepository) stylometry(ctx context.Context) ([]dataset.StylometricRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT track_id, reading_grade, syllable_density, lexical_diversity, difficult_ratio
		FROM stylometric_features
	`)
	if err != nil {
		return nil, fmt.Errorf("querying stylometric features: %w", err)
	}
	defer rows.Close()

	var records []dataset.StylometricRecord
	for rows.Next() {
		var rec dataset.StylometricRecord
		if err := rows.Scan(&rec.TrackID, &rec.ReadingGrade, &rec.SyllableDensity,
			&rec.LexicalDiversity, &rec.DifficultRatio); err != nil {
			return nil, fmt.Errorf("scanning stylometric features: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *FeatureRepository) bridges(ctx context.Context) ([]dataset.BridgeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT track_id, word_count, sentiment_shift, chorus_contrast
		FROM bridge_features
	`)
	if err != nil {
		return nil, fmt.Errorf("querying bridge features: %w", err)
	}
	defer rows.Close()

	var records []dataset.BridgeRecord
	for rows.Next() {
		var rec dataset.BridgeRecord
		if err := rows.Scan(&rec.TrackID, &rec.WordCount, &rec.SentimentShift, &rec.ChorusContrast); err != nil {
			return nil, fmt.Errorf("scanning bridge features: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *FeatureRepository) audio(ctx context.Context) ([]dataset.AudioRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT track_id, energy, valence
		FROM audio_features
	`)
	if err != nil {
		return nil, fmt.Errorf("querying audio features: %w", err)
	}
	defer rows.Close()

	var records []dataset.AudioRecord
	for rows.Next() {
		var rec dataset.AudioRecord
		if err := rows.Scan(&rec.TrackID, &rec.Energy, &rec.Valence); err != nil {
			return nil, fmt.Errorf("scanning audio features: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertAudioBatch inserts or updates observed audio features. Both energy
// and valence are always written together, preserving the both-or-neither
// invariant of the audio table.
func (r *FeatureRepository) UpsertAudioBatch(ctx context.Context, records []dataset.AudioRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO audio_features (track_id, energy, valence)
		SELECT * FROM unnest($1::text[], $2::float8[], $3::float8[])
		ON CONFLICT (track_id) DO UPDATE SET
			energy = EXCLUDED.energy,
			valence = EXCLUDED.valence
	`

	ids := make([]string, len(records))
	energies := make([]float64, len(records))
	valences := make([]float64, len(records))
	for i, rec := range records {
		ids[i] = rec.TrackID
		energies[i] = rec.Energy
		valences[i] = rec.Valence
	}

	if _, err := r.pool.Exec(ctx, query, ids, energies, valences); err != nil {
		return fmt.Errorf("batch upserting audio features: %w", err)
	}
	return nil
}
