package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS lyric_tracks (
	track_id   TEXT PRIMARY KEY,
	track_name TEXT NOT NULL,
	album      TEXT NOT NULL,
	era_order  INT  NOT NULL
);

CREATE TABLE IF NOT EXISTS stylometric_features (
	track_id          TEXT PRIMARY KEY REFERENCES lyric_tracks (track_id),
	reading_grade     DOUBLE PRECISION NOT NULL,
	syllable_density  DOUBLE PRECISION NOT NULL,
	lexical_diversity DOUBLE PRECISION NOT NULL,
	difficult_ratio   DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS bridge_features (
	track_id        TEXT PRIMARY KEY REFERENCES lyric_tracks (track_id),
	word_count      INT NOT NULL,
	sentiment_shift DOUBLE PRECISION NOT NULL,
	chorus_contrast DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS audio_features (
	track_id TEXT PRIMARY KEY,
	energy   DOUBLE PRECISION NOT NULL,
	valence  DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS analyzed_tracks (
	track_id               TEXT PRIMARY KEY,
	run_id                 TEXT NOT NULL,
	track_name             TEXT NOT NULL,
	album                  TEXT NOT NULL,
	era_order              INT NOT NULL,
	reading_grade          DOUBLE PRECISION NOT NULL,
	syllable_density       DOUBLE PRECISION NOT NULL,
	lexical_diversity      DOUBLE PRECISION NOT NULL,
	difficult_ratio        DOUBLE PRECISION NOT NULL,
	has_bridge             BOOLEAN NOT NULL,
	bridge_word_count      INT NOT NULL,
	bridge_sentiment_shift DOUBLE PRECISION NOT NULL,
	bridge_chorus_contrast DOUBLE PRECISION NOT NULL,
	energy                 DOUBLE PRECISION,
	valence                DOUBLE PRECISION,
	energy_reconstructed   BOOLEAN NOT NULL,
	valence_reconstructed  BOOLEAN NOT NULL,
	cluster_id             INT NOT NULL,
	archetype_label        TEXT NOT NULL,
	projection_x           DOUBLE PRECISION NOT NULL,
	projection_y           DOUBLE PRECISION NOT NULL,
	top_driver             TEXT NOT NULL
);
`

// EnsureSchema creates the tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
