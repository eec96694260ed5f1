package dataset

import (
	"math"
	"sort"
)

// LyricRecord is one row of the lyric table. Lyrics define the universe of
// tracks: every unified row starts from exactly one lyric record.
type LyricRecord struct {
	TrackID   string
	TrackName string
	Album     string
	EraOrder  int
}

// StylometricRecord holds the lexical-sophistication features for a track.
type StylometricRecord struct {
	TrackID          string
	ReadingGrade     float64
	SyllableDensity  float64
	LexicalDiversity float64
	DifficultRatio   float64
}

// BridgeRecord holds the bridge-impact features for a track. Tracks without
// a bridge have no record; their features default to zero.
type BridgeRecord struct {
	TrackID        string
	WordCount      int
	SentimentShift float64
	ChorusContrast float64
}

// AudioRecord holds observed audio features for a track. Both values are
// always present in a record; sparse coverage means missing records, never
// half-filled ones.
type AudioRecord struct {
	TrackID string
	Energy  float64
	Valence float64
}

// Sources bundles the upstream feature-family tables consumed by Unify.
type Sources struct {
	Lyrics     []LyricRecord
	Stylometry []StylometricRecord
	Bridges    []BridgeRecord
	Audio      []AudioRecord
}

// Unify merges the source tables into one row-per-track table.
//
// The lyric table is the defining universe: stylometric features are an
// inner join against it (a lyric track with no stylometric row is a
// SchemaError), bridge features are a left join defaulting to zero, and
// audio features are a left join preserving absence as nil rather than
// defaulting to zero. Rows are ordered by era, then track_id, so the
// table layout is stable across runs.
func Unify(src Sources) (Table, error) {
	styloByID, err := indexStylometry(src.Stylometry)
	if err != nil {
		return nil, err
	}
	bridgeByID, err := indexBridges(src.Bridges)
	if err != nil {
		return nil, err
	}
	audioByID, err := indexAudio(src.Audio)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(src.Lyrics))
	table := make(Table, 0, len(src.Lyrics))
	for _, lyr := range src.Lyrics {
		if seen[lyr.TrackID] {
			return nil, &DuplicateKeyError{TrackID: lyr.TrackID, Source: "lyric table"}
		}
		seen[lyr.TrackID] = true

		stylo, ok := styloByID[lyr.TrackID]
		if !ok {
			return nil, &SchemaError{TrackID: lyr.TrackID, Column: ColumnReadingGrade, Reason: "no stylometric row for track"}
		}
		if err := validateStylometry(stylo); err != nil {
			return nil, err
		}

		row := Track{
			TrackID:          lyr.TrackID,
			TrackName:        lyr.TrackName,
			Album:            lyr.Album,
			EraOrder:         lyr.EraOrder,
			ReadingGrade:     stylo.ReadingGrade,
			SyllableDensity:  stylo.SyllableDensity,
			LexicalDiversity: stylo.LexicalDiversity,
			DifficultRatio:   stylo.DifficultRatio,
			ClusterID:        -1,
		}

		if b, ok := bridgeByID[lyr.TrackID]; ok {
			row.HasBridge = true
			row.BridgeWordCount = b.WordCount
			row.BridgeSentimentShift = b.SentimentShift
			row.BridgeChorusContrast = b.ChorusContrast
		}

		if a, ok := audioByID[lyr.TrackID]; ok {
			energy, valence := a.Energy, a.Valence
			row.Energy = &energy
			row.Valence = &valence
		}

		table = append(table, row)
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].EraOrder != table[j].EraOrder {
			return table[i].EraOrder < table[j].EraOrder
		}
		return table[i].TrackID < table[j].TrackID
	})
	return table, nil
}

func indexStylometry(records []StylometricRecord) (map[string]StylometricRecord, error) {
	byID := make(map[string]StylometricRecord, len(records))
	for _, r := range records {
		if _, ok := byID[r.TrackID]; ok {
			return nil, &DuplicateKeyError{TrackID: r.TrackID, Source: "stylometric table"}
		}
		byID[r.TrackID] = r
	}
	return byID, nil
}

func indexBridges(records []BridgeRecord) (map[string]BridgeRecord, error) {
	byID := make(map[string]BridgeRecord, len(records))
	for _, r := range records {
		if _, ok := byID[r.TrackID]; ok {
			return nil, &DuplicateKeyError{TrackID: r.TrackID, Source: "bridge table"}
		}
		byID[r.TrackID] = r
	}
	return byID, nil
}

func indexAudio(records []AudioRecord) (map[string]AudioRecord, error) {
	byID := make(map[string]AudioRecord, len(records))
	for _, r := range records {
		if _, ok := byID[r.TrackID]; ok {
			return nil, &DuplicateKeyError{TrackID: r.TrackID, Source: "audio table"}
		}
		byID[r.TrackID] = r
	}
	return byID, nil
}

func validateStylometry(r StylometricRecord) error {
	columns := []struct {
		name  string
		value float64
	}{
		{ColumnReadingGrade, r.ReadingGrade},
		{ColumnSyllableDensity, r.SyllableDensity},
		{ColumnLexicalDiversity, r.LexicalDiversity},
		{ColumnDifficultRatio, r.DifficultRatio},
	}
	for _, c := range columns {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &SchemaError{TrackID: r.TrackID, Column: c.name, Reason: "value is not finite"}
		}
	}
	return nil
}
