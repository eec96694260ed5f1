package dataset

import (
	"errors"
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func testSources() Sources {
	return Sources{
		Lyrics: []LyricRecord{
			{TrackID: "A", TrackName: "Alpha", Album: "First", EraOrder: 1},
			{TrackID: "B", TrackName: "Beta", Album: "First", EraOrder: 1},
			{TrackID: "C", TrackName: "Gamma", Album: "Second", EraOrder: 2},
		},
		Stylometry: []StylometricRecord{
			{TrackID: "A", ReadingGrade: 4.2, SyllableDensity: 1.3, LexicalDiversity: 0.52, DifficultRatio: 0.11},
			{TrackID: "B", ReadingGrade: 6.8, SyllableDensity: 1.6, LexicalDiversity: 0.61, DifficultRatio: 0.19},
			{TrackID: "C", ReadingGrade: 5.1, SyllableDensity: 1.4, LexicalDiversity: 0.55, DifficultRatio: 0.14},
		},
		Bridges: []BridgeRecord{
			{TrackID: "A", WordCount: 42, SentimentShift: -0.3, ChorusContrast: 0.5},
		},
		Audio: []AudioRecord{
			{TrackID: "A", Energy: 0.8, Valence: 0.6},
			{TrackID: "C", Energy: 0.4, Valence: 0.3},
		},
	}
}

func TestUnifyPreservesAbsence(t *testing.T) {
	table, err := Unify(testSources())
	if err != nil {
		t.Fatalf("Unify: %v", err)
	}

	if len(table) != 3 {
		t.Fatalf("got %d rows, want 3", len(table))
	}

	byID := make(map[string]*Track)
	for i := range table {
		byID[table[i].TrackID] = &table[i]
	}

	for _, id := range []string{"A", "C"} {
		tr := byID[id]
		if tr.Energy == nil || tr.Valence == nil {
			t.Errorf("track %s: audio features should be present", id)
		}
	}

	b := byID["B"]
	if b.Energy != nil || b.Valence != nil {
		t.Errorf("track B: audio features should be absent, got energy=%v valence=%v", b.Energy, b.Valence)
	}
}

func TestUnifyBridgeDefaults(t *testing.T) {
	table, err := Unify(testSources())
	if err != nil {
		t.Fatalf("Unify: %v", err)
	}

	for i := range table {
		tr := &table[i]
		switch tr.TrackID {
		case "A":
			if !tr.HasBridge || tr.BridgeWordCount != 42 {
				t.Errorf("track A: bridge features not joined: %+v", tr)
			}
		default:
			if tr.HasBridge || tr.BridgeSentimentShift != 0 || tr.BridgeChorusContrast != 0 {
				t.Errorf("track %s: bridge features should default to zero", tr.TrackID)
			}
		}
	}
}

func TestUnifyRowOrder(t *testing.T) {
	src := testSources()
	// Shuffle lyric order; output must still be era then track_id.
	src.Lyrics = []LyricRecord{src.Lyrics[2], src.Lyrics[1], src.Lyrics[0]}

	table, err := Unify(src)
	if err != nil {
		t.Fatalf("Unify: %v", err)
	}

	want := []string{"A", "B", "C"}
	for i, id := range want {
		if table[i].TrackID != id {
			t.Errorf("row %d: got %s, want %s", i, table[i].TrackID, id)
		}
	}
}

func TestUnifyDuplicateKeys(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Sources)
		wantSource string
	}{
		{
			name: "duplicate lyric",
			mutate: func(s *Sources) {
				s.Lyrics = append(s.Lyrics, s.Lyrics[0])
			},
			wantSource: "lyric table",
		},
		{
			name: "duplicate stylometry",
			mutate: func(s *Sources) {
				s.Stylometry = append(s.Stylometry, s.Stylometry[0])
			},
			wantSource: "stylometric table",
		},
		{
			name: "duplicate bridge",
			mutate: func(s *Sources) {
				s.Bridges = append(s.Bridges, s.Bridges[0])
			},
			wantSource: "bridge table",
		},
		{
			name: "duplicate audio",
			mutate: func(s *Sources) {
				s.Audio = append(s.Audio, s.Audio[0])
			},
			wantSource: "audio table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSources()
			tt.mutate(&src)

			_, err := Unify(src)
			var dup *DuplicateKeyError
			if !errors.As(err, &dup) {
				t.Fatalf("got %v, want DuplicateKeyError", err)
			}
			if dup.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", dup.Source, tt.wantSource)
			}
		})
	}
}

func TestUnifyMissingStylometry(t *testing.T) {
	src := testSources()
	src.Stylometry = src.Stylometry[:2] // drop C

	_, err := Unify(src)
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if schema.TrackID != "C" {
		t.Errorf("TrackID = %q, want C", schema.TrackID)
	}
}

func TestUnifyNonFiniteStylometry(t *testing.T) {
	src := testSources()
	src.Stylometry[1].LexicalDiversity = math.NaN()

	_, err := Unify(src)
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if schema.Column != ColumnLexicalDiversity {
		t.Errorf("Column = %q, want %q", schema.Column, ColumnLexicalDiversity)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	table := Table{{TrackID: "A", Energy: ptr(0.5), Valence: ptr(0.5)}}
	clone := table.Clone()

	*clone[0].Energy = 0.9
	clone[0].TrackName = "changed"

	if *table[0].Energy != 0.5 {
		t.Errorf("clone mutation leaked into original energy: %v", *table[0].Energy)
	}
	if table[0].TrackName == "changed" {
		t.Error("clone mutation leaked into original name")
	}
}

func TestSplit(t *testing.T) {
	table := Table{
		{TrackID: "A", Energy: ptr(0.1), Valence: ptr(0.2)},
		{TrackID: "B"},
		{TrackID: "C", Energy: ptr(0.3), Valence: ptr(0.4)},
	}

	labeled, unlabeled := table.Split(ColumnEnergy)
	if len(labeled) != 2 || len(unlabeled) != 1 {
		t.Fatalf("got %d labeled / %d unlabeled, want 2/1", len(labeled), len(unlabeled))
	}
	if unlabeled[0] != 1 {
		t.Errorf("unlabeled index = %d, want 1", unlabeled[0])
	}
}
