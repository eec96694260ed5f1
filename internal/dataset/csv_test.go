package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadAudioCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows int
		wantErr  bool
	}{
		{
			name: "sparse rows skipped",
			input: "track_id,energy,valence\n" +
				"A,0.8,0.6\n" +
				"B,,\n" +
				"C,0.4,0.3\n",
			wantRows: 2,
		},
		{
			name: "half-filled row rejected",
			input: "track_id,energy,valence\n" +
				"A,0.8,\n",
			wantErr: true,
		},
		{
			name:    "missing valence column",
			input:   "track_id,energy\nA,0.8\n",
			wantErr: true,
		},
		{
			name: "non-numeric energy",
			input: "track_id,energy,valence\n" +
				"A,loud,0.6\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadAudioCSV(strings.NewReader(tt.input))
			if tt.wantErr {
				var schema *SchemaError
				if !errors.As(err, &schema) {
					t.Fatalf("got %v, want SchemaError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadAudioCSV: %v", err)
			}
			if len(records) != tt.wantRows {
				t.Errorf("got %d records, want %d", len(records), tt.wantRows)
			}
		})
	}
}

func TestReadStylometryCSV(t *testing.T) {
	input := "track_id,reading_grade,syllable_density,lexical_diversity,difficult_ratio\n" +
		"A,4.2,1.3,0.52,0.11\n"

	records, err := ReadStylometryCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadStylometryCSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ReadingGrade != 4.2 || records[0].DifficultRatio != 0.11 {
		t.Errorf("record = %+v", records[0])
	}
}

func TestReadLyricsCSVBadEra(t *testing.T) {
	input := "track_id,track_name,album,era_order\nA,Alpha,First,soon\n"

	_, err := ReadLyricsCSV(strings.NewReader(input))
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if schema.Column != ColumnEraOrder {
		t.Errorf("Column = %q, want %q", schema.Column, ColumnEraOrder)
	}
}

func TestWriteAnalyzedCSV(t *testing.T) {
	table := Table{
		{
			TrackID: "A", TrackName: "Alpha", Album: "First", EraOrder: 1,
			Energy: ptr(0.8), Valence: ptr(0.6),
			ClusterID: 2, ArchetypeLabel: "Glitter Gel Pen", TopDriver: "energy",
		},
		{
			TrackID: "B", TrackName: "Beta", Album: "First", EraOrder: 1,
			ClusterID: -1,
		},
	}

	var buf bytes.Buffer
	if err := WriteAnalyzedCSV(&buf, table); err != nil {
		t.Fatalf("WriteAnalyzedCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "track_id,") {
		t.Errorf("header = %q", lines[0])
	}
	// Absent audio features export as empty cells, not zeros.
	if !strings.Contains(lines[2], ",,") {
		t.Errorf("row B should contain empty audio cells: %q", lines[2])
	}
}
