package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadLyricsCSV reads the lyric table. Required columns: track_id,
// track_name, album, era_order.
func ReadLyricsCSV(r io.Reader) ([]LyricRecord, error) {
	rows, cols, err := readTable(r, ColumnTrackID, ColumnTrackName, ColumnAlbum, ColumnEraOrder)
	if err != nil {
		return nil, err
	}
	records := make([]LyricRecord, 0, len(rows))
	for _, row := range rows {
		id := row[cols[ColumnTrackID]]
		era, err := strconv.Atoi(row[cols[ColumnEraOrder]])
		if err != nil {
			return nil, &SchemaError{TrackID: id, Column: ColumnEraOrder, Reason: "not an integer"}
		}
		records = append(records, LyricRecord{
			TrackID:   id,
			TrackName: row[cols[ColumnTrackName]],
			Album:     row[cols[ColumnAlbum]],
			EraOrder:  era,
		})
	}
	return records, nil
}

// ReadStylometryCSV reads the stylometric feature table.
func ReadStylometryCSV(r io.Reader) ([]StylometricRecord, error) {
	rows, cols, err := readTable(r, ColumnTrackID, ColumnReadingGrade, ColumnSyllableDensity,
		ColumnLexicalDiversity, ColumnDifficultRatio)
	if err != nil {
		return nil, err
	}
	records := make([]StylometricRecord, 0, len(rows))
	for _, row := range rows {
		id := row[cols[ColumnTrackID]]
		rec := StylometricRecord{TrackID: id}
		for _, f := range []struct {
			column string
			dst    *float64
		}{
			{ColumnReadingGrade, &rec.ReadingGrade},
			{ColumnSyllableDensity, &rec.SyllableDensity},
			{ColumnLexicalDiversity, &rec.LexicalDiversity},
			{ColumnDifficultRatio, &rec.DifficultRatio},
		} {
			v, err := strconv.ParseFloat(row[cols[f.column]], 64)
			if err != nil {
				return nil, &SchemaError{TrackID: id, Column: f.column, Reason: "not a number"}
			}
			*f.dst = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadBridgesCSV reads the bridge-impact table. Only tracks that have a
// bridge appear in this table.
func ReadBridgesCSV(r io.Reader) ([]BridgeRecord, error) {
	rows, cols, err := readTable(r, ColumnTrackID, ColumnBridgeWordCount,
		ColumnBridgeSentimentShift, ColumnBridgeChorusContrast)
	if err != nil {
		return nil, err
	}
	records := make([]BridgeRecord, 0, len(rows))
	for _, row := range rows {
		id := row[cols[ColumnTrackID]]
		wc, err := strconv.Atoi(row[cols[ColumnBridgeWordCount]])
		if err != nil {
			return nil, &SchemaError{TrackID: id, Column: ColumnBridgeWordCount, Reason: "not an integer"}
		}
		shift, err := strconv.ParseFloat(row[cols[ColumnBridgeSentimentShift]], 64)
		if err != nil {
			return nil, &SchemaError{TrackID: id, Column: ColumnBridgeSentimentShift, Reason: "not a number"}
		}
		contrast, err := strconv.ParseFloat(row[cols[ColumnBridgeChorusContrast]], 64)
		if err != nil {
			return nil, &SchemaError{TrackID: id, Column: ColumnBridgeChorusContrast, Reason: "not a number"}
		}
		records = append(records, BridgeRecord{
			TrackID:        id,
			WordCount:      wc,
			SentimentShift: shift,
			ChorusContrast: contrast,
		})
	}
	return records, nil
}

// ReadAudioCSV reads the sparse audio feature table. Rows with both energy
// and valence empty are treated as absent; a row with exactly one empty
// cell violates the both-or-neither invariant and is a SchemaError.
func ReadAudioCSV(r io.Reader) ([]AudioRecord, error) {
	rows, cols, err := readTable(r, ColumnTrackID, ColumnEnergy, ColumnValence)
	if err != nil {
		return nil, err
	}
	records := make([]AudioRecord, 0, len(rows))
	for _, row := range rows {
		id := row[cols[ColumnTrackID]]
		rawEnergy := row[cols[ColumnEnergy]]
		rawValence := row[cols[ColumnValence]]
		if rawEnergy == "" && rawValence == "" {
			continue
		}
		if rawEnergy == "" || rawValence == "" {
			missing := ColumnEnergy
			if rawValence == "" {
				missing = ColumnValence
			}
			return nil, &SchemaError{TrackID: id, Column: missing, Reason: "energy and valence must be present together"}
		}
		energy, err := strconv.ParseFloat(rawEnergy, 64)
		if err != nil {
			return nil, &SchemaError{TrackID: id, Column: ColumnEnergy, Reason: "not a number"}
		}
		valence, err := strconv.ParseFloat(rawValence, 64)
		if err != nil {
			return nil, &SchemaError{TrackID: id, Column: ColumnValence, Reason: "not a number"}
		}
		records = append(records, AudioRecord{TrackID: id, Energy: energy, Valence: valence})
	}
	return records, nil
}

// analyzedHeader is the column order of the exported table.
var analyzedHeader = []string{
	ColumnTrackID, ColumnTrackName, ColumnAlbum, ColumnEraOrder,
	ColumnReadingGrade, ColumnSyllableDensity, ColumnLexicalDiversity, ColumnDifficultRatio,
	ColumnHasBridge, ColumnBridgeWordCount, ColumnBridgeSentimentShift, ColumnBridgeChorusContrast,
	ColumnEnergy, ColumnValence, "energy_reconstructed", "valence_reconstructed",
	"cluster_id", "archetype_label", "projection_x", "projection_y", "top_driver",
}

// WriteAnalyzedCSV writes the fully-populated table for the visualization
// layer. Audio columns left absent by a failed reconstruction are written
// as empty cells.
func WriteAnalyzedCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(analyzedHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range table {
		t := &table[i]
		record := []string{
			t.TrackID, t.TrackName, t.Album, strconv.Itoa(t.EraOrder),
			formatFloat(t.ReadingGrade), formatFloat(t.SyllableDensity),
			formatFloat(t.LexicalDiversity), formatFloat(t.DifficultRatio),
			strconv.FormatBool(t.HasBridge), strconv.Itoa(t.BridgeWordCount),
			formatFloat(t.BridgeSentimentShift), formatFloat(t.BridgeChorusContrast),
			formatOptional(t.Energy), formatOptional(t.Valence),
			strconv.FormatBool(t.EnergyReconstructed), strconv.FormatBool(t.ValenceReconstructed),
			strconv.Itoa(t.ClusterID), t.ArchetypeLabel,
			formatFloat(t.ProjectionX), formatFloat(t.ProjectionY), t.TopDriver,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing track %s: %w", t.TrackID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAnalyzedFile writes the analyzed table to a file path.
func WriteAnalyzedFile(path string, table Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteAnalyzedCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// readTable reads a CSV with a header row and returns the data rows plus a
// column-name index. Missing required columns are a SchemaError.
func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, &SchemaError{Column: ColumnTrackID, Reason: "empty table"}
	}
	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, &SchemaError{Column: name, Reason: "column not in header"}
		}
	}
	return records[1:], cols, nil
}
