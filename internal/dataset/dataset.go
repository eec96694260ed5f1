// Package dataset defines the per-track feature table and the unification
// step that merges the upstream feature-family tables into it.
package dataset

// Track is one row of the analytical table. Audio features are pointers
// because absence is meaningful: a nil Energy/Valence marks a track the
// audio source never covered, and is later filled in by reconstruction.
type Track struct {
	TrackID   string
	TrackName string
	Album     string
	EraOrder  int

	// Stylometric features, always present after unification.
	ReadingGrade     float64
	SyllableDensity  float64
	LexicalDiversity float64
	DifficultRatio   float64

	// Bridge features, zero-valued when the track has no bridge.
	HasBridge            bool
	BridgeWordCount      int
	BridgeSentimentShift float64
	BridgeChorusContrast float64

	// Audio features (nil if absent from the audio source).
	Energy  *float64
	Valence *float64

	// Provenance flags set by the reconstructor.
	EnergyReconstructed  bool
	ValenceReconstructed bool

	// Set by the clusterer.
	ClusterID      int
	ArchetypeLabel string

	// Set by the projector.
	ProjectionX float64
	ProjectionY float64

	// Set by the explainer.
	TopDriver string
}

// Table is the row-per-track analytical table. Stages never add or remove
// rows after unification; they return a copy with additional columns set.
type Table []Track

// Clone returns a deep copy of the table. Pointer-valued audio features are
// copied so mutating the clone cannot leak into the original.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	for i := range out {
		if out[i].Energy != nil {
			v := *out[i].Energy
			out[i].Energy = &v
		}
		if out[i].Valence != nil {
			v := *out[i].Valence
			out[i].Valence = &v
		}
	}
	return out
}

// Labeled reports whether the track carried observed audio features at
// unification time.
func (tr *Track) Labeled() bool {
	return tr.Energy != nil && tr.Valence != nil &&
		!tr.EnergyReconstructed && !tr.ValenceReconstructed
}

// Split returns the indices of rows with a present value for the given
// audio target and those without.
func (t Table) Split(target string) (labeled, unlabeled []int) {
	for i := range t {
		var v *float64
		switch target {
		case ColumnEnergy:
			v = t[i].Energy
		case ColumnValence:
			v = t[i].Valence
		}
		if v != nil {
			labeled = append(labeled, i)
		} else {
			unlabeled = append(unlabeled, i)
		}
	}
	return labeled, unlabeled
}

// Column names shared across stages.
const (
	ColumnTrackID              = "track_id"
	ColumnTrackName            = "track_name"
	ColumnAlbum                = "album"
	ColumnEraOrder             = "era_order"
	ColumnReadingGrade         = "reading_grade"
	ColumnSyllableDensity      = "syllable_density"
	ColumnLexicalDiversity     = "lexical_diversity"
	ColumnDifficultRatio       = "difficult_ratio"
	ColumnHasBridge            = "has_bridge"
	ColumnBridgeWordCount      = "bridge_word_count"
	ColumnBridgeSentimentShift = "bridge_sentiment_shift"
	ColumnBridgeChorusContrast = "bridge_chorus_contrast"
	ColumnEnergy               = "energy"
	ColumnValence              = "valence"
)
