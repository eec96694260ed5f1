package web

import (
	"encoding/json"
	"log"
	"net/http"

	"mirrorball/internal/cluster"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	source     TableSource
	archetypes []cluster.Archetype
}

// NewHandlers creates the handler set.
func NewHandlers(source TableSource, archetypes []cluster.Archetype) *Handlers {
	return &Handlers{source: source, archetypes: archetypes}
}

// trackJSON is the wire form of one analyzed track.
type trackJSON struct {
	TrackID              string   `json:"track_id"`
	TrackName            string   `json:"track_name"`
	Album                string   `json:"album"`
	EraOrder             int      `json:"era_order"`
	ReadingGrade         float64  `json:"reading_grade"`
	SyllableDensity      float64  `json:"syllable_density"`
	LexicalDiversity     float64  `json:"lexical_diversity"`
	DifficultRatio       float64  `json:"difficult_ratio"`
	HasBridge            bool     `json:"has_bridge"`
	BridgeWordCount      int      `json:"bridge_word_count"`
	BridgeSentimentShift float64  `json:"bridge_sentiment_shift"`
	BridgeChorusContrast float64  `json:"bridge_chorus_contrast"`
	Energy               *float64 `json:"energy"`
	Valence              *float64 `json:"valence"`
	EnergyReconstructed  bool     `json:"energy_reconstructed"`
	ValenceReconstructed bool     `json:"valence_reconstructed"`
	ClusterID            int      `json:"cluster_id"`
	ArchetypeLabel       string   `json:"archetype_label"`
	ProjectionX          float64  `json:"projection_x"`
	ProjectionY          float64  `json:"projection_y"`
	TopDriver            string   `json:"top_driver"`
}

// Tracks returns the full analyzed table.
func (h *Handlers) Tracks(w http.ResponseWriter, r *http.Request) {
	table, err := h.source.List(r.Context())
	if err != nil {
		log.Printf("listing analyzed tracks: %v", err)
		http.Error(w, "failed to load analyzed tracks", http.StatusInternalServerError)
		return
	}

	out := make([]trackJSON, len(table))
	for i := range table {
		t := &table[i]
		out[i] = trackJSON{
			TrackID:              t.TrackID,
			TrackName:            t.TrackName,
			Album:                t.Album,
			EraOrder:             t.EraOrder,
			ReadingGrade:         t.ReadingGrade,
			SyllableDensity:      t.SyllableDensity,
			LexicalDiversity:     t.LexicalDiversity,
			DifficultRatio:       t.DifficultRatio,
			HasBridge:            t.HasBridge,
			BridgeWordCount:      t.BridgeWordCount,
			BridgeSentimentShift: t.BridgeSentimentShift,
			BridgeChorusContrast: t.BridgeChorusContrast,
			Energy:               t.Energy,
			Valence:              t.Valence,
			EnergyReconstructed:  t.EnergyReconstructed,
			ValenceReconstructed: t.ValenceReconstructed,
			ClusterID:            t.ClusterID,
			ArchetypeLabel:       t.ArchetypeLabel,
			ProjectionX:          t.ProjectionX,
			ProjectionY:          t.ProjectionY,
			TopDriver:            t.TopDriver,
		}
	}
	writeJSON(w, out)
}

// archetypeJSON is the wire form of one archetype legend entry.
type archetypeJSON struct {
	ClusterID   int    `json:"cluster_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Archetypes returns the cluster-index-to-name legend.
func (h *Handlers) Archetypes(w http.ResponseWriter, r *http.Request) {
	out := make([]archetypeJSON, len(h.archetypes))
	for i, a := range h.archetypes {
		out[i] = archetypeJSON{ClusterID: i, Name: a.Name, Description: a.Description}
	}
	writeJSON(w, out)
}

// Health reports server liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
