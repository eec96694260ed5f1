package cluster

// Archetype is one entry of the fixed cluster-index-to-name lookup. The
// mapping is positional: cluster id i gets the i-th archetype. It is
// defined once before a run and never derived from the data.
type Archetype struct {
	Name        string
	Description string
}

// DefaultArchetypes returns the standard five-archetype lookup.
func DefaultArchetypes() []Archetype {
	return []Archetype{
		{Name: "Quill Pen", Description: "Poetic & Archaic (High Complexity, Low Energy)"},
		{Name: "Fountain Pen", Description: "Modern Confessional (Specific Storytelling)"},
		{Name: "Glitter Gel Pen", Description: "Frivolous & Upbeat (High Energy, High Valence)"},
		{Name: "Revenge Anthem", Description: "Angst & Power (High Energy, Low Valence)"},
		{Name: "Standard Pop", Description: "Radio-Ready (Mid-Range Baseline Production)"},
	}
}
