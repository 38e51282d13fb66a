package history

// Entry is one persisted daily lesson. The live file holds at most one entry
// per Date, newest first.
type Entry struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"` // YYYY-MM-DD
	Topic     string     `json:"topic"`
	Summary   string     `json:"summary"`
	KeyPoints []string   `json:"key_points"`
	Practice  []Practice `json:"practice"`
	RiskNotes string     `json:"risk_notes"`
	Sources   []Source   `json:"sources"`
	Meta      Meta       `json:"meta"`
}

type Practice struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Meta links an entry back to the catalog candidate it was generated from.
type Meta struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Difficulty int      `json:"difficulty"`
	Level      string   `json:"level"`
	Related    []string `json:"related"`
	Tags       []string `json:"tags"`
	Recycled   bool     `json:"recycled,omitempty"`
}

// MaxSources caps the sources list on every entry.
const MaxSources = 6
