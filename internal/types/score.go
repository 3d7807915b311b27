package types

// Factor is one named component of a species score. Score is the model's
// [0,1] assessment of the factor, Weight its fixed share of the weighted sum,
// Value a human-readable rendering of the underlying reading.
type Factor struct {
	Value       string  `json:"value"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// ScoreResult is the outcome of evaluating one species model against one
// sample. Produced fresh per (species, timestamp) and never mutated after
// return.
//
// Invariants: Total is clamped to [0,10] regardless of input extremity;
// IsSafe=false implies Total <= 3.0; a closed season gate implies Total == 0,
// IsInSeason == false, and an empty Factors map.
type ScoreResult struct {
	Species    Species           `json:"species"`
	Total      float64           `json:"total"`
	Factors    map[string]Factor `json:"factors"`
	IsSafe     bool              `json:"is_safe"`
	Warnings   []string          `json:"warnings,omitempty"`
	IsInSeason bool              `json:"is_in_season"`
	Advice     []string          `json:"advice,omitempty"`
	Debug      map[string]any    `json:"debug,omitempty"`
}

// ScoredSlot pairs a sample timestamp with its per-species results, forming
// one entry of the time-sliced output series.
type ScoredSlot struct {
	Timestamp int64                   `json:"timestamp"`
	Results   map[Species]ScoreResult `json:"results"`
}
