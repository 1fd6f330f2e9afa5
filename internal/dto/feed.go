package dto

import "time"

// ModelVote is one model's decision for a ticker/day, supplied by the
// external price/vote feed. Read-only.
type ModelVote struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"` // in [0,1]
}

// DailyQuote is the feed payload for one ticker on one day.
type DailyQuote struct {
	Ticker string               `json:"ticker"`
	Date   time.Time            `json:"date"`
	Price  string               `json:"price"` // decimal string, parsed by the engine
	Votes  map[string]ModelVote `json:"votes"` // keyed by model name
}

// Holiday is one market holiday returned by the calendar provider.
// Half-days are treated as fully closed.
type Holiday struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Name    string `json:"name"`
	HalfDay bool   `json:"half_day"`
}

// ConsensusDecision is the aggregated action for one ticker/day together
// with the votes that produced it.
type ConsensusDecision struct {
	Action     Action               `json:"action"`
	Confidence float64              `json:"confidence"`
	Votes      map[string]ModelVote `json:"votes"`
}
