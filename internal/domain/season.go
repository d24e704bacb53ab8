package domain

import "time"

// JokerGrant tracks how many insurance jokers a user holds for a season.
// Grants are administrative; the remaining count is decremented exactly once
// per successful joker use and never incremented by user action.
type JokerGrant struct {
	UserID    string    `json:"user_id"`
	Season    string    `json:"season"`
	Remaining int       `json:"remaining"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeasonPoints is a user's cumulative fixed-odds scoring state for one
// season. It is mutated only by episode settlement batches.
type SeasonPoints struct {
	UserID        string    `json:"user_id"`
	Season        string    `json:"season"`
	Points        int64     `json:"points"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	CorrectCount  int       `json:"correct_count"`
	TotalCount    int       `json:"total_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EpisodePick is one user's resolved fixed-odds prediction within an episode
// settlement batch. Odds are American-style as posted by the external odds
// source; malformed values degrade to a fallback multiplier during scoring.
type EpisodePick struct {
	UserID    string `json:"user_id"`
	Correct   bool   `json:"correct"`
	Odds      int    `json:"odds"`
	Risk      bool   `json:"risk"`
	JokerUsed bool   `json:"joker_used"`
}

// EpisodeDelta is the per-(user, season) aggregate increment produced by
// scoring one episode's picks for a single user. It is applied atomically so
// concurrent episode batches cannot lose an update.
type EpisodeDelta struct {
	PickPoints int64 // points from individual picks, before streak bonus
	Correct    int
	Total      int
	GotCorrect bool // at least one correct pick this episode
}

// LeaderboardEntry is a single row of a season leaderboard.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}
