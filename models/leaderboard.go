package models

// TimeframeAll is the only ranking timeframe maintained today.
const TimeframeAll = "all"

// LeaderboardEntry is a denormalized projection of UserProgress. Rank is not
// stored; it is assigned when the leaderboard is read.
type LeaderboardEntry struct {
	Timeframe      string  `json:"timeframe"`
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	XP             int64   `json:"xp"`
	TestsCompleted int     `json:"testsCompleted"`
	AvgScore       float64 `json:"avgScore"`
	Badges         int     `json:"badges"`
	Level          int     `json:"level"`
	UpdatedAt      string  `json:"updatedAt"`
}

// RankedEntry is a leaderboard row as returned to clients.
type RankedEntry struct {
	Rank           int     `json:"rank"`
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	XP             int64   `json:"xp"`
	TestsCompleted int     `json:"testsCompleted"`
	AvgScore       float64 `json:"avgScore"`
	Badges         int     `json:"badges"`
	Level          int     `json:"level"`
}
