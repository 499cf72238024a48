package models

// DailyChallenge is keyed by date (YYYY-MM-DD) + challengeId.
type DailyChallenge struct {
	Date         string `json:"date"`
	ChallengeID  string `json:"challengeId"`
	Title        string `json:"title"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	XPReward     int64  `json:"xpReward"`
	TimeLimit    int    `json:"timeLimit"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	AssessmentID string `json:"assessmentId,omitempty"`
}

// DailyChallengeCompletion is keyed by userId + challengeId.
type DailyChallengeCompletion struct {
	UserID      string  `json:"userId"`
	ChallengeID string  `json:"challengeId"`
	Date        string  `json:"date"`
	Score       float64 `json:"score"`
	XPEarned    int64   `json:"xpEarned"`
	CompletedAt string  `json:"completedAt"`
}
