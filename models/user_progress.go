package models

// UserProgress tracks gamified progression for each user (one record per user,
// read-modify-written on every activity).
type UserProgress struct {
	UserID string `json:"userId"`

	// Core progression; Level, CurrentXP and NextLevelXP are recomputed from
	// TotalXP on every write.
	TotalXP     int64 `json:"totalXP"`
	Level       int   `json:"level"`
	CurrentXP   int64 `json:"currentXP"`
	NextLevelXP int64 `json:"nextLevelXP"`

	Streak           int    `json:"streak"`
	LastActivityDate string `json:"lastActivityDate,omitempty"` // ISO-8601, as written by clients/older versions

	// Activity counters
	TestsCompleted           int     `json:"testsCompleted"`
	AvgScore                 float64 `json:"avgScore"`
	DailyChallengesCompleted int     `json:"dailyChallengesCompleted"`

	Badges []Badge `json:"badges"`

	UpdatedAt string `json:"updatedAt,omitempty"`
}

// NewUserProgress returns the zero snapshot used when a user has no record yet.
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID:      userID,
		Level:       1,
		NextLevelXP: 500,
		Badges:      []Badge{},
	}
}

// HasEarned reports whether badge id is already marked earned.
func (p *UserProgress) HasEarned(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id && b.Earned {
			return true
		}
	}
	return false
}

// EarnedBadgeCount counts badges with Earned set.
func (p *UserProgress) EarnedBadgeCount() int {
	n := 0
	for _, b := range p.Badges {
		if b.Earned {
			n++
		}
	}
	return n
}
