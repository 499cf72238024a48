package models

// Badge is an awarded (or, when rendered from the catalog, not yet awarded)
// achievement embedded in UserProgress.Badges.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Image       string `json:"image"`
	Earned      bool   `json:"earned"`
	EarnedDate  string `json:"earnedDate,omitempty"`
	Requirement string `json:"requirement"`
	XPReward    int64  `json:"xpReward"` // informational; never credited to TotalXP
}

// BadgeDefinition is a static catalog entry. Check is a pure predicate over the
// post-update progress snapshot and the submission being processed (nil for
// events that carry no test result).
type BadgeDefinition struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Requirement string
	XPReward    int64
	Check       func(p *UserProgress, r *TestResult) bool
}

// ImagePath is the static asset path of the badge artwork.
func (d BadgeDefinition) ImagePath() string {
	return "/badge_logo/" + d.ID + ".png"
}

// Locked renders the definition as a not-yet-earned badge.
func (d BadgeDefinition) Locked() Badge {
	return Badge{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		Image:       d.ImagePath(),
		Requirement: d.Requirement,
		XPReward:    d.XPReward,
	}
}

// Award renders the definition as a badge earned at earnedDate.
func (d BadgeDefinition) Award(earnedDate string) Badge {
	b := d.Locked()
	b.Earned = true
	b.EarnedDate = earnedDate
	return b
}
