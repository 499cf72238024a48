package models

import "encoding/json"

// Assessment is a mock test definition managed by admins.
type Assessment struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Logo          string          `json:"logo"`
	Time          string          `json:"time"`
	Objective     int             `json:"objective"`
	Programming   int             `json:"programming"`
	Registrations int             `json:"registrations"`
	Category      string          `json:"category"`
	Popular       bool            `json:"popular"`
	Difficulty    string          `json:"difficulty"`
	Difficulties  []string        `json:"difficulties"`
	Company       *string         `json:"company"`
	XPReward      int64           `json:"xpReward"`
	Status        string          `json:"status"` // draft, published
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
	Questions     json.RawMessage `json:"questions"`
}

// StudyResource is a curated learning link.
type StudyResource struct {
	ResourceID string `json:"resourceId"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Topic      string `json:"topic"`
	Duration   string `json:"duration"`
	URL        string `json:"url"`
	CreatedAt  string `json:"createdAt,omitempty"`
}
