package models

import "encoding/json"

// ProctoringData counts suspicious behaviour during a test. Only used to
// penalise XP.
type ProctoringData struct {
	TabSwitchCount      int `json:"tabSwitchCount" validate:"min=0"`
	FullScreenExitCount int `json:"fullScreenExitCount" validate:"min=0"`
	CopyPasteAttempts   int `json:"copyPasteAttempts" validate:"min=0"`
	HintsUsed           int `json:"hintsUsed" validate:"min=0"`
}

// TestResult is written once per submission and never mutated.
type TestResult struct {
	UserID          string          `json:"userId"`
	TestResultID    string          `json:"testResultId"`
	AssessmentID    string          `json:"assessmentId"`
	AssessmentTitle string          `json:"assessmentTitle"`
	Score           float64         `json:"score"`
	TotalQuestions  int             `json:"totalQuestions"`
	Attempted       int             `json:"attempted"`
	Solved          int             `json:"solved"`
	Duration        string          `json:"duration"`
	StartTime       string          `json:"startTime"`
	Difficulty      string          `json:"difficulty,omitempty"`
	TestMode        string          `json:"testMode,omitempty"`
	XPEarned        int64           `json:"xpEarned"`
	QuestionResults json.RawMessage `json:"questionResults,omitempty"`
	ProctoringData  *ProctoringData `json:"proctoringData,omitempty"`
	CreatedAt       string          `json:"createdAt"`
}
