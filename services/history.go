package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"mock-assessment-service/models"
)

const DefaultHistoryLimit = 50

type HistoryQuery struct {
	UserID       string `json:"userId" validate:"required"`
	AssessmentID string `json:"assessmentId"`
	Limit        int    `json:"limit" validate:"min=0,max=1000"`
	Offset       int    `json:"offset" validate:"min=0"`
}

type HistoryRow struct {
	TestResultID    string  `json:"testResultId"`
	AssessmentID    string  `json:"assessmentId"`
	AssessmentTitle string  `json:"assessmentTitle"`
	Score           float64 `json:"score"`
	TotalQuestions  int     `json:"totalQuestions"`
	Attempted       int     `json:"attempted"`
	Solved          int     `json:"solved"`
	Duration        string  `json:"duration"`
	StartTime       string  `json:"startTime"`
	XPEarned        int64   `json:"xpEarned"`
	CreatedAt       string  `json:"createdAt"`
	Percentage      float64 `json:"percentage"`
}

type HistoryPage struct {
	TestHistory []HistoryRow `json:"testHistory"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

// percentage is the share of questions solved, or the score itself when the
// question count is unknown.
func percentage(r *models.TestResult) float64 {
	if r.TotalQuestions <= 0 {
		return r.Score
	}
	return math.Round(float64(r.Solved)/float64(r.TotalQuestions)*10000) / 100
}

// GetTestHistory lists a user's results newest first.
func (s *ProgressionService) GetTestHistory(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = DefaultHistoryLimit
	}

	var results []models.TestResult
	if err := s.Store.Query(ctx, s.Tables.TestResults, q.UserID, &results); err != nil {
		return nil, fmt.Errorf("query test results for %s: %w", q.UserID, err)
	}
	if q.AssessmentID != "" {
		kept := results[:0]
		for _, r := range results {
			if r.AssessmentID == q.AssessmentID {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].CreatedAt > results[j].CreatedAt })

	page := &HistoryPage{TestHistory: []HistoryRow{}, Total: len(results), Limit: q.Limit, Offset: q.Offset}
	for i := q.Offset; i < len(results) && i-q.Offset < q.Limit; i++ {
		r := &results[i]
		page.TestHistory = append(page.TestHistory, HistoryRow{
			TestResultID:    r.TestResultID,
			AssessmentID:    r.AssessmentID,
			AssessmentTitle: r.AssessmentTitle,
			Score:           r.Score,
			TotalQuestions:  r.TotalQuestions,
			Attempted:       r.Attempted,
			Solved:          r.Solved,
			Duration:        r.Duration,
			StartTime:       r.StartTime,
			XPEarned:        r.XPEarned,
			CreatedAt:       r.CreatedAt,
			Percentage:      percentage(r),
		})
	}
	return page, nil
}

// ProgressView is the snapshot as shown to its owner: the whole badge catalog
// with earned entries substituted.
func (s *ProgressionService) ProgressView(ctx context.Context, userID string) (*models.UserProgress, error) {
	if userID == "" {
		return nil, invalid("userId", "is required")
	}
	p, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := *p
	view.Badges = CatalogView(p)
	return &view, nil
}
