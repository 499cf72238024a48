package services

import (
	"context"
	"errors"
	"fmt"

	"mock-assessment-service/models"
	"mock-assessment-service/store"

	"go.uber.org/zap"
)

const (
	ChallengeXP        = 50
	ChallengePassScore = 70
)

// ChallengeXPFor is the full reward at or above the pass score, proportional
// below it.
func ChallengeXPFor(score float64) int64 {
	if score >= ChallengePassScore {
		return ChallengeXP
	}
	if score <= 0 {
		return 0
	}
	return int64(ChallengeXP * (score / ChallengePassScore))
}

type ChallengeService struct {
	Progress *ProgressionService
}

func NewChallengeService(progress *ProgressionService) *ChallengeService {
	return &ChallengeService{Progress: progress}
}

type ChallengeView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	XPReward     int64  `json:"xpReward"`
	TimeLimit    int    `json:"timeLimit"`
	Completed    bool   `json:"completed"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	AssessmentID string `json:"assessmentId,omitempty"`
}

// GetDailyChallenge returns the first challenge scheduled for date (today, UTC,
// when empty) and whether userID has completed it.
func (s *ChallengeService) GetDailyChallenge(ctx context.Context, userID, date string) (*ChallengeView, error) {
	p := s.Progress
	if date == "" {
		date = p.Clock.Now().UTC().Format("2006-01-02")
	}

	var challenges []models.DailyChallenge
	if err := p.Store.Query(ctx, p.Tables.DailyChallenges, date, &challenges); err != nil {
		return nil, fmt.Errorf("query challenges for %s: %w", date, err)
	}
	if len(challenges) == 0 {
		return nil, notFound("CHALLENGE_NOT_FOUND", "No challenge found for this date")
	}
	c := challenges[0]

	view := &ChallengeView{
		ID:           c.ChallengeID,
		Title:        c.Title,
		Topic:        c.Topic,
		Difficulty:   c.Difficulty,
		XPReward:     c.XPReward,
		TimeLimit:    c.TimeLimit,
		ExpiresAt:    c.ExpiresAt,
		AssessmentID: c.AssessmentID,
	}
	if userID != "" {
		done, err := s.completed(ctx, userID, c.ChallengeID)
		if err != nil {
			return nil, err
		}
		view.Completed = done
	}
	return view, nil
}

func (s *ChallengeService) completed(ctx context.Context, userID, challengeID string) (bool, error) {
	p := s.Progress
	var existing models.DailyChallengeCompletion
	err := p.Store.Get(ctx, p.Tables.DailyChallengeCompletions, store.Key{Partition: userID, Sort: challengeID}, &existing)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("load completion %s/%s: %w", userID, challengeID, err)
	}
}

type ChallengeCompletion struct {
	UserID      string  `json:"userId" validate:"required"`
	ChallengeID string  `json:"challengeId" validate:"required"`
	Score       float64 `json:"score" validate:"min=0,max=100"`
}

// CompleteDailyChallenge records a completion once per user and challenge and
// credits its XP through the progress engine. If the progress write fails the
// completion row is removed so the challenge can be retried.
func (s *ChallengeService) CompleteDailyChallenge(ctx context.Context, in ChallengeCompletion) (*ActivityOutcome, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	p := s.Progress

	done, err := s.completed(ctx, in.UserID, in.ChallengeID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, conflict("CHALLENGE_ALREADY_COMPLETED", "Challenge already completed")
	}

	now := p.Clock.Now()
	xp := ChallengeXPFor(in.Score)
	key := store.Key{Partition: in.UserID, Sort: in.ChallengeID}
	completion := models.DailyChallengeCompletion{
		UserID:      in.UserID,
		ChallengeID: in.ChallengeID,
		Date:        now.UTC().Format("2006-01-02"),
		Score:       in.Score,
		XPEarned:    xp,
		CompletedAt: isoTimestamp(now),
	}
	if err := p.Store.Put(ctx, p.Tables.DailyChallengeCompletions, key, completion); err != nil {
		return nil, fmt.Errorf("save completion: %w", err)
	}

	out, err := p.creditChallenge(ctx, in.UserID, xp)
	if err != nil {
		if derr := p.Store.Delete(ctx, p.Tables.DailyChallengeCompletions, key); derr != nil {
			p.Log.Error("orphaned challenge completion after failed progress write",
				zap.String("user_id", in.UserID),
				zap.String("challenge_id", in.ChallengeID),
				zap.Error(derr))
		}
		return nil, err
	}

	p.Log.Info("daily challenge completed",
		zap.String("user_id", in.UserID),
		zap.String("challenge_id", in.ChallengeID),
		zap.Int64("xp", xp))
	return out, nil
}
