package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"mock-assessment-service/models"
	"mock-assessment-service/monitoring"
	"mock-assessment-service/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// PenaltyWeights is the XP deducted per proctoring violation.
type PenaltyWeights struct {
	TabSwitch      int64
	FullScreenExit int64
	CopyPaste      int64
	Hint           int64
}

var DefaultPenaltyWeights = PenaltyWeights{
	TabSwitch:      10,
	FullScreenExit: 5,
	CopyPaste:      2,
	Hint:           2,
}

// ScoreNormalizer converts a raw score into XP: twice the score, minus the
// weighted proctoring penalty, floored at zero and truncated.
func ScoreNormalizer(rawScore float64, proctoring *models.ProctoringData) int64 {
	xp := rawScore * 2
	if proctoring != nil {
		w := DefaultPenaltyWeights
		penalty := w.TabSwitch*int64(proctoring.TabSwitchCount) +
			w.FullScreenExit*int64(proctoring.FullScreenExitCount) +
			w.CopyPaste*int64(proctoring.CopyPasteAttempts) +
			w.Hint*int64(proctoring.HintsUsed)
		xp -= float64(penalty)
	}
	if xp <= 0 || math.IsNaN(xp) {
		return 0
	}
	return int64(xp)
}

// Cumulative XP required to leave levels 1..5. Level 0 is the lower bound of
// level 1.
var fixedThresholds = [...]int64{0, 500, 1000, 2000, 3000, 5000}

// nextThreshold returns ThresholdAfter(level) given ThresholdAfter(level-1).
// It is the only definition of the level curve; LevelOf and ThresholdAfter
// both walk it.
func nextThreshold(level int, prev int64) int64 {
	if level < len(fixedThresholds) {
		return fixedThresholds[level]
	}
	return prev * 3 / 2 // floor(prev * 1.5)
}

// ThresholdAfter is the cumulative XP needed to leave level (reach level+1).
// ThresholdAfter(0) is 0.
func ThresholdAfter(level int) int64 {
	var t int64
	for l := 1; l <= level; l++ {
		t = nextThreshold(l, t)
	}
	return t
}

// LevelOf maps cumulative XP to a level: the smallest L with
// totalXP < ThresholdAfter(L).
func LevelOf(totalXP int64) int {
	level := 1
	t := nextThreshold(1, 0)
	for totalXP >= t {
		level++
		t = nextThreshold(level, t)
	}
	return level
}

// CurrentXP is the XP earned inside the current level band.
func CurrentXP(totalXP int64) int64 {
	return totalXP - ThresholdAfter(LevelOf(totalXP)-1)
}

// applyLevel recomputes every level-derived field from TotalXP.
func applyLevel(p *models.UserProgress) {
	p.Level = LevelOf(p.TotalXP)
	p.CurrentXP = p.TotalXP - ThresholdAfter(p.Level-1)
	p.NextLevelXP = ThresholdAfter(p.Level)
}

// StreakWindow is the longest gap between activities that keeps a streak alive.
const StreakWindow = 24 * time.Hour

// StreakResult is the outcome of UpdateStreak. When Fallback is non-nil the
// previous activity could not be read and Streak is the unchanged count.
type StreakResult struct {
	Streak   int
	Fallback error
}

func (r StreakResult) Ok() bool { return r.Fallback == nil }

// UpdateStreak advances, resets or (on unreadable input) keeps the streak.
func UpdateStreak(lastActivity string, current int, now time.Time) StreakResult {
	if lastActivity == "" {
		return StreakResult{Streak: 1}
	}
	last, err := parseActivityTime(lastActivity)
	if err != nil {
		return StreakResult{Streak: current, Fallback: err}
	}
	if now.Sub(last) <= StreakWindow {
		return StreakResult{Streak: current + 1}
	}
	return StreakResult{Streak: 1}
}

var activityLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // no zone: UTC
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseActivityTime(s string) (time.Time, error) {
	for _, layout := range activityLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable lastActivityDate %q", s)
}

// isoTimestamp formats t the way every stored timestamp is written. The fixed
// width keeps lexical and chronological order identical.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}

// Submission is one submitted test result.
type Submission struct {
	UserID          string                 `json:"userId" validate:"required"`
	AssessmentID    string                 `json:"assessmentId" validate:"required"`
	AssessmentTitle string                 `json:"assessmentTitle" validate:"required"`
	Score           *float64               `json:"score" validate:"required,min=0,max=100"`
	TotalQuestions  int                    `json:"totalQuestions" validate:"min=0"`
	Attempted       int                    `json:"attempted" validate:"min=0"`
	Solved          int                    `json:"solved" validate:"min=0"`
	Duration        string                 `json:"duration"`
	StartTime       string                 `json:"startTime" validate:"required"`
	Difficulty      string                 `json:"difficulty"`
	TestMode        string                 `json:"testMode"`
	QuestionResults json.RawMessage        `json:"questionResults"`
	ProctoringData  *models.ProctoringData `json:"proctoringData" validate:"omitempty"`
}

// ActivityOutcome is what the caller renders after a successful write.
type ActivityOutcome struct {
	TestResultID  string   `json:"testResultId,omitempty"`
	XPEarned      int64    `json:"xpEarned"`
	BadgesEarned  []string `json:"badgesEarned"`
	LevelUp       bool     `json:"levelUp"`
	NewLevel      *int     `json:"newLevel"`
	StreakUpdated bool     `json:"streakUpdated"`
	CurrentStreak int      `json:"currentStreak"`

	Progress *models.UserProgress `json:"-"`
}

type ProgressionService struct {
	Store       store.Store
	Tables      store.Tables
	Leaderboard *LeaderboardService
	Clock       clockwork.Clock
	Log         *zap.Logger
}

func NewProgressionService(st store.Store, tables store.Tables, lb *LeaderboardService, clock clockwork.Clock, log *zap.Logger) *ProgressionService {
	return &ProgressionService{Store: st, Tables: tables, Leaderboard: lb, Clock: clock, Log: log}
}

// GetProgress returns the stored snapshot, or a zero snapshot (not persisted)
// for users without one.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var p models.UserProgress
	err := s.Store.Get(ctx, s.Tables.UserProgress, store.Key{Partition: userID}, &p)
	if errors.Is(err, store.ErrNotFound) {
		return models.NewUserProgress(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", userID, err)
	}
	if p.Badges == nil {
		p.Badges = []models.Badge{}
	}
	return &p, nil
}

// activity is one event fed through the shared update path.
type activity struct {
	xp        int64
	result    *models.TestResult // nil for challenge completions
	challenge bool
}

// advance applies streak, XP, level, counters and badges to p in that order;
// badge predicates observe the post-update snapshot.
func (s *ProgressionService) advance(p *models.UserProgress, a activity, now time.Time) *ActivityOutcome {
	oldStreak := p.Streak
	oldLevel := LevelOf(p.TotalXP)

	streak := UpdateStreak(p.LastActivityDate, p.Streak, now)
	if !streak.Ok() {
		monitoring.StreakFallbacks.Inc()
		s.Log.Warn("keeping previous streak",
			zap.String("user_id", p.UserID),
			zap.Int("streak", p.Streak),
			zap.Error(streak.Fallback))
	}
	p.Streak = streak.Streak
	p.LastActivityDate = isoTimestamp(now)

	p.TotalXP += a.xp
	applyLevel(p)

	if a.result != nil {
		p.TestsCompleted++
		n := float64(p.TestsCompleted)
		p.AvgScore = math.Round((p.AvgScore*(n-1)+a.result.Score)/n*100) / 100
	}
	if a.challenge {
		p.DailyChallengesCompleted++
	}

	awards := EvaluateBadges(p, a.result, now)
	p.Badges = MergeBadges(p.Badges, awards)
	p.UpdatedAt = isoTimestamp(now)

	out := &ActivityOutcome{
		XPEarned:      a.xp,
		BadgesEarned:  make([]string, 0, len(awards)),
		LevelUp:       p.Level > oldLevel,
		StreakUpdated: p.Streak > oldStreak,
		CurrentStreak: p.Streak,
		Progress:      p,
	}
	for _, b := range awards {
		out.BadgesEarned = append(out.BadgesEarned, b.ID)
	}
	if out.LevelUp {
		lvl := p.Level
		out.NewLevel = &lvl
	}
	return out
}

// SubmitActivity records a test result and updates the user's progress.
//
// The result row is written before the progress record; if the progress write
// fails the result row is removed again so the caller never sees XP that was
// not durably credited. Concurrent submissions for one user are last-writer-wins.
func (s *ProgressionService) SubmitActivity(ctx context.Context, sub Submission) (*ActivityOutcome, error) {
	if err := validateStruct(sub); err != nil {
		return nil, err
	}

	progress, err := s.GetProgress(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	xp := ScoreNormalizer(*sub.Score, sub.ProctoringData)
	result := &models.TestResult{
		UserID:          sub.UserID,
		TestResultID:    uuid.NewString(),
		AssessmentID:    sub.AssessmentID,
		AssessmentTitle: sub.AssessmentTitle,
		Score:           *sub.Score,
		TotalQuestions:  sub.TotalQuestions,
		Attempted:       sub.Attempted,
		Solved:          sub.Solved,
		Duration:        sub.Duration,
		StartTime:       sub.StartTime,
		Difficulty:      sub.Difficulty,
		TestMode:        sub.TestMode,
		XPEarned:        xp,
		QuestionResults: sub.QuestionResults,
		ProctoringData:  sub.ProctoringData,
		CreatedAt:       isoTimestamp(now),
	}

	out := s.advance(progress, activity{xp: xp, result: result}, now)
	out.TestResultID = result.TestResultID

	resultKey := store.Key{Partition: result.UserID, Sort: result.TestResultID}
	if err := s.Store.Put(ctx, s.Tables.TestResults, resultKey, result); err != nil {
		return nil, fmt.Errorf("save test result: %w", err)
	}
	if err := s.writeProgress(ctx, progress); err != nil {
		if derr := s.Store.Delete(ctx, s.Tables.TestResults, resultKey); derr != nil {
			s.Log.Error("orphaned test result after failed progress write",
				zap.String("user_id", result.UserID),
				zap.String("test_result_id", result.TestResultID),
				zap.Error(derr))
		}
		return nil, err
	}

	s.recordMetrics(out)
	s.Log.Info("test result submitted",
		zap.String("user_id", sub.UserID),
		zap.String("assessment_id", sub.AssessmentID),
		zap.Int64("xp", xp),
		zap.Int64("total_xp", progress.TotalXP),
		zap.Int("level", progress.Level),
		zap.Strings("badges", out.BadgesEarned))
	return out, nil
}

// creditChallenge runs a challenge completion through the engine. Tests
// completed and the average score are left alone.
func (s *ProgressionService) creditChallenge(ctx context.Context, userID string, xp int64) (*ActivityOutcome, error) {
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := s.advance(progress, activity{xp: xp, challenge: true}, s.Clock.Now())
	if err := s.writeProgress(ctx, progress); err != nil {
		return nil, err
	}
	s.recordMetrics(out)
	return out, nil
}

// writeProgress persists the full snapshot (primary write, errors propagate)
// and then pushes the leaderboard row (best effort, errors only logged).
func (s *ProgressionService) writeProgress(ctx context.Context, p *models.UserProgress) error {
	if err := s.Store.Put(ctx, s.Tables.UserProgress, store.Key{Partition: p.UserID}, p); err != nil {
		return fmt.Errorf("save progress for %s: %w", p.UserID, err)
	}
	if s.Leaderboard == nil {
		return nil
	}
	if err := s.Leaderboard.Upsert(ctx, p); err != nil {
		monitoring.LeaderboardWriteFailures.Inc()
		s.Log.Warn("leaderboard update failed", zap.String("user_id", p.UserID), zap.Error(err))
	}
	return nil
}

func (s *ProgressionService) recordMetrics(out *ActivityOutcome) {
	monitoring.XPAwarded.Add(float64(out.XPEarned))
	if out.LevelUp {
		monitoring.LevelUps.Inc()
	}
	for _, id := range out.BadgesEarned {
		monitoring.BadgesAwarded.WithLabelValues(id).Inc()
	}
}
