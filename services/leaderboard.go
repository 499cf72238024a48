package services

import (
	"context"
	"fmt"
	"sort"

	"mock-assessment-service/models"
	"mock-assessment-service/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 100
	placeholderAvatar       = "👤"
)

// LeaderboardService maintains the denormalized ranking rows. Rows are
// projections of UserProgress and may lag it; the reconciler repairs drift.
type LeaderboardService struct {
	Store  store.Store
	Tables store.Tables
	Clock  clockwork.Clock
	Log    *zap.Logger
}

func NewLeaderboardService(st store.Store, tables store.Tables, clock clockwork.Clock, log *zap.Logger) *LeaderboardService {
	return &LeaderboardService{Store: st, Tables: tables, Clock: clock, Log: log}
}

// displayName is the placeholder shown until a profile service supplies names.
func displayName(userID string) string {
	if len(userID) > 8 {
		userID = userID[:8]
	}
	return "User " + userID
}

// EntryFor projects a progress snapshot onto an "all" leaderboard row.
func EntryFor(p *models.UserProgress, updatedAt string) models.LeaderboardEntry {
	return models.LeaderboardEntry{
		Timeframe:      models.TimeframeAll,
		UserID:         p.UserID,
		Name:           displayName(p.UserID),
		Avatar:         placeholderAvatar,
		XP:             p.TotalXP,
		TestsCompleted: p.TestsCompleted,
		AvgScore:       p.AvgScore,
		Badges:         p.EarnedBadgeCount(),
		Level:          p.Level,
		UpdatedAt:      updatedAt,
	}
}

// Upsert rewrites the user's "all" row.
func (s *LeaderboardService) Upsert(ctx context.Context, p *models.UserProgress) error {
	entry := EntryFor(p, isoTimestamp(s.Clock.Now()))
	key := store.Key{Partition: entry.Timeframe, Sort: entry.UserID}
	if err := s.Store.Put(ctx, s.Tables.Leaderboard, key, entry); err != nil {
		return fmt.Errorf("upsert leaderboard row for %s: %w", p.UserID, err)
	}
	return nil
}

type LeaderboardQuery struct {
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit" validate:"min=0,max=1000"`
	Offset    int    `json:"offset" validate:"min=0"`
	UserID    string `json:"userId"`
}

type LeaderboardPage struct {
	Leaderboard []models.RankedEntry `json:"leaderboard"`
	Total       int                  `json:"total"`
	UserRank    *int                 `json:"userRank,omitempty"`
}

// GetLeaderboard ranks a timeframe by XP, highest first. Ranks are positions
// in the full ordering, so a page starting at offset N begins at rank N+1.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, q LeaderboardQuery) (*LeaderboardPage, error) {
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	if q.Timeframe == "" {
		q.Timeframe = models.TimeframeAll
	}
	if q.Limit == 0 {
		q.Limit = DefaultLeaderboardLimit
	}

	var rows []models.LeaderboardEntry
	if err := s.Store.Query(ctx, s.Tables.Leaderboard, q.Timeframe, &rows); err != nil {
		return nil, fmt.Errorf("query leaderboard %s: %w", q.Timeframe, err)
	}
	// ties keep userId order from the store
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].XP > rows[j].XP })

	page := &LeaderboardPage{Leaderboard: []models.RankedEntry{}, Total: len(rows)}
	for i, row := range rows {
		rank := i + 1
		if q.UserID != "" && row.UserID == q.UserID {
			page.UserRank = &rank
		}
		if i < q.Offset || i-q.Offset >= q.Limit {
			continue
		}
		page.Leaderboard = append(page.Leaderboard, models.RankedEntry{
			Rank:           rank,
			UserID:         row.UserID,
			Name:           row.Name,
			Avatar:         row.Avatar,
			XP:             row.XP,
			TestsCompleted: row.TestsCompleted,
			AvgScore:       row.AvgScore,
			Badges:         row.Badges,
			Level:          row.Level,
		})
	}
	return page, nil
}

// Rebuild rewrites the "all" row of every stored progress record and returns
// how many rows were written. A failed row is logged and skipped.
func (s *LeaderboardService) Rebuild(ctx context.Context) (int, error) {
	var all []models.UserProgress
	if err := s.Store.Scan(ctx, s.Tables.UserProgress, &all); err != nil {
		return 0, fmt.Errorf("scan progress: %w", err)
	}
	written := 0
	for i := range all {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := s.Upsert(ctx, &all[i]); err != nil {
			s.Log.Warn("leaderboard rebuild skipped row", zap.String("user_id", all[i].UserID), zap.Error(err))
			continue
		}
		written++
	}
	return written, nil
}
