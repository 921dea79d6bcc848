package service

import (
	"context"
	"sort"

	"checkinBoard/internal/model"
)

func (s *service) Stats(ctx context.Context) (*model.Stats, error) {
	return s.repo.StatsSnapshot(ctx)
}

// Leaderboard ranks by total points; equal totals keep insertion order.
// A non-positive limit means DefaultLeaderboardLimit.
func (s *service) Leaderboard(ctx context.Context, limit int) ([]model.Attendee, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	attendees, err := s.repo.GetAllAttendees(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(attendees, func(i, j int) bool {
		return attendees[i].TotalPoints > attendees[j].TotalPoints
	})
	if len(attendees) > limit {
		attendees = attendees[:limit]
	}
	return attendees, nil
}
