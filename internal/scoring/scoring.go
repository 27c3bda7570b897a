// Package scoring projects the shared-state store's per-(team, check)
// ledgers into a ranked leaderboard and time-bucketed historical series.
package scoring

import (
	"context"
	"sort"

	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

// TeamScore is one team's total and per-check point breakdown.
type TeamScore struct {
	Team       string         `json:"team"`
	Total      int64          `json:"total"`
	ByCheck    map[string]int64 `json:"by_check"`
}

// Leaderboard computes every team's total score, ranked highest first. A
// check contributes points × (number of distinct successful occurrences
// recorded in its ledger); flag checks contribute the same way, keyed by
// their own name.
func Leaderboard(ctx context.Context, s *store.Store, competition config.Competition) ([]TeamScore, error) {
	scores := make([]TeamScore, 0, len(competition.Teams))

	for _, team := range competition.Teams {
		teamID, ok := competition.TeamID(team.Name)
		if !ok {
			continue
		}

		score := TeamScore{Team: team.Name, ByCheck: map[string]int64{}}
		for _, check := range competition.Checks {
			points, err := s.GetTeamScoreByCheck(ctx, competition.Name, uint64(teamID), check.Name, int64(check.Points))
			if err != nil {
				return nil, err
			}
			score.ByCheck[check.Name] = points
			score.Total += points
		}
		for _, flagCheck := range competition.FlagChecks {
			points, err := s.GetTeamScoreByCheck(ctx, competition.Name, uint64(teamID), flagCheck.Name, int64(flagCheck.Points))
			if err != nil {
				return nil, err
			}
			score.ByCheck[flagCheck.Name] = points
			score.Total += points
		}

		scores = append(scores, score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Total > scores[j].Total
	})
	return scores, nil
}

// HistoricalPoint is one team's score as of a specific tick timestamp.
type HistoricalPoint struct {
	Team      string `json:"team"`
	Timestamp int64  `json:"timestamp"`
	Total     int64  `json:"total"`
}

// HistoryAt computes every team's total score as it stood at timestamp
// (inclusive), suitable for rendering a scoring timeline.
func HistoryAt(ctx context.Context, s *store.Store, competition config.Competition, timestamp int64) ([]HistoricalPoint, error) {
	points := make([]HistoricalPoint, 0, len(competition.Teams))

	for _, team := range competition.Teams {
		teamID, ok := competition.TeamID(team.Name)
		if !ok {
			continue
		}

		var total int64
		for _, check := range competition.Checks {
			count, err := s.GetSuccessfulChecksAtTime(ctx, competition.Name, uint64(teamID), check.Name, timestamp)
			if err != nil {
				return nil, err
			}
			total += count * int64(check.Points)
		}
		for _, flagCheck := range competition.FlagChecks {
			count, err := s.GetSuccessfulChecksAtTime(ctx, competition.Name, uint64(teamID), flagCheck.Name, timestamp)
			if err != nil {
				return nil, err
			}
			total += count * int64(flagCheck.Points)
		}

		points = append(points, HistoricalPoint{Team: team.Name, Timestamp: timestamp, Total: total})
	}

	return points, nil
}
