package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

func TestLeaderboardAggregatesChecksAndFlagChecks(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	s := store.New(config.StoreConfig{Addr: mr.Addr()}, nil)
	ctx := context.Background()

	competition := config.Competition{
		Name:  "spring-2026",
		Teams: []config.Team{{Name: "red"}, {Name: "blue"}},
		Checks: []config.Check{
			{Name: "web-icmp", Points: 10},
		},
		FlagChecks: []config.FlagCheck{
			{Name: "flag-one", Points: 25},
		},
	}

	if err := s.StartCompetition(ctx, competition.Name, time.Hour); err != nil {
		t.Fatalf("StartCompetition() error = %v", err)
	}

	base := time.Now()
	for i := 0; i < 6; i++ {
		if err := s.RecordSuccessfulCheckResult(ctx, competition.Name, "web-icmp", base.Add(time.Duration(i)*time.Second), 1, 1); err != nil {
			t.Fatalf("RecordSuccessfulCheckResult() error = %v", err)
		}
	}
	if err := s.RecordSuccessfulCheckResult(ctx, competition.Name, "flag-one", base, 1, 1); err != nil {
		t.Fatalf("RecordSuccessfulCheckResult(flag) error = %v", err)
	}

	scores, err := Leaderboard(ctx, s, competition)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(scores))
	}
	if scores[0].Team != "red" {
		t.Errorf("rank 1 = %q, want red", scores[0].Team)
	}
	if scores[0].Total != 6*10+25 {
		t.Errorf("red total = %d, want %d", scores[0].Total, 6*10+25)
	}
	if scores[1].Total != 0 {
		t.Errorf("blue total = %d, want 0", scores[1].Total)
	}
}

func TestHistoryAtRespectsTimeCutoff(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	s := store.New(config.StoreConfig{Addr: mr.Addr()}, nil)
	ctx := context.Background()

	competition := config.Competition{
		Name:   "spring-2026",
		Teams:  []config.Team{{Name: "red"}},
		Checks: []config.Check{{Name: "web-icmp", Points: 10}},
	}
	if err := s.StartCompetition(ctx, competition.Name, time.Hour); err != nil {
		t.Fatalf("StartCompetition() error = %v", err)
	}

	early := time.Now()
	late := early.Add(10 * time.Second)
	if err := s.RecordSuccessfulCheckResult(ctx, competition.Name, "web-icmp", early, 1, 1); err != nil {
		t.Fatalf("RecordSuccessfulCheckResult(early) error = %v", err)
	}
	if err := s.RecordSuccessfulCheckResult(ctx, competition.Name, "web-icmp", late, 1, 1); err != nil {
		t.Fatalf("RecordSuccessfulCheckResult(late) error = %v", err)
	}

	points, err := HistoryAt(ctx, s, competition, early.Unix())
	if err != nil {
		t.Fatalf("HistoryAt() error = %v", err)
	}
	if len(points) != 1 || points[0].Total != 10 {
		t.Errorf("HistoryAt(early) = %+v, want total 10", points)
	}
}
