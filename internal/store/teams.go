package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-redis/redis/v8"

	"github.com/carveframework/carve/infrastructure/errors"
)

// GenerateTeamJoinCode mints a 9-digit registration code for a team, valid
// for 24 hours.
func (s *Store) GenerateTeamJoinCode(ctx context.Context, competition, team string) (uint64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900_000_000))
	if err != nil {
		return 0, errors.Internal("failed to generate join code", err)
	}
	code := n.Uint64() + 100_000_000
	key := competitionKey(competition, "team_join_codes")

	err = s.instrument(ctx, "generate_team_join_code", func() error {
		field := fmt.Sprintf("%d", code)
		if err := s.client.HSet(ctx, key, field, team).Err(); err != nil {
			return err
		}
		return s.client.Do(ctx, "HEXPIRE", key, 86400, "FIELDS", 1, field).Err()
	})
	if err != nil {
		return 0, errors.StoreOperation("generate_team_join_code", err)
	}
	return code, nil
}

// CheckTeamJoinCode resolves a join code to a team name, if it is still
// valid.
func (s *Store) CheckTeamJoinCode(ctx context.Context, competition string, code uint64) (string, bool, error) {
	key := competitionKey(competition, "team_join_codes")
	var team string
	var found bool
	err := s.instrument(ctx, "check_team_join_code", func() error {
		field := fmt.Sprintf("%d", code)
		v, err := s.client.HGet(ctx, key, field).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		team, found = v, true
		return nil
	})
	if err != nil {
		return "", false, errors.StoreOperation("check_team_join_code", err)
	}
	return team, found, nil
}

// GetTeamUsers returns all users currently assigned to a team.
func (s *Store) GetTeamUsers(ctx context.Context, competition, team string) ([]User, error) {
	key := teamKey(competition, team, "users")
	var usernames []string
	err := s.instrument(ctx, "get_team_users", func() error {
		var err error
		usernames, err = s.client.SMembers(ctx, key).Result()
		return err
	})
	if err != nil {
		return nil, errors.StoreOperation("get_team_users", err)
	}

	users := make([]User, 0, len(usernames))
	for _, username := range usernames {
		user, err := s.GetUser(ctx, competition, username)
		if err != nil {
			return nil, err
		}
		if user != nil {
			users = append(users, *user)
		}
	}
	return users, nil
}

// GetTeamWithLeastMembers returns the least-populated team name, useful for
// auto-assigning new registrants. Only teams with at least one assigned user
// are counted, so a team with no members is never returned; which team is
// returned among equal counts is not defined.
func (s *Store) GetTeamWithLeastMembers(ctx context.Context, competition string) (string, bool, error) {
	users, err := s.GetAllUsers(ctx, competition)
	if err != nil {
		return "", false, err
	}

	counts := make(map[string]int)
	for _, u := range users {
		if u.TeamName != nil {
			counts[*u.TeamName]++
		}
	}

	var minTeam string
	minCount := -1
	for team, count := range counts {
		if minCount == -1 || count < minCount {
			minTeam, minCount = team, count
		}
	}
	return minTeam, minCount != -1, nil
}
