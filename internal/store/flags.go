package store

import (
	"context"
	"fmt"
	"time"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/pkg/config"
)

// GenerateNewFlag mints a new redeemable flag string for a (team, flag
// check) pair, in the form "{competition}{xxxxxxxx}".
func (s *Store) GenerateNewFlag(ctx context.Context, competition, team, flagCheck string) (string, error) {
	suffix, err := generateLowercaseString(8)
	if err != nil {
		return "", errors.Internal("failed to generate flag", err)
	}
	value := fmt.Sprintf("%s{%s}", competition, suffix)
	key := fmt.Sprintf("%s:%s:%s:flags", competition, team, flagCheck)

	err = s.instrument(ctx, "generate_new_flag", func() error {
		return s.client.SAdd(ctx, key, value).Err()
	})
	if err != nil {
		return "", errors.StoreOperation("generate_new_flag", err)
	}
	return value, nil
}

// RedeemFlag checks whether flag is currently redeemable for (team,
// flagCheck.Name); if so it removes it, records a ledger event, updates
// CheckCurrentState, and publishes a toast.
func (s *Store) RedeemFlag(ctx context.Context, competition, team string, teamID uint64, flag string, flagCheck config.FlagCheck) (bool, error) {
	key := fmt.Sprintf("%s:%s:%s:flags", competition, team, flagCheck.Name)

	var exists bool
	err := s.instrument(ctx, "redeem_flag_check", func() error {
		var err error
		exists, err = s.client.SIsMember(ctx, key, flag).Result()
		return err
	})
	if err != nil {
		return false, errors.StoreOperation("redeem_flag", err)
	}
	if !exists {
		return false, nil
	}

	timestamp := time.Now()
	if err := s.RecordSuccessfulCheckResult(ctx, competition, flagCheck.Name, timestamp, teamID, 1); err != nil {
		return false, err
	}
	if err := s.SetCheckCurrentState(ctx, competition, team, flagCheck.Name, CheckCurrentState{
		Success:      true,
		Message:      []string{fmt.Sprintf("Flag redeemed: %s", flag)},
		SuccessCount: 1,
		TotalCount:   1,
	}); err != nil {
		return false, err
	}

	err = s.instrument(ctx, "redeem_flag_remove", func() error {
		if err := s.client.SRem(ctx, key, flag).Err(); err != nil {
			return err
		}
		sound := "flag_redeemed"
		return s.PublishToast(ctx, competition, ToastNotification{
			Title:       "Flag Redeemed",
			Message:     fmt.Sprintf("Team '%s' redeemed the flag '%s'.", team, flag),
			Severity:    ToastInfo,
			Team:        &team,
			SoundEffect: &sound,
		})
	})
	if err != nil {
		return false, errors.StoreOperation("redeem_flag", err)
	}
	return true, nil
}
