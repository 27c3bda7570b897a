package store

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/infrastructure/metrics"
)

// GetCompetitionState returns the current lifecycle state for a competition,
// creating an Unstarted default on first read. An Active competition whose
// end time has passed is transitioned to Finished and persisted before it is
// returned.
func (s *Store) GetCompetitionState(ctx context.Context, competition string) (CompetitionState, error) {
	key := competitionKey(competition, "state")
	var state CompetitionState

	err := s.instrument(ctx, "get_competition_state", func() error {
		raw, err := s.client.HGet(ctx, key, "state").Result()
		if err == redis.Nil {
			state = CompetitionState{Name: competition, Status: StatusUnstarted}
			encoded, encErr := serializeToYAML(state)
			if encErr != nil {
				return encErr
			}
			return s.client.HSet(ctx, key, "state", encoded).Err()
		}
		if err != nil {
			return err
		}
		if err := deserializeFromYAML(raw, &state); err != nil {
			return err
		}
		if state.Status == StatusActive && state.EndTime != nil && !time.Now().Before(*state.EndTime) {
			state.Status = StatusFinished
			encoded, encErr := serializeToYAML(state)
			if encErr != nil {
				return encErr
			}
			if err := s.client.HSet(ctx, key, "state", encoded).Err(); err != nil {
				return err
			}
			if err := s.publish(ctx, competitionKey(competition, "events"), encoded); err != nil {
				return err
			}
			if m := metrics.Global(); m != nil {
				m.RecordStateTransition(competition, string(StatusActive), string(StatusFinished))
			}
		}
		return nil
	})
	if err != nil {
		return CompetitionState{}, errors.StoreOperation("get_competition_state", err)
	}
	return state, nil
}

// StartCompetition transitions a competition from Unstarted to Active. If
// duration is non-zero, the end time is set to start-time + duration.
func (s *Store) StartCompetition(ctx context.Context, competition string, duration time.Duration) error {
	current, err := s.GetCompetitionState(ctx, competition)
	if err != nil {
		return err
	}
	switch current.Status {
	case StatusActive:
		return errors.AlreadyStarted(competition)
	case StatusFinished:
		return errors.StateConflict(string(StatusFinished), string(StatusActive))
	}

	start := time.Now()
	var end *time.Time
	if duration > 0 {
		e := start.Add(duration)
		end = &e
	}
	newState := CompetitionState{Name: competition, Status: StatusActive, StartTime: &start, EndTime: end}

	err = s.instrument(ctx, "start_competition", func() error {
		encoded, err := serializeToYAML(newState)
		if err != nil {
			return err
		}
		key := competitionKey(competition, "state")
		if err := s.client.HSet(ctx, key, "state", encoded).Err(); err != nil {
			return err
		}
		if err := s.publish(ctx, competitionKey(competition, "events"), encoded); err != nil {
			return err
		}
		return s.PublishToast(ctx, competition, ToastNotification{
			Title:    "Competition Started",
			Message:  "The competition '" + competition + "' has started.",
			Severity: ToastInfo,
		})
	})
	if err != nil {
		return errors.StoreOperation("start_competition", err)
	}
	if m := metrics.Global(); m != nil {
		m.RecordStateTransition(competition, string(StatusUnstarted), string(StatusActive))
	}
	return nil
}

// EndCompetition transitions a competition from Active to Finished.
func (s *Store) EndCompetition(ctx context.Context, competition string) error {
	current, err := s.GetCompetitionState(ctx, competition)
	if err != nil {
		return err
	}
	if current.Status != StatusActive {
		return errors.NotActive(competition)
	}

	end := time.Now()
	newState := CompetitionState{Name: competition, Status: StatusFinished, StartTime: current.StartTime, EndTime: &end}

	err = s.instrument(ctx, "end_competition", func() error {
		encoded, err := serializeToYAML(newState)
		if err != nil {
			return err
		}
		key := competitionKey(competition, "state")
		if err := s.client.HSet(ctx, key, "state", encoded).Err(); err != nil {
			return err
		}
		if err := s.publish(ctx, competitionKey(competition, "events"), encoded); err != nil {
			return err
		}
		return s.PublishToast(ctx, competition, ToastNotification{
			Title:    "Competition Ended",
			Message:  "The competition '" + competition + "' has ended.",
			Severity: ToastInfo,
		})
	})
	if err != nil {
		return errors.StoreOperation("end_competition", err)
	}
	if m := metrics.Global(); m != nil {
		m.RecordStateTransition(competition, string(StatusActive), string(StatusFinished))
	}
	return nil
}

// WaitForCompetitionEvent blocks until the next lifecycle state is published,
// or ctx is canceled.
func (s *Store) WaitForCompetitionEvent(ctx context.Context, competition string) (CompetitionState, error) {
	pubsub := s.client.Subscribe(ctx, competitionKey(competition, "events"))
	defer pubsub.Close()

	select {
	case <-ctx.Done():
		return CompetitionState{}, ctx.Err()
	case msg, ok := <-pubsub.Channel():
		if !ok {
			return CompetitionState{}, errors.StoreOperation("wait_for_competition_event", redis.ErrClosed)
		}
		var state CompetitionState
		if err := deserializeFromYAML(msg.Payload, &state); err != nil {
			return CompetitionState{}, errors.StoreOperation("wait_for_competition_event", err)
		}
		return state, nil
	}
}

func (s *Store) publish(ctx context.Context, channel, payload string) error {
	return s.client.Publish(ctx, channel, payload).Err()
}
