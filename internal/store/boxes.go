package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/infrastructure/metrics"
)

// GetBoxConsoleCode returns the team's novnc console access code, generating
// one on first call.
func (s *Store) GetBoxConsoleCode(ctx context.Context, competition, team string) (string, error) {
	key := competitionKey(competition, "box_console_codes")
	var code string
	err := s.instrument(ctx, "get_box_console_code", func() error {
		existing, err := s.client.HGet(ctx, key, team).Result()
		if err == nil {
			code = existing
			return nil
		}
		if err != redis.Nil {
			return err
		}
		code, err = generateAlphanumericString(32)
		if err != nil {
			return err
		}
		return s.client.HSet(ctx, key, team, code).Err()
	})
	if err != nil {
		return "", errors.StoreOperation("get_box_console_code", err)
	}
	return code, nil
}

// SendBoxEvent publishes a command to a box's event channel and emits a
// toast to the owning team.
func (s *Store) SendBoxEvent(ctx context.Context, competition, team, box string, command BoxCommand) error {
	key := boxKey(competition, team, box, "events")
	err := s.instrument(ctx, "send_box_event", func() error {
		payload, err := serializeToYAML(command)
		if err != nil {
			return err
		}
		if err := s.client.Publish(ctx, key, payload).Err(); err != nil {
			return err
		}
		return s.PublishToast(ctx, competition, ToastNotification{
			Title:    "Box Event",
			Message:  fmt.Sprintf("Box '%s' has received a '%s' command.", box, command),
			Severity: ToastWarning,
			Team:     &team,
		})
	})
	if err != nil {
		return errors.StoreOperation("send_box_event", err)
	}
	if m := metrics.Global(); m != nil {
		m.RecordBoxEvent(competition, string(command), false)
	}
	return nil
}

// WaitForBoxEvent blocks until a command in accept arrives on the box's
// channel, or ctx is canceled.
func (s *Store) WaitForBoxEvent(ctx context.Context, competition, team, box string, accept ...BoxCommand) (BoxCommand, error) {
	key := boxKey(competition, team, box, "events")
	pubsub := s.client.Subscribe(ctx, key)
	defer pubsub.Close()

	allowed := make(map[BoxCommand]bool, len(accept))
	for _, c := range accept {
		allowed[c] = true
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return "", errors.StoreOperation("wait_for_box_event", redis.ErrClosed)
			}
			var command BoxCommand
			if err := deserializeFromYAML(msg.Payload, &command); err != nil {
				continue
			}
			if allowed[command] {
				return command, nil
			}
		}
	}
}

// CreateCooldown marks a box as cooling down for the given duration.
func (s *Store) CreateCooldown(ctx context.Context, competition, team, box string, duration time.Duration) error {
	key := boxKey(competition, team, box, "cooldown")
	err := s.instrument(ctx, "create_cooldown", func() error {
		return s.client.Set(ctx, key, "active", duration).Err()
	})
	if err != nil {
		return errors.StoreOperation("create_cooldown", err)
	}
	return nil
}

// CooldownRemaining returns the remaining cooldown in seconds, or -1 if no
// cooldown is active.
func (s *Store) CooldownRemaining(ctx context.Context, competition, team, box string) (int64, error) {
	key := boxKey(competition, team, box, "cooldown")
	var ttl time.Duration
	err := s.instrument(ctx, "is_cooldown_ready", func() error {
		var err error
		ttl, err = s.client.TTL(ctx, key).Result()
		return err
	})
	if err != nil {
		return -1, errors.StoreOperation("is_cooldown_ready", err)
	}
	switch {
	case ttl == -2:
		return -1, nil // no cooldown set
	case ttl == -1:
		return 0, nil // cooldown set with no expiry
	default:
		return int64(ttl.Seconds()), nil
	}
}

// WriteBoxCredentials writes the username/password pair for a box if none
// has been set yet. Returns true if this call wrote the value.
func (s *Store) WriteBoxCredentials(ctx context.Context, competition, team, box, username, password string) (bool, error) {
	return s.writeBoxDataIfAbsent(ctx, competition, team, box, "credentials", username+":"+password)
}

// ReadBoxCredentials returns the username/password pair for a box, if set.
func (s *Store) ReadBoxCredentials(ctx context.Context, competition, team, box string) (username, password string, ok bool, err error) {
	val, ok, err := s.readBoxData(ctx, competition, team, box, "credentials")
	if err != nil || !ok {
		return "", "", false, err
	}
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return "", "", false, nil
	}
	return parts[0], parts[1], true, nil
}

// WriteSSHKeypair writes the private key for a box if none has been set yet.
func (s *Store) WriteSSHKeypair(ctx context.Context, competition, team, box, privateKey string) (bool, error) {
	return s.writeBoxDataIfAbsent(ctx, competition, team, box, "ssh_keypair", privateKey)
}

// ReadSSHKeypair returns the private key for a box, if set.
func (s *Store) ReadSSHKeypair(ctx context.Context, competition, team, box string) (string, bool, error) {
	return s.readBoxData(ctx, competition, team, box, "ssh_keypair")
}

func (s *Store) writeBoxDataIfAbsent(ctx context.Context, competition, team, box, suffix, data string) (bool, error) {
	key := boxKey(competition, team, box, suffix)
	var written bool
	err := s.instrument(ctx, "write_box_"+suffix, func() error {
		ok, err := s.client.SetNX(ctx, key, data, 0).Result()
		written = ok
		return err
	})
	if err != nil {
		return false, errors.StoreOperation("write_box_"+suffix, err)
	}
	return written, nil
}

func (s *Store) readBoxData(ctx context.Context, competition, team, box, suffix string) (string, bool, error) {
	key := boxKey(competition, team, box, suffix)
	var value string
	var found bool
	err := s.instrument(ctx, "read_box_"+suffix, func() error {
		v, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return "", false, errors.StoreOperation("read_box_"+suffix, err)
	}
	return value, found, nil
}

// RecordBoxIP remembers the allocated overlay IP for a box.
func (s *Store) RecordBoxIP(ctx context.Context, competition, team, box, ip string) error {
	key := boxKey(competition, team, box, "ip_address")
	err := s.instrument(ctx, "record_box_ip", func() error {
		return s.client.Set(ctx, key, ip, 0).Err()
	})
	if err != nil {
		return errors.StoreOperation("record_box_ip", err)
	}
	return nil
}

// RecordSuccessfulCheckResult appends occurrences successful-probe events to
// a team/check ledger, scored by timestamp. It is a no-op unless the
// competition is currently Active.
func (s *Store) RecordSuccessfulCheckResult(ctx context.Context, competition, check string, timestamp time.Time, teamID uint64, occurrences uint64) error {
	state, err := s.GetCompetitionState(ctx, competition)
	if err != nil {
		return err
	}
	if state.Status != StatusActive {
		return nil
	}

	key := fmt.Sprintf("%s:%d:%s", competition, teamID, check)
	ts := timestamp.Unix()
	err = s.instrument(ctx, "record_successful_check_result", func() error {
		pipe := s.client.Pipeline()
		for i := uint64(0); i < occurrences; i++ {
			member := fmt.Sprintf("%d:%d", ts, i)
			pipe.ZAdd(ctx, key, &redis.Z{Score: float64(ts), Member: member})
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return errors.StoreOperation("record_successful_check_result", err)
	}
	return nil
}

// GetTeamScoreByCheck returns the team's score for one check: ledger
// cardinality times the check's point value.
func (s *Store) GetTeamScoreByCheck(ctx context.Context, competition string, teamID uint64, check string, points int64) (int64, error) {
	key := fmt.Sprintf("%s:%d:%s", competition, teamID, check)
	var card int64
	err := s.instrument(ctx, "get_team_score_by_check", func() error {
		var err error
		card, err = s.client.ZCard(ctx, key).Result()
		return err
	})
	if err != nil {
		return 0, errors.StoreOperation("get_team_score_by_check", err)
	}
	return card * points, nil
}

// GetSuccessfulChecksAtTime returns the ledger count up to and including the
// given unix-second timestamp.
func (s *Store) GetSuccessfulChecksAtTime(ctx context.Context, competition string, teamID uint64, check string, timestamp int64) (int64, error) {
	key := fmt.Sprintf("%s:%d:%s", competition, teamID, check)
	var count int64
	err := s.instrument(ctx, "get_number_of_successful_checks_at_time", func() error {
		var err error
		count, err = s.client.ZCount(ctx, key, "-inf", strconv.FormatInt(timestamp, 10)).Result()
		return err
	})
	if err != nil {
		return 0, errors.StoreOperation("get_number_of_successful_checks_at_time", err)
	}
	return count, nil
}

// SetCheckCurrentState overwrites the latest outcome for a (team, check).
func (s *Store) SetCheckCurrentState(ctx context.Context, competition, team, checkOrFlagCheck string, state CheckCurrentState) error {
	key := teamKey(competition, team, "current_state")
	err := s.instrument(ctx, "set_check_current_state", func() error {
		encoded, err := serializeToYAML(state)
		if err != nil {
			return err
		}
		return s.client.HSet(ctx, key, checkOrFlagCheck, encoded).Err()
	})
	if err != nil {
		return errors.StoreOperation("set_check_current_state", err)
	}
	return nil
}

// GetCheckCurrentState returns the latest outcome for a (team, check),
// defaulting to an "Unsolved" record if none has been written yet.
func (s *Store) GetCheckCurrentState(ctx context.Context, competition, team, checkOrFlagCheck string) (CheckCurrentState, error) {
	key := teamKey(competition, team, "current_state")
	state := unsolvedCheckState()
	err := s.instrument(ctx, "get_check_current_state", func() error {
		raw, err := s.client.HGet(ctx, key, checkOrFlagCheck).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		return deserializeFromYAML(raw, &state)
	})
	if err != nil {
		return CheckCurrentState{}, errors.StoreOperation("get_check_current_state", err)
	}
	return state, nil
}

// CreateVXLANFDBEntry records a MAC->IP forwarding-database entry for a
// domain with a 20-second per-field TTL.
func (s *Store) CreateVXLANFDBEntry(ctx context.Context, competition, mac, ip, domain string) error {
	key := competitionKey(competition, "vxlan_fdb:"+domain)
	err := s.instrument(ctx, "create_vxlan_fdb_entry", func() error {
		if err := s.client.HSet(ctx, key, mac, ip).Err(); err != nil {
			return err
		}
		return s.client.Do(ctx, "HEXPIRE", key, 20, "FIELDS", 1, mac).Err()
	})
	if err != nil {
		return errors.StoreOperation("create_vxlan_fdb_entry", err)
	}
	if m := metrics.Global(); m != nil {
		count, cerr := s.client.HLen(ctx, key).Result()
		if cerr == nil {
			m.SetFDBEntries(competition, int(count))
		}
	}
	return nil
}

// GetDomainFDBEntries returns all (mac, ip) pairs for a domain.
func (s *Store) GetDomainFDBEntries(ctx context.Context, competition, domain string) ([][2]string, error) {
	key := competitionKey(competition, "vxlan_fdb:"+domain)
	var entries map[string]string
	err := s.instrument(ctx, "get_domain_fdb_entries", func() error {
		var err error
		entries, err = s.client.HGetAll(ctx, key).Result()
		return err
	})
	if err != nil {
		return nil, errors.StoreOperation("get_domain_fdb_entries", err)
	}
	result := make([][2]string, 0, len(entries))
	for mac, ip := range entries {
		result = append(result, [2]string{mac, ip})
	}
	return result, nil
}
