package store

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/internal/validate"
)

// RegisterUser upserts a user record, merging identity sources and moving
// team membership when a team is specified. Best-effort: the team move is
// not transactional with the user-data write.
func (s *Store) RegisterUser(ctx context.Context, competition string, user User, team string) error {
	if err := validate.Username(user.Username); err != nil {
		return err
	}
	if err := validate.Email(user.Email); err != nil {
		return err
	}

	usersKey := competitionKey(competition, "users")
	userDataKey := competitionKey(competition, "user_data")

	err := s.instrument(ctx, "register_user", func() error {
		existingRaw, err := s.client.HGet(ctx, userDataKey, user.Username).Result()
		var updated User
		if err == nil {
			if err := deserializeFromYAML(existingRaw, &updated); err != nil {
				return err
			}
			for _, src := range user.IdentitySources {
				if !updated.hasIdentitySource(src) {
					updated.IdentitySources = append(updated.IdentitySources, src)
				}
			}
			updated.Email = user.Email
			updated.TeamName = user.TeamName
		} else if err == redis.Nil {
			if err := s.client.SAdd(ctx, usersKey, user.Username).Err(); err != nil {
				return err
			}
			updated = user
		} else {
			return err
		}

		if team != "" {
			if err := s.moveUserToTeam(ctx, competition, user.Username, team); err != nil {
				return err
			}
			updated.TeamName = &team
		}

		encoded, err := serializeToYAML(updated)
		if err != nil {
			return err
		}
		return s.client.HSet(ctx, userDataKey, user.Username, encoded).Err()
	})
	if err != nil {
		return errors.StoreOperation("register_user", err)
	}
	return nil
}

// GetUser returns a single user by username, if they exist.
func (s *Store) GetUser(ctx context.Context, competition, username string) (*User, error) {
	usersKey := competitionKey(competition, "users")
	userDataKey := competitionKey(competition, "user_data")

	var user *User
	err := s.instrument(ctx, "get_user", func() error {
		exists, err := s.client.SIsMember(ctx, usersKey, username).Result()
		if err != nil || !exists {
			return err
		}
		raw, err := s.client.HGet(ctx, userDataKey, username).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var u User
		if err := deserializeFromYAML(raw, &u); err != nil {
			return err
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, errors.StoreOperation("get_user", err)
	}
	return user, nil
}

// GetAllUsers returns every registered user in a competition.
func (s *Store) GetAllUsers(ctx context.Context, competition string) ([]User, error) {
	usersKey := competitionKey(competition, "users")
	userDataKey := competitionKey(competition, "user_data")

	var users []User
	err := s.instrument(ctx, "get_all_users", func() error {
		usernames, err := s.client.SMembers(ctx, usersKey).Result()
		if err != nil {
			return err
		}
		for _, username := range usernames {
			raw, err := s.client.HGet(ctx, userDataKey, username).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return err
			}
			var u User
			if err := deserializeFromYAML(raw, &u); err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, errors.StoreOperation("get_all_users", err)
	}
	return users, nil
}

func (s *Store) moveUserToTeam(ctx context.Context, competition, username, newTeam string) error {
	pattern := competitionKey(competition, "*:users")
	teamKeys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	for _, key := range teamKeys {
		if err := s.client.SRem(ctx, key, username).Err(); err != nil {
			return err
		}
	}
	return s.client.SAdd(ctx, teamKey(competition, newTeam, "users"), username).Err()
}

// SetUserLocalPassword hashes and stores a local password, and records the
// LocalPassword identity source on the user.
func (s *Store) SetUserLocalPassword(ctx context.Context, competition, username, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return errors.Internal("failed to hash password", err)
	}

	passwordHashesKey := competitionKey(competition, "users:password_hashes")
	userDataKey := competitionKey(competition, "user_data")

	err = s.instrument(ctx, "set_user_local_password", func() error {
		if err := s.client.HSet(ctx, passwordHashesKey, username, hash).Err(); err != nil {
			return err
		}
		raw, err := s.client.HGet(ctx, userDataKey, username).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var user User
		if err := deserializeFromYAML(raw, &user); err != nil {
			return err
		}
		if !user.hasIdentitySource(IdentityLocalPassword) {
			user.IdentitySources = append(user.IdentitySources, IdentityLocalPassword)
			encoded, err := serializeToYAML(user)
			if err != nil {
				return err
			}
			return s.client.HSet(ctx, userDataKey, username, encoded).Err()
		}
		return nil
	})
	if err != nil {
		return errors.StoreOperation("set_user_local_password", err)
	}
	return nil
}

// VerifyUserLocalPassword returns the user record if username/password match.
func (s *Store) VerifyUserLocalPassword(ctx context.Context, competition, username, password string) (*User, error) {
	passwordHashesKey := competitionKey(competition, "users:password_hashes")
	userDataKey := competitionKey(competition, "user_data")

	var user *User
	err := s.instrument(ctx, "verify_user_local_password", func() error {
		hash, err := s.client.HGet(ctx, passwordHashesKey, username).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		ok, err := verifyPassword(password, hash)
		if err != nil || !ok {
			return err
		}
		raw, err := s.client.HGet(ctx, userDataKey, username).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var u User
		if err := deserializeFromYAML(raw, &u); err != nil {
			return err
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, errors.StoreOperation("verify_user_local_password", err)
	}
	return user, nil
}
