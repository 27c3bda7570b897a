package store

import (
	"context"

	"github.com/carveframework/carve/infrastructure/errors"
)

const apiKeysKey = "carve:api_keys"

// GenerateAPIKey mints and stores a new service-to-service API key.
func (s *Store) GenerateAPIKey(ctx context.Context) (string, error) {
	key, err := generateHexString(16)
	if err != nil {
		return "", errors.Internal("failed to generate API key", err)
	}
	err = s.instrument(ctx, "generate_api_key", func() error {
		return s.client.SAdd(ctx, apiKeysKey, key).Err()
	})
	if err != nil {
		return "", errors.StoreOperation("generate_api_key", err)
	}
	return key, nil
}

// RemoveAPIKey revokes a previously issued API key.
func (s *Store) RemoveAPIKey(ctx context.Context, apiKey string) error {
	err := s.instrument(ctx, "remove_api_key", func() error {
		return s.client.SRem(ctx, apiKeysKey, apiKey).Err()
	})
	if err != nil {
		return errors.StoreOperation("remove_api_key", err)
	}
	return nil
}

// APIKeyExists reports whether apiKey is currently valid.
func (s *Store) APIKeyExists(ctx context.Context, apiKey string) (bool, error) {
	var exists bool
	err := s.instrument(ctx, "check_api_key_exists", func() error {
		var err error
		exists, err = s.client.SIsMember(ctx, apiKeysKey, apiKey).Result()
		return err
	})
	if err != nil {
		return false, errors.StoreOperation("check_api_key_exists", err)
	}
	return exists, nil
}

// ListAPIKeys returns every currently valid API key.
func (s *Store) ListAPIKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.instrument(ctx, "get_api_keys", func() error {
		var err error
		keys, err = s.client.SMembers(ctx, apiKeysKey).Result()
		return err
	})
	if err != nil {
		return nil, errors.StoreOperation("get_api_keys", err)
	}
	return keys, nil
}
