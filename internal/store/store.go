// Package store implements the shared-state store: a typed facade over a
// Redis-compatible broker holding competition state, check history,
// credentials, events, and notifications for the Carve engine.
package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/infrastructure/metrics"
	"github.com/carveframework/carve/pkg/config"
)

// Store wraps a Redis client with the operations the engine needs.
type Store struct {
	client *redis.Client
	log    *logging.Logger
}

// New constructs a Store from the given broker configuration.
func New(cfg config.StoreConfig, log *logging.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if log == nil {
		log = logging.NewFromEnv("store")
	}
	return &Store{client: client, log: log}
}

// Ping verifies connectivity to the broker.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) instrument(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if m := metrics.Global(); m != nil {
		m.RecordStoreOperation(operation, status, duration)
	}
	s.log.LogStoreOperation(ctx, operation, duration, err)
	return err
}

// competitionKey builds a key scoped to a competition, e.g. "{comp}:users".
func competitionKey(competition, suffix string) string {
	return fmt.Sprintf("%s:%s", competition, suffix)
}

// teamKey builds a key scoped to a competition/team pair.
func teamKey(competition, team, suffix string) string {
	return fmt.Sprintf("%s:%s:%s", competition, team, suffix)
}

// boxKey builds a key scoped to a competition/team/box triple.
func boxKey(competition, team, box, suffix string) string {
	return fmt.Sprintf("%s:%s:%s:%s", competition, team, box, suffix)
}

const alphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const lowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const hexAlphabet = "0123456789abcdef"

func randomString(alphabet string, length int) (string, error) {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

func generateAlphanumericString(length int) (string, error) {
	return randomString(alphanumericAlphabet, length)
}

func generateLowercaseString(length int) (string, error) {
	return randomString(lowercaseAlphabet, length)
}

func generateHexString(length int) (string, error) {
	return randomString(hexAlphabet, length)
}

func serializeToYAML(v interface{}) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func deserializeFromYAML(data string, v interface{}) error {
	return yaml.Unmarshal([]byte(data), v)
}
