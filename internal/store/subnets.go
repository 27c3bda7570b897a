package store

import "context"

// WriteSubnets persists the overlay fabric's `{c}:subnets` map. Each entry
// key is a team name (or "MGMT"); each value is the overlay package's
// encoded "{subnet},{team},{vxlan-id}" form.
func (s *Store) WriteSubnets(ctx context.Context, competition string, entries map[string]string) error {
	key := competitionKey(competition, "subnets")
	fields := make(map[string]interface{}, len(entries))
	for team, encoded := range entries {
		fields[team] = encoded
	}
	return s.instrument(ctx, "write_subnets", func() error {
		return s.client.HSet(ctx, key, fields).Err()
	})
}

// ReadSubnets returns the overlay fabric's `{c}:subnets` map as written by
// WriteSubnets.
func (s *Store) ReadSubnets(ctx context.Context, competition string) (map[string]string, error) {
	key := competitionKey(competition, "subnets")
	var entries map[string]string
	err := s.instrument(ctx, "read_subnets", func() error {
		var err error
		entries, err = s.client.HGetAll(ctx, key).Result()
		return err
	})
	return entries, err
}
