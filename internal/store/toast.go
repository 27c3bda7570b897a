package store

import (
	"context"

	"github.com/carveframework/carve/infrastructure/errors"
)

// PublishToast broadcasts a UI notification on a competition's toast
// channel. A nil Team/User field means the toast applies to the whole
// competition; subscribers filter by their own scope.
func (s *Store) PublishToast(ctx context.Context, competition string, toast ToastNotification) error {
	key := competitionKey(competition, "toast")
	err := s.instrument(ctx, "publish_toast", func() error {
		payload, err := serializeToYAML(toast)
		if err != nil {
			return err
		}
		return s.client.Publish(ctx, key, payload).Err()
	})
	if err != nil {
		return errors.StoreOperation("publish_toast", err)
	}
	return nil
}
