// Package lifecycle drives the competition state machine: it exposes the
// start/end transitions and runs a background watcher that forces the
// deadline-driven auto-finish transition even when nothing else is reading
// competition state.
package lifecycle

import (
	"context"
	"time"

	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/internal/store"
)

// pollInterval is how often the watcher re-reads competition state to pick
// up a deadline that has passed since the last read.
const pollInterval = 5 * time.Second

// Watcher periodically reads a competition's state so that Active
// competitions past their end time transition to Finished even if no API
// caller happens to read the state at the right moment.
type Watcher struct {
	store       *store.Store
	competition string
	log         *logging.Logger
}

// NewWatcher constructs a Watcher for one competition.
func NewWatcher(s *store.Store, competition string, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.NewFromEnv("lifecycle")
	}
	return &Watcher{store: s, competition: competition, log: log}
}

// Run polls until ctx is canceled. It is intended to be started as its own
// goroutine per competition.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.store.GetCompetitionState(ctx, w.competition); err != nil {
				w.log.Error(ctx, "failed to poll competition state", err, map[string]interface{}{
					"competition": w.competition,
				})
			}
		}
	}
}

// Start transitions a competition from Unstarted to Active.
func Start(ctx context.Context, s *store.Store, competition string, duration time.Duration) error {
	return s.StartCompetition(ctx, competition, duration)
}

// End transitions a competition from Active to Finished.
func End(ctx context.Context, s *store.Store, competition string) error {
	return s.EndCompetition(ctx, competition)
}

// State returns the current lifecycle state for a competition.
func State(ctx context.Context, s *store.Store, competition string) (store.CompetitionState, error) {
	return s.GetCompetitionState(ctx, competition)
}
