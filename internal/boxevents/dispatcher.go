// Package boxevents gates VM commands (restore/stop/snapshot) requested by
// a team behind a per-box cooldown and a global dispatch rate limit before
// publishing them on the box event channel.
package boxevents

import (
	"context"
	"time"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/infrastructure/metrics"
	"github.com/carveframework/carve/infrastructure/ratelimit"
	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

// Dispatcher publishes box commands on behalf of teams, rejecting requests
// made before a box's cooldown has elapsed and throttling the overall rate
// of commands sent to the overlay's hypervisor agents.
type Dispatcher struct {
	store       *store.Store
	competition config.Competition
	limiter     *ratelimit.RateLimiter
	log         *logging.Logger
}

// NewDispatcher constructs a Dispatcher for one competition. The limiter
// bounds aggregate command throughput across all teams, independent of any
// single box's cooldown.
func NewDispatcher(s *store.Store, competition config.Competition, limiter *ratelimit.RateLimiter, log *logging.Logger) *Dispatcher {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.RateLimitConfig{RequestsPerSecond: 10, Burst: 20})
	}
	if log == nil {
		log = logging.NewFromEnv("boxevents")
	}
	return &Dispatcher{store: s, competition: competition, limiter: limiter, log: log}
}

// Dispatch sends command for (team, box) if the dispatcher's overall rate
// limit allows it. Restore additionally requires the box's cooldown to
// have elapsed, and arms a fresh cooldown once sent; Stop and Snapshot
// carry no cooldown of their own.
func (d *Dispatcher) Dispatch(ctx context.Context, team, box string, command store.BoxCommand) error {
	if command == store.BoxCommandRestore {
		remaining, err := d.store.CooldownRemaining(ctx, d.competition.Name, team, box)
		if err != nil {
			return err
		}
		if remaining > 0 {
			if m := metrics.Global(); m != nil {
				m.RecordBoxEvent(d.competition.Name, string(command), true)
			}
			return errors.RateLimitExceeded(1, (time.Duration(remaining) * time.Second).String())
		}
	}

	if !d.limiter.Allow() {
		if m := metrics.Global(); m != nil {
			m.RecordBoxEvent(d.competition.Name, string(command), true)
		}
		return errors.RateLimitExceeded(1, "1s")
	}

	if err := d.store.SendBoxEvent(ctx, d.competition.Name, team, box, command); err != nil {
		return err
	}

	if command == store.BoxCommandRestore {
		cooldown := time.Duration(d.competition.CooldownDuration()) * time.Second
		if err := d.store.CreateCooldown(ctx, d.competition.Name, team, box, cooldown); err != nil {
			d.log.Error(ctx, "failed to arm cooldown after dispatching box event", err, map[string]interface{}{
				"team": team, "box": box, "command": string(command),
			})
		}
	}
	return nil
}

// Await blocks until a box publishes one of the accepted commands or ctx is
// canceled, forwarding to the store's subscription.
func (d *Dispatcher) Await(ctx context.Context, team, box string, accept ...store.BoxCommand) (store.BoxCommand, error) {
	return d.store.WaitForBoxEvent(ctx, d.competition.Name, team, box, accept...)
}
