package overlay

import (
	"context"
	"time"

	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/internal/store"
)

// fdbTTL is the per-field TTL set on each FDB entry; the refresher must run
// more often than this to keep entries from expiring.
const fdbTTL = 20 * time.Second

// refreshInterval is conservatively shorter than fdbTTL so a single missed
// tick does not drop an entry.
const refreshInterval = 15 * time.Second

// FDBSource supplies the current MAC/IP pairs observed for a domain, e.g.
// read from the host bridge's neighbor table.
type FDBSource func(ctx context.Context, domain string) ([][2]string, error)

// FDBRefresher periodically republishes {mac, ip} pairs for a domain into
// the shared-state store so forwarding entries never outlive their TTL.
type FDBRefresher struct {
	store       *store.Store
	competition string
	domain      string
	source      FDBSource
	log         *logging.Logger
}

// NewFDBRefresher constructs a refresher for one competition's overlay
// domain.
func NewFDBRefresher(s *store.Store, competition, domain string, source FDBSource, log *logging.Logger) *FDBRefresher {
	if log == nil {
		log = logging.NewFromEnv("overlay")
	}
	return &FDBRefresher{store: s, competition: competition, domain: domain, source: source, log: log}
}

// Run blocks, republishing entries every refreshInterval until ctx is
// canceled.
func (r *FDBRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *FDBRefresher) refresh(ctx context.Context) {
	entries, err := r.source(ctx, r.domain)
	if err != nil {
		r.log.Error(ctx, "failed to read fdb entries", err, map[string]interface{}{"domain": r.domain})
		return
	}
	for _, entry := range entries {
		mac, ip := entry[0], entry[1]
		if err := r.store.CreateVXLANFDBEntry(ctx, r.competition, mac, ip, r.domain); err != nil {
			r.log.Error(ctx, "failed to refresh fdb entry", err, map[string]interface{}{
				"domain": r.domain, "mac": mac,
			})
		}
	}
}
