// Package scheduler runs one periodic worker per (competition, check),
// resolving each team's box over the overlay DNS server, dispatching the
// configured probe, and recording outcomes into the shared-state store.
package scheduler

import (
	"context"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/infrastructure/metrics"
	"github.com/carveframework/carve/internal/probe"
	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

// Worker runs one check's periodic probe cycle against every eligible
// (team, box) pair in a competition.
type Worker struct {
	competition config.Competition
	check       config.Check
	store       *store.Store
	log         *logging.Logger
}

// NewWorker constructs a Worker for one (competition, check) pair.
func NewWorker(competition config.Competition, check config.Check, s *store.Store, log *logging.Logger) *Worker {
	if log == nil {
		log = logging.NewFromEnv("scheduler")
	}
	return &Worker{competition: competition, check: check, store: s, log: log}
}

// Run blocks, executing one tick every check.IntervalSeconds, phase-aligned
// to the wall clock, until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	interval := time.Duration(w.check.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	for {
		tickTime := nextTick(time.Now(), interval)
		timer := time.NewTimer(time.Until(tickTime))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.runTick(ctx, tickTime)
		}
	}
}

// nextTick returns the next multiple of interval since the unix epoch that
// lies strictly after now (an exact multiple advances by a full interval),
// aligning all workers to a shared phase: t_next = I * (floor(now/I) + 1).
func nextTick(now time.Time, interval time.Duration) time.Time {
	unix := now.Unix()
	step := int64(interval.Seconds())
	if step <= 0 {
		step = 1
	}
	next := ((unix / step) + 1) * step
	return time.Unix(next, 0)
}

func (w *Worker) runTick(ctx context.Context, tickTime time.Time) {
	if m := metrics.Global(); m != nil {
		m.IncrementChecksInFlight()
		defer m.DecrementChecksInFlight()
	}

	for _, team := range w.competition.Teams {
		var selected []config.Box
		for _, box := range w.competition.Boxes {
			if matchesSelector(w.check.LabelSelector, box) {
				selected = append(selected, box)
			}
		}
		if len(selected) == 0 {
			continue
		}
		w.runTeam(ctx, team, selected, tickTime)
	}
}

// matchesSelector reports whether box satisfies check's label selector.
// An empty selector matches every box; otherwise every value in the
// selector must equal the box's entire labels string. Selector keys are not
// consulted, and the labels string is not split into key/value pairs.
//
// The reference implementation instead dereferences label_selector.get("")
// against the box's raw labels string, which only ever matches a selector
// keyed by the empty string. That behavior looks unintentional and is not
// reproduced here.
func matchesSelector(selector map[string]string, box config.Box) bool {
	if len(selector) == 0 {
		return true
	}
	for _, want := range selector {
		if box.Labels != want {
			return false
		}
	}
	return true
}

// runTeam probes every selected box for one team, aggregates the per-box
// results into a single CheckCurrentState, and issues one write for
// (team, check) this tick. Boxes whose hostname does not yet resolve are
// excluded from the selected set entirely rather than counted as a failure.
func (w *Worker) runTeam(ctx context.Context, team config.Team, boxes []config.Box, tickTime time.Time) {
	previous, err := w.store.GetCheckCurrentState(ctx, w.competition.Name, team.Name, w.check.Name)
	if err != nil {
		w.log.Error(ctx, "failed to read previous check state", err, nil)
		previous = store.CheckCurrentState{Success: true}
	}

	var (
		passingBoxes []string
		messages     []string
		selected     int
	)

	for _, box := range boxes {
		hostname := w.competition.Hostname(team.Name, box.Name)
		ip, ok := resolveHost(ctx, hostname, w.competition.DNS)
		if !ok {
			w.log.Debug(ctx, "box has no dns entry yet, skipping", map[string]interface{}{
				"hostname": hostname,
			})
			continue
		}
		selected++

		start := time.Now()
		result := probe.Run(ctx, w.check.Name, w.check.Spec, ip)
		duration := time.Since(start)

		status := "fail"
		if result.Success {
			status = "pass"
			passingBoxes = append(passingBoxes, box.Name)
		}
		if m := metrics.Global(); m != nil {
			m.RecordCheck(w.check.Name, team.Name, string(w.check.Spec.Type), status, duration)
		}
		w.log.LogCheckResult(ctx, w.check.Name, team.Name, box.Name, result.Success, result.Message)
		messages = append(messages, result.Message)
	}

	if selected == 0 {
		return
	}

	success := len(passingBoxes) == selected
	failures := previous.NumberOfFailures + 1
	if success {
		failures = 0
	}

	if err := w.store.SetCheckCurrentState(ctx, w.competition.Name, team.Name, w.check.Name, store.CheckCurrentState{
		Success:          success,
		NumberOfFailures: failures,
		Message:          messages,
		SuccessCount:     uint64(len(passingBoxes)),
		TotalCount:       uint64(selected),
		PassingBoxes:     passingBoxes,
	}); err != nil {
		w.log.Error(ctx, "failed to set check state", err, nil)
	}

	if len(passingBoxes) == 0 {
		return
	}
	teamID, ok := w.competition.TeamID(team.Name)
	if !ok {
		return
	}
	if err := w.store.RecordSuccessfulCheckResult(ctx, w.competition.Name, w.check.Name, tickTime, uint64(teamID), uint64(len(passingBoxes))); err != nil {
		w.log.Error(ctx, "failed to record check result", err, nil)
		return
	}
	if m := metrics.Global(); m != nil {
		score, err := w.store.GetTeamScoreByCheck(ctx, w.competition.Name, uint64(teamID), w.check.Name, int64(w.check.Points))
		if err == nil {
			m.RecordLedgerWrite(w.competition.Name, team.Name, w.check.Name, float64(score))
		}
	}
}

// resolveHost resolves hostname to an IP address via the competition's
// configured DNS server, matching the reference's external `dig` usage.
func resolveHost(ctx context.Context, hostname, dnsServer string) (string, bool) {
	out, err := exec.CommandContext(ctx, "dig", hostname, "@"+dnsServer, "+short").Output()
	if err != nil {
		return "", false
	}
	ip := strings.TrimSpace(string(out))
	if net.ParseIP(ip) == nil {
		return "", false
	}
	return ip, true
}
