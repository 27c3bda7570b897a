package scheduler

import (
	"testing"
	"time"

	"github.com/carveframework/carve/pkg/config"
)

func TestNextTickAlignsToInterval(t *testing.T) {
	interval := 10 * time.Second
	now := time.Unix(1000, 0) // not a multiple of 10... but is, adjust below
	now = time.Unix(1003, 0)

	next := nextTick(now, interval)
	if next.Unix()%10 != 0 {
		t.Fatalf("expected tick aligned to a multiple of 10, got %v", next.Unix())
	}
	if !next.After(now) {
		t.Fatalf("expected next tick %v to be after now %v", next, now)
	}
	if next.Unix() != 1010 {
		t.Fatalf("expected next tick at 1010, got %v", next.Unix())
	}
}

func TestNextTickOnExactBoundary(t *testing.T) {
	interval := 5 * time.Second
	now := time.Unix(1000, 0)

	next := nextTick(now, interval)
	if next.Unix() != 1005 {
		t.Fatalf("expected the next boundary strictly after an exact multiple, got %v", next.Unix())
	}
}

func TestMatchesSelectorEmptySelectorMatchesEverything(t *testing.T) {
	box := config.Box{Name: "web", Labels: "tier=frontend"}
	if !matchesSelector(nil, box) {
		t.Error("expected empty selector to match any box")
	}
}

func TestMatchesSelectorRequiresEquality(t *testing.T) {
	box := config.Box{Name: "web", Labels: "tier=frontend"}
	selector := map[string]string{"tier": "tier=frontend"}
	if !matchesSelector(selector, box) {
		t.Error("expected selector value matching box labels to match")
	}

	mismatched := map[string]string{"tier": "tier=backend"}
	if matchesSelector(mismatched, box) {
		t.Error("expected selector with differing value not to match")
	}
}

func TestMatchesSelectorMultipleKeysAllMustMatch(t *testing.T) {
	box := config.Box{Name: "db", Labels: "tier=data"}
	selector := map[string]string{
		"tier": "tier=data",
		"zone": "tier=data",
	}
	if !matchesSelector(selector, box) {
		t.Error("expected all selector entries comparing equal to the box's label string to match")
	}
}
