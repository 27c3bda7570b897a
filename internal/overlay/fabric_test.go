package overlay

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

type recordingHostNetwork struct {
	vxlanCalls int
	snatCalls  int
	forwarding bool
}

func (h *recordingHostNetwork) EnsureVXLAN(ctx context.Context, name string, id int, iface, gatewayCIDR string) error {
	h.vxlanCalls++
	return nil
}

func (h *recordingHostNetwork) AppendSNAT(ctx context.Context, sourceCIDR, device, toSource string) error {
	h.snatCalls++
	return nil
}

func (h *recordingHostNetwork) EnableIPForwarding(ctx context.Context) error {
	h.forwarding = true
	return nil
}

func TestFabricBootProvisionsEveryTeam(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	s := store.New(config.StoreConfig{Addr: mr.Addr()}, nil)
	host := &recordingHostNetwork{}
	fabric := NewFabric(s, host, nil)

	competition := config.Competition{
		Name: "spring-2026",
		CIDR: "10.0.0.0/16",
		Teams: []config.Team{
			{Name: "red"}, {Name: "blue"},
		},
	}

	assignments, err := fabric.Boot(context.Background(), competition)
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if len(assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(assignments))
	}
	if host.vxlanCalls != 2 {
		t.Errorf("vxlanCalls = %d, want 2", host.vxlanCalls)
	}
	if host.snatCalls != 2 {
		t.Errorf("snatCalls = %d, want 2", host.snatCalls)
	}
	if !host.forwarding {
		t.Error("expected EnableIPForwarding to be called")
	}

	entries, err := s.ReadSubnets(context.Background(), "spring-2026")
	if err != nil {
		t.Fatalf("ReadSubnets() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 persisted subnet entries, got %d", len(entries))
	}
}
