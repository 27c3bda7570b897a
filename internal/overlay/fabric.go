package overlay

import (
	"context"
	"fmt"

	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/infrastructure/metrics"
	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

// primaryInterface is the host NIC VXLAN devices attach to, matching the
// reference sidecar's hardcoded "eth0" assumption.
const primaryInterface = "eth0"

// Fabric owns the boot-time subnet allocation and host network programming
// for one competition.
type Fabric struct {
	store *store.Store
	host  HostNetwork
	log   *logging.Logger
}

// NewFabric constructs a Fabric. A nil host defaults to ExecHostNetwork.
func NewFabric(s *store.Store, host HostNetwork, log *logging.Logger) *Fabric {
	if host == nil {
		host = ExecHostNetwork{}
	}
	if log == nil {
		log = logging.NewFromEnv("overlay")
	}
	return &Fabric{store: s, host: host, log: log}
}

// Boot allocates subnets for competition, persists the `{c}:subnets` map,
// and programs the host-side VXLAN devices and SNAT rules for every team.
func (f *Fabric) Boot(ctx context.Context, competition config.Competition) ([]SubnetAssignment, error) {
	teamNames := make([]string, len(competition.Teams))
	for i, t := range competition.Teams {
		teamNames[i] = t.Name
	}

	assignments, err := AllocateSubnets(competition.CIDR, teamNames)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		entries[assignment.Team] = assignment.Encode()
	}
	if err := f.store.WriteSubnets(ctx, competition.Name, entries); err != nil {
		return nil, fmt.Errorf("overlay: persist subnet assignments: %w", err)
	}

	var mgmt SubnetAssignment
	for _, assignment := range assignments {
		if assignment.Team == "MGMT" {
			mgmt = assignment
			break
		}
	}

	for _, assignment := range assignments {
		if assignment.Team == "MGMT" {
			continue
		}
		if err := f.provisionTeam(ctx, assignment, mgmt, competition.Name); err != nil {
			return assignments, err
		}
	}

	if err := f.host.EnableIPForwarding(ctx); err != nil {
		f.log.Error(ctx, "failed to enable ip forwarding", err, nil)
	}

	return assignments, nil
}

func (f *Fabric) provisionTeam(ctx context.Context, assignment, mgmt SubnetAssignment, competition string) error {
	gateway, err := assignment.Gateway()
	if err != nil {
		return err
	}

	if err := f.host.EnsureVXLAN(ctx, assignment.VXLANName(), assignment.VXLANID, primaryInterface, gateway+"/24"); err != nil {
		return err
	}
	if err := f.host.AppendSNAT(ctx, assignment.Subnet, assignment.VXLANName(), mgmt.Subnet); err != nil {
		return err
	}

	if m := metrics.Global(); m != nil {
		m.RecordOverlayAllocation(competition, "vxlan")
		m.RecordOverlayAllocation(competition, "snat")
	}

	f.log.Info(ctx, "provisioned team overlay subnet", map[string]interface{}{
		"competition": competition,
		"team":        assignment.Team,
		"subnet":      assignment.Subnet,
		"vxlan":       assignment.VXLANName(),
	})
	return nil
}
