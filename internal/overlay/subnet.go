// Package overlay allocates per-team VXLAN subnets from a competition's
// CIDR, programs the host-side network devices and SNAT rules for them,
// and keeps each domain's forwarding-database entries refreshed in the
// shared-state store.
package overlay

import (
	"fmt"
	"net"
	"strings"
)

// SubnetAssignment is one /24 slice of a competition's CIDR, handed either
// to the management network (team == "MGMT") or to one team.
type SubnetAssignment struct {
	Subnet  string `yaml:"subnet"`
	Team    string `yaml:"team"`
	VXLANID int    `yaml:"vxlan_id"`
}

// Gateway returns the assignment's .1 address, e.g. "10.0.2.1" for subnet
// "10.0.2.0/24".
func (a SubnetAssignment) Gateway() (string, error) {
	ip, _, err := net.ParseCIDR(a.Subnet)
	if err != nil {
		return "", fmt.Errorf("overlay: parse subnet %q: %w", a.Subnet, err)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return "", fmt.Errorf("overlay: subnet %q is not IPv4", a.Subnet)
	}
	ip4[3] = 1
	return ip4.String(), nil
}

// VXLANName is the host-side device name for this assignment,
// "vxlan_{team}_{vxlan-id}", e.g. "vxlan_team2_2".
func (a SubnetAssignment) VXLANName() string {
	return fmt.Sprintf("vxlan_%s_%d", a.Team, a.VXLANID)
}

// Encode renders the assignment the way it is stored in the `{c}:subnets`
// hash: "{subnet},{team},{vxlan-id}".
func (a SubnetAssignment) Encode() string {
	return fmt.Sprintf("%s,%s,%d", a.Subnet, a.Team, a.VXLANID)
}

// DecodeSubnetAssignment parses the "{subnet},{team},{vxlan-id}" form back
// into a SubnetAssignment.
func DecodeSubnetAssignment(encoded string) (SubnetAssignment, error) {
	parts := strings.Split(encoded, ",")
	if len(parts) != 3 {
		return SubnetAssignment{}, fmt.Errorf("overlay: malformed subnet assignment %q", encoded)
	}
	var vxlanID int
	if _, err := fmt.Sscanf(parts[2], "%d", &vxlanID); err != nil {
		return SubnetAssignment{}, fmt.Errorf("overlay: malformed vxlan id in %q: %w", encoded, err)
	}
	return SubnetAssignment{Subnet: parts[0], Team: parts[1], VXLANID: vxlanID}, nil
}

// AllocateSubnets partitions cidr into one management /24 (index 0) plus
// one /24 per team (vxlan ids 1..N in team order), stepping through the
// address space by the /24 stride derived from cidr's own prefix.
func AllocateSubnets(cidr string, teamNames []string) ([]SubnetAssignment, error) {
	base, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse cidr %q: %w", cidr, err)
	}
	ones, bits := network.Mask.Size()
	if bits != 32 {
		return nil, fmt.Errorf("overlay: cidr %q is not IPv4", cidr)
	}
	if ones > 24 {
		return nil, fmt.Errorf("overlay: cidr %q is narrower than /24, cannot carve team subnets", cidr)
	}
	stride := uint32(1) << uint(32-(ones+8))

	baseInt := ipToUint32(base.To4())
	assignments := make([]SubnetAssignment, 0, len(teamNames)+1)
	assignments = append(assignments, SubnetAssignment{
		Subnet: fmt.Sprintf("%s/24", uint32ToIP(baseInt)),
		Team:   "MGMT",
		VXLANID: 0,
	})

	for i, team := range teamNames {
		subnetBase := baseInt + stride*uint32(i+1)
		assignments = append(assignments, SubnetAssignment{
			Subnet:  fmt.Sprintf("%s/24", uint32ToIP(subnetBase)),
			Team:    team,
			VXLANID: i + 1,
		})
	}
	return assignments, nil
}

func ipToUint32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
