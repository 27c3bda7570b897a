package overlay

import "testing"

func TestAllocateSubnetsAssignsSequentialVXLANIDs(t *testing.T) {
	assignments, err := AllocateSubnets("10.0.0.0/16", []string{"team1", "team2", "team3"})
	if err != nil {
		t.Fatalf("AllocateSubnets() error = %v", err)
	}
	if len(assignments) != 4 {
		t.Fatalf("expected 4 assignments (mgmt + 3 teams), got %d", len(assignments))
	}

	mgmt := assignments[0]
	if mgmt.Team != "MGMT" || mgmt.VXLANID != 0 || mgmt.Subnet != "10.0.0.0/24" {
		t.Errorf("unexpected mgmt assignment: %+v", mgmt)
	}

	want := []SubnetAssignment{
		{Subnet: "10.0.1.0/24", Team: "team1", VXLANID: 1},
		{Subnet: "10.0.2.0/24", Team: "team2", VXLANID: 2},
		{Subnet: "10.0.3.0/24", Team: "team3", VXLANID: 3},
	}
	for i, w := range want {
		got := assignments[i+1]
		if got != w {
			t.Errorf("assignment[%d] = %+v, want %+v", i+1, got, w)
		}
	}
}

func TestAllocateSubnetsUsesParsedPrefixNotHardcoded24(t *testing.T) {
	assignments, err := AllocateSubnets("10.0.0.0/20", []string{"team1", "team2"})
	if err != nil {
		t.Fatalf("AllocateSubnets() error = %v", err)
	}
	if len(assignments) != 3 {
		t.Fatalf("expected 3 assignments (mgmt + 2 teams), got %d", len(assignments))
	}

	// stride = 1 << (32 - (prefix + 8)) = 1 << (32 - 28) = 16, not the
	// 1 << (32 - 24) = 256 stride a /16 cidr would take.
	want := []SubnetAssignment{
		{Subnet: "10.0.0.0/24", Team: "MGMT", VXLANID: 0},
		{Subnet: "10.0.0.16/24", Team: "team1", VXLANID: 1},
		{Subnet: "10.0.0.32/24", Team: "team2", VXLANID: 2},
	}
	for i, w := range want {
		if assignments[i] != w {
			t.Errorf("assignment[%d] = %+v, want %+v", i, assignments[i], w)
		}
	}

	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if seen[a.Subnet] {
			t.Errorf("duplicate subnet assignment: %s", a.Subnet)
		}
		seen[a.Subnet] = true
	}
}

func TestAllocateSubnetsRejectsNarrowerThan24(t *testing.T) {
	if _, err := AllocateSubnets("10.0.0.0/28", []string{"team1"}); err == nil {
		t.Error("expected error for a cidr narrower than /24")
	}
}

func TestGatewayIsDotOne(t *testing.T) {
	a := SubnetAssignment{Subnet: "10.0.2.0/24"}
	gw, err := a.Gateway()
	if err != nil {
		t.Fatalf("Gateway() error = %v", err)
	}
	if gw != "10.0.2.1" {
		t.Errorf("Gateway() = %q, want 10.0.2.1", gw)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := SubnetAssignment{Subnet: "10.0.2.0/24", Team: "team2", VXLANID: 2}
	decoded, err := DecodeSubnetAssignment(a.Encode())
	if err != nil {
		t.Fatalf("DecodeSubnetAssignment() error = %v", err)
	}
	if decoded != a {
		t.Errorf("round trip = %+v, want %+v", decoded, a)
	}
}

func TestDecodeSubnetAssignmentRejectsMalformed(t *testing.T) {
	if _, err := DecodeSubnetAssignment("not-enough-fields"); err == nil {
		t.Error("expected error for malformed input")
	}
}
