package probe

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/carveframework/carve/pkg/config"
)

type icmpProbe struct {
	spec config.CheckSpec
}

// Execute shells out to the system ping binary rather than requiring raw
// socket privileges in-process.
//
// The spec's expected_code is treated as "0 means expect a reply, anything
// else means expect no reply" — this conflates "host unreachable" with
// "host reachable but returned an ICMP error code", a simplification
// inherited unchanged from the reference implementation.
func (p *icmpProbe) Execute(ctx context.Context, host string, deadline time.Time) (Result, error) {
	timeoutSeconds := int(time.Until(deadline).Seconds())
	if timeoutSeconds < 1 {
		timeoutSeconds = 1
	}

	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", fmt.Sprintf("%d", timeoutSeconds), host)
	err := cmd.Run()
	reachable := err == nil

	expectReachable := p.spec.ExpectedCode == 0
	success := reachable == expectReachable

	message := fmt.Sprintf("ping %s reachable=%v (expected=%v)", host, reachable, expectReachable)
	return Result{Success: success, Message: message}, nil
}
