// Package probe implements the polymorphic check dispatcher: one executor
// per configured check type (HTTP, ICMP, SSH, shell script).
package probe

import (
	"context"
	"time"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/pkg/config"
)

// Result is the outcome of a single probe execution against one host.
type Result struct {
	Success bool
	Message string
}

// Prober executes one check spec variant against a resolved host.
type Prober interface {
	Execute(ctx context.Context, host string, deadline time.Time) (Result, error)
}

// DefaultTimeout is used when a check spec does not override it.
const DefaultTimeout = 5 * time.Second

// For selects the executor matching a check spec's discriminator.
func For(spec config.CheckSpec) (Prober, error) {
	switch spec.Type {
	case config.CheckHTTP:
		return &httpProbe{spec: spec}, nil
	case config.CheckICMP:
		return &icmpProbe{spec: spec}, nil
	case config.CheckSSH:
		return &sshProbe{spec: spec}, nil
	case config.CheckNix:
		return &shellProbe{spec: spec}, nil
	default:
		return nil, errors.ProbeUnsupported(string(spec.Type))
	}
}

// Run resolves the prober for spec and executes it with a bounded deadline.
func Run(ctx context.Context, check string, spec config.CheckSpec, host string) Result {
	prober, err := For(spec)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}

	timeout := DefaultTimeout
	if spec.TimeoutSeconds > 0 {
		timeout = time.Duration(spec.TimeoutSeconds) * time.Second
	}
	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result, err := prober.Execute(ctx, host, deadline)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{Success: false, Message: errors.ProbeTimeout(check, host).Error()}
		}
		return Result{Success: false, Message: errors.ProbeFailed(check, host, err).Error()}
	}
	return result
}
