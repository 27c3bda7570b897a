package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/carveframework/carve/pkg/config"
)

type shellProbe struct {
	spec config.CheckSpec
}

// Execute writes the check's script to a temporary file, runs it with the
// resolved hostname as argv[1], and removes it afterward.
func (p *shellProbe) Execute(ctx context.Context, host string, deadline time.Time) (Result, error) {
	file, err := os.CreateTemp("", "carve-check-*.sh")
	if err != nil {
		return Result{}, err
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.WriteString(p.spec.Script); err != nil {
		file.Close()
		return Result{}, err
	}
	if err := file.Close(); err != nil {
		return Result{}, err
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, path, host)
	output, err := cmd.CombinedOutput()

	success := err == nil
	message := fmt.Sprintf("script %s exited success=%v: %s", path, success, string(output))
	return Result{Success: success, Message: message}, nil
}
