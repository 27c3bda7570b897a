// Command vxlan-sidecar runs inside each VM's supporting container. It
// reads VXLAN_ID and CIDR from the environment, creates a local vxlan0
// device bridged into br0, and exposes a health endpoint for the
// orchestrator to poll.
//
// Grounded directly in original_source/vxlan-sidecar/src/main.rs: same two
// required environment variables, same device names, same best-effort
// teardown of a preexisting device before recreating it.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
)

func createVXLANInterface(vxlanID, cidr string) error {
	_ = exec.Command("ip", "link", "del", "vxlan0").Run()

	if err := exec.Command("ip", "link", "add", "vxlan0", "type", "vxlan", "id", vxlanID, "dev", "eth0", "dstport", "4789").Run(); err != nil {
		return fmt.Errorf("failed to create vxlan0: %w", err)
	}
	if err := exec.Command("ip", "link", "set", "vxlan0", "up").Run(); err != nil {
		return fmt.Errorf("failed to bring up vxlan0: %w", err)
	}
	if err := exec.Command("ip", "addr", "add", cidr+"/24", "dev", "vxlan0").Run(); err != nil {
		return fmt.Errorf("failed to assign ip to vxlan0: %w", err)
	}
	return nil
}

func createBridge() error {
	_ = exec.Command("ip", "link", "del", "br0").Run()

	if err := exec.Command("ip", "link", "add", "name", "br0", "type", "bridge").Run(); err != nil {
		return fmt.Errorf("failed to create br0: %w", err)
	}
	if err := exec.Command("ip", "link", "set", "br0", "up").Run(); err != nil {
		return fmt.Errorf("failed to bring up br0: %w", err)
	}
	if err := exec.Command("ip", "link", "set", "vxlan0", "master", "br0").Run(); err != nil {
		return fmt.Errorf("failed to add vxlan0 to br0: %w", err)
	}
	return nil
}

func main() {
	vxlanID := os.Getenv("VXLAN_ID")
	if vxlanID == "" {
		fmt.Fprintln(os.Stderr, "VXLAN_ID env var required")
		os.Exit(1)
	}
	cidr := os.Getenv("CIDR")
	if cidr == "" {
		fmt.Fprintln(os.Stderr, "CIDR env var required")
		os.Exit(1)
	}

	if err := createVXLANInterface(vxlanID, cidr); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if err := createBridge(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	http.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Healthy"))
	})

	addr := os.Getenv("SIDECAR_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8000"
	}
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
