package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carveframework/carve/pkg/config"
)

func TestForReturnsEachCheckType(t *testing.T) {
	for _, typ := range []config.CheckType{config.CheckHTTP, config.CheckICMP, config.CheckSSH, config.CheckNix} {
		if _, err := For(config.CheckSpec{Type: typ}); err != nil {
			t.Errorf("For(%q) error = %v", typ, err)
		}
	}
}

func TestForRejectsUnknownType(t *testing.T) {
	if _, err := For(config.CheckSpec{Type: "ftp"}); err == nil {
		t.Error("expected error for unsupported check type")
	}
}

func TestHTTPProbeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	spec := config.CheckSpec{Type: config.CheckHTTP, Method: http.MethodGet, Code: http.StatusOK, Regex: "ok"}

	result := Run(context.Background(), "web-http", spec, host)
	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
}

func TestHTTPProbeWrongCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	spec := config.CheckSpec{Type: config.CheckHTTP, Method: http.MethodGet, Code: http.StatusOK}

	result := Run(context.Background(), "web-http", spec, host)
	if result.Success {
		t.Error("expected failure on status code mismatch")
	}
}

func TestRunFailsForUnreachableHost(t *testing.T) {
	spec := config.CheckSpec{Type: config.CheckHTTP, Method: http.MethodGet, Code: http.StatusOK, TimeoutSeconds: 1}
	result := Run(context.Background(), "slow-check", spec, "198.51.100.1:65535")
	if result.Success {
		t.Error("expected failure connecting to an unroutable host")
	}
	_ = time.Second
}

func TestShellProbeSuccess(t *testing.T) {
	spec := config.CheckSpec{Type: config.CheckNix, Script: "#!/bin/sh\nexit 0\n"}
	result := Run(context.Background(), "shell-check", spec, "localhost")
	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
}

func TestShellProbeFailure(t *testing.T) {
	spec := config.CheckSpec{Type: config.CheckNix, Script: "#!/bin/sh\nexit 1\n"}
	result := Run(context.Background(), "shell-check", spec, "localhost")
	if result.Success {
		t.Error("expected failure for non-zero exit")
	}
}
