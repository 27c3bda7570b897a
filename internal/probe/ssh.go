package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/carveframework/carve/pkg/config"
)

type sshProbe struct {
	spec config.CheckSpec
}

func (p *sshProbe) Execute(ctx context.Context, host string, deadline time.Time) (Result, error) {
	port := p.spec.Port
	if port == 0 {
		port = 22
	}

	var auth []ssh.AuthMethod
	if p.spec.KeyPath != "" {
		key, err := os.ReadFile(p.spec.KeyPath)
		if err != nil {
			return Result{}, err
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return Result{}, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if p.spec.Password != "" {
		auth = append(auth, ssh.Password(p.spec.Password))
	}

	clientConfig := &ssh.ClientConfig{
		User:            p.spec.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         time.Until(deadline),
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dialer := net.Dialer{Timeout: clientConfig.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{Success: false, Message: err.Error()}, nil
	}
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		return Result{Success: false, Message: err.Error()}, nil
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	return Result{Success: true, Message: fmt.Sprintf("SSH handshake and auth succeeded for %s", addr)}, nil
}
