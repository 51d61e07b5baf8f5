// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linux

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
)

const defaultSSHPort = 22

var hostname = os.Hostname

// SSHRunner runs commands over an SSH session per call.
type SSHRunner struct {
	cfg            *ssh.ClientConfig
	port           int
	commandTimeout time.Duration
}

// NewSSHRunner builds the client configuration from the collect.linux
// settings. A key file, a password or both may be configured. Without a
// known_hosts file host keys are not verified.
func NewSSHRunner(c config.Linux) (*SSHRunner, error) {
	var auth []ssh.AuthMethod
	if c.KeyFile != "" {
		key, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key %s: %w", c.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key %s: %w", c.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}

	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec // inventory of unmanaged hosts
	if c.KnownHostsFile != "" {
		cb, err := knownhosts.New(c.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", c.KnownHostsFile, err)
		}
		hostKey = cb
	} else {
		slog.Debug("ssh host key verification disabled")
	}

	port := c.Port
	if port == 0 {
		port = defaultSSHPort
	}

	return &SSHRunner{
		cfg: &ssh.ClientConfig{
			User:            c.Username,
			Auth:            auth,
			HostKeyCallback: hostKey,
			Timeout:         defaults.SSHDialTimeout,
		},
		port:           port,
		commandTimeout: defaults.SSHCommandTimeout,
	}, nil
}

// Run implements Runner.
func (r *SSHRunner) Run(ctx context.Context, host, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.SSHDialTimeout+r.commandTimeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(r.port))
	d := net.Dialer{Timeout: defaults.SSHDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, r.cfg)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(sc, chans, reqs)
	defer client.Close()

	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session on %s: %w", addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if err := session.Run(command); err != nil {
		// The facts script tolerates missing tools; keep whatever was printed.
		if stdout.Len() > 0 {
			slog.Debug("ssh command exited with error",
				slog.String("host", host),
				slog.String("error", err.Error()),
				slog.String("stderr", stderr.String()))
			return stdout.String(), nil
		}
		return "", fmt.Errorf("ssh command on %s failed: %w", addr, err)
	}
	return stdout.String(), nil
}
