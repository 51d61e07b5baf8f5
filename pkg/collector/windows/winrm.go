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

package windows

import (
	"context"
	"fmt"
	"strings"

	"github.com/masterzen/winrm"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
)

const (
	defaultHTTPPort  = 5985
	defaultHTTPSPort = 5986
)

// WinRMRunner runs PowerShell through a WinRM client per call.
type WinRMRunner struct {
	cfg config.Windows
}

// NewWinRMRunner creates a runner from the collect.windows settings.
func NewWinRMRunner(c config.Windows) *WinRMRunner {
	if c.Port == 0 {
		c.Port = defaultHTTPPort
		if c.HTTPS {
			c.Port = defaultHTTPSPort
		}
	}
	return &WinRMRunner{cfg: c}
}

// RunPowerShell implements Runner. A non-zero exit code is an error.
func (r *WinRMRunner) RunPowerShell(ctx context.Context, host, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.WinRMOperationTimeout)
	defer cancel()

	endpoint := winrm.NewEndpoint(host, r.cfg.Port, r.cfg.HTTPS, r.cfg.Insecure, nil, nil, nil, defaults.WinRMOperationTimeout)
	client, err := winrm.NewClient(endpoint, r.cfg.Username, r.cfg.Password)
	if err != nil {
		return "", fmt.Errorf("failed to create winrm client for %s: %w", host, err)
	}

	stdout, stderr, code, err := client.RunWithContextWithString(ctx, winrm.Powershell(script), "")
	if err != nil {
		return "", fmt.Errorf("winrm command on %s failed: %w", host, err)
	}
	if code != 0 {
		return "", fmt.Errorf("winrm command on %s exited with %d: %s", host, code, strings.TrimSpace(stderr))
	}
	return stdout, nil
}
