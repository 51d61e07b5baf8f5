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

package defaults

import "time"

// Collection timeouts bound the work done for one target.
const (
	// CollectTaskTimeout bounds one dispatch (DNS, enrichment and backend
	// collection) so a single slow host cannot stall the batch.
	CollectTaskTimeout = 3 * time.Minute

	// SSHDialTimeout is the timeout for establishing an SSH connection.
	SSHDialTimeout = 10 * time.Second

	// SSHCommandTimeout bounds each remote command run over SSH.
	SSHCommandTimeout = 30 * time.Second

	// WinRMOperationTimeout bounds each remote PowerShell invocation.
	WinRMOperationTimeout = 60 * time.Second

	// LocalCollectorTimeout bounds local fact collection (os-release, systemd).
	LocalCollectorTimeout = 10 * time.Second
)

// Enrichment timeouts.
const (
	// DNSLifetime is the total time allowed for one PTR resolution.
	DNSLifetime = 2 * time.Second

	// LDAPDialTimeout is the timeout for connecting to a directory server.
	LDAPDialTimeout = 10 * time.Second

	// LDAPRequestTimeout bounds each request on an open directory connection.
	LDAPRequestTimeout = 30 * time.Second
)

// Subnet scan defaults.
const (
	// PingTimeout is the liveness probe timeout per address.
	PingTimeout = 500 * time.Millisecond

	// PortProbeTimeout is the TCP connect timeout per port.
	PortProbeTimeout = 400 * time.Millisecond

	// SNMPTimeout is the timeout for one SNMP GET.
	SNMPTimeout = 2 * time.Second

	// ScanThreads is the default size of the subnet probe pool.
	ScanThreads = 200
)

// Discovery timeouts for remote inventory sources.
const (
	// DiscoveryStepTimeout bounds a single discovery step.
	DiscoveryStepTimeout = 10 * time.Minute

	// KubernetesListTimeout is the timeout for listing cluster nodes.
	KubernetesListTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout is the timeout for Expect: 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second
)

// Paged API retry policy.
const (
	// GraphMaxAttempts is the number of attempts for one page request.
	GraphMaxAttempts = 6

	// GraphMinRetryAfter is the floor applied to a server supplied Retry-After.
	GraphMinRetryAfter = 2 * time.Second

	// GraphRequestsPerSecond limits outbound page requests per client.
	GraphRequestsPerSecond = 20
)

// Export timeouts.
const (
	// ConfigMapWriteTimeout is the timeout for writing the inventory ConfigMap.
	ConfigMapWriteTimeout = 30 * time.Second

	// OCIPushTimeout bounds pushing the output directory to a registry.
	OCIPushTimeout = 5 * time.Minute

	// ServiceNowRequestsPerSecond limits record writes when the config sets
	// no rate.
	ServiceNowRequestsPerSecond = 5.0
)

// Worker defaults.
const (
	// Workers is the collection pool size when neither a number nor auto is given.
	Workers = 8

	// ProgressEvery is how many processed entities pass between progress logs.
	ProgressEvery = 100
)
