/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"github.com/prometheus/client_golang/prometheus"
)

// writeMetrics dumps the default registry in the text exposition format,
// for node_exporter's textfile collector or a CI artifact.
func writeMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
