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

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK    = "ok"
	statusError = "error"
	statusPanic = "panic"
)

var (
	taskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cmdb_collect_task_duration_seconds",
			Help:    "Duration of one target collection.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	taskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmdb_collect_tasks_total",
			Help: "Finished collection tasks by outcome.",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cmdb_collect_run_duration_seconds",
			Help:    "Duration of a complete collection run.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
