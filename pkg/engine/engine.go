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
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// DispatchFunc produces the row of one target. It should return when ctx
// is done.
type DispatchFunc func(ctx context.Context, t inventory.Target) inventory.Row

// ProgressFunc is called after every finished task.
type ProgressFunc func(done, total int)

// Option configures Run.
type Option func(*options)

type options struct {
	taskTimeout time.Duration
	progress    ProgressFunc
}

// WithTaskTimeout bounds each task. Zero or negative disables the bound.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) {
		o.taskTimeout = d
	}
}

// WithProgress registers a progress callback. Calls are serialized.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Run dispatches every target on a pool of at most workers goroutines and
// returns one row per target in completion order. A panicking task yields
// the target's seeded row. The slice is complete when Run returns.
func Run(ctx context.Context, targets []inventory.Target, workers int, fn DispatchFunc, opts ...Option) []inventory.Row {
	o := &options{taskTimeout: defaults.CollectTaskTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		mu   sync.Mutex
		rows = make([]inventory.Row, 0, len(targets))
		g    errgroup.Group
	)
	g.SetLimit(workers)

	slog.Info("collecting", slog.Int("targets", len(targets)), slog.Int("workers", workers))

	for _, t := range targets {
		g.Go(func() error {
			row := runTask(ctx, t, fn, o.taskTimeout)

			mu.Lock()
			rows = append(rows, row)
			done := len(rows)
			if o.progress != nil {
				o.progress(done, len(targets))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

func runTask(ctx context.Context, t inventory.Target, fn DispatchFunc, timeout time.Duration) (row inventory.Row) {
	start := time.Now()
	status := statusOK
	defer func() {
		if r := recover(); r != nil {
			slog.Error("collection task panicked",
				slog.String("host", t.Host),
				slog.String("panic", fmt.Sprint(r)))
			row = inventory.SeedRow(t)
			status = statusPanic
		}
		taskDuration.Observe(time.Since(start).Seconds())
		taskTotal.WithLabelValues(status).Inc()
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	row = fn(ctx, t)
	if row == nil {
		row = inventory.SeedRow(t)
	}
	if row.Has(inventory.FieldError) {
		status = statusError
	}
	return row
}
