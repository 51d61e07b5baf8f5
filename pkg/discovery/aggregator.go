package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Step is one discovery source in the run order.
type Step struct {
	Name     string
	Discover func(ctx context.Context) ([]inventory.Target, error)
}

// Observer receives step lifecycle events, for example to drive a
// progress display. Calls happen on the aggregating goroutine.
type Observer interface {
	StepStarted(name string)
	StepFinished(name string, count int, err error)
}

// Aggregator runs discovery steps in order and deduplicates their output.
type Aggregator struct {
	Observer    Observer
	StepTimeout time.Duration
}

// Aggregate runs steps with a default Aggregator.
func Aggregate(ctx context.Context, steps []Step, external []inventory.Target) []inventory.Target {
	return (&Aggregator{}).Aggregate(ctx, steps, external)
}

// Aggregate runs every step in order. A failing or panicking step is logged
// and contributes nothing. The outputs, followed by external, are
// deduplicated with Dedupe.
func (a *Aggregator) Aggregate(ctx context.Context, steps []Step, external []inventory.Target) []inventory.Target {
	var all []inventory.Target
	for _, step := range steps {
		if a.Observer != nil {
			a.Observer.StepStarted(step.Name)
		}
		start := time.Now()
		targets, err := a.run(ctx, step)
		stepDuration.WithLabelValues(step.Name).Observe(time.Since(start).Seconds())

		if err != nil {
			stepTotal.WithLabelValues(step.Name, statusError).Inc()
			slog.Warn("discovery step failed",
				slog.String("step", step.Name),
				slog.String("error", err.Error()))
			targets = nil
		} else {
			stepTotal.WithLabelValues(step.Name, statusOK).Inc()
			slog.Info("discovery step complete",
				slog.String("step", step.Name),
				slog.Int("targets", len(targets)))
		}
		if a.Observer != nil {
			a.Observer.StepFinished(step.Name, len(targets), err)
		}
		all = append(all, targets...)
	}
	all = append(all, external...)

	uniq := Dedupe(all)
	targetsDiscovered.Set(float64(len(uniq)))
	return uniq
}

func (a *Aggregator) run(ctx context.Context, step Step) (targets []inventory.Target, err error) {
	defer func() {
		if r := recover(); r != nil {
			targets = nil
			err = fmt.Errorf("panic in discovery step %s: %v", step.Name, r)
		}
	}()
	if step.Discover == nil {
		return nil, fmt.Errorf("discovery step %s has no producer", step.Name)
	}

	timeout := a.StepTimeout
	if timeout <= 0 {
		timeout = defaults.DiscoveryStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return step.Discover(stepCtx)
}

// Dedupe keeps the first target per case-insensitive host, in order of
// first appearance. Targets with an empty host are dropped.
func Dedupe(targets []inventory.Target) []inventory.Target {
	seen := make(map[string]struct{}, len(targets))
	out := make([]inventory.Target, 0, len(targets))
	for _, t := range targets {
		if t.Host == "" {
			continue
		}
		key := t.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
