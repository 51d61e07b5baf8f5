// Package engine runs the per-target dispatch concurrently.
//
// Run uses an errgroup limited to the planned worker count. Every target
// produces exactly one row, even when its task panics or times out.
//
//	rows := engine.Run(ctx, targets, planner.Plan(len(targets), false),
//		func(ctx context.Context, t inventory.Target) inventory.Row {
//			return d.Dispatch(ctx, t, false)
//		},
//		engine.WithProgress(bar.Update))
package engine
