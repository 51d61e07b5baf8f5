// Package planner sizes the collection worker pool.
//
// Plan is a pure function of the target count and fast mode: a tier base
// (16, 24, 32 or 48 workers) raised to four workers per CPU and capped at
// 64, or 48 in fast mode.
package planner
