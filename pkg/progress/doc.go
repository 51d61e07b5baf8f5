// Package progress draws terminal progress for the inventory command
// when --tui is set.
package progress
