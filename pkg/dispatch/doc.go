// Package dispatch turns a discovered target into an inventory row.
//
// A Dispatcher seeds the row from the target, adds reverse DNS names
// (miekg/dns with a system resolver fallback), looks up the directory OU,
// picks a collector backend from the Rules decision table and finally
// applies the configured field transforms.
//
// Targets matching no rule try Windows first. Linux runs after it only
// when the Windows result is empty or carries an error.
package dispatch
