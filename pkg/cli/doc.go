// Package cli implements the cmdbinv command-line interface.
//
// # Commands
//
// inventory - discover, collect and export:
//
//	cmdbinv inventory [--config config.yaml] [--out DIR] [--workers N|auto] [--autotune]
//	                  [--dry-run] [--targets FILE] [--tui] [--fast]
//	                  [--include-fields a,b] [--exclude-fields c]
//	                  [--enable FEATURE] [--disable FEATURE]
//	                  [--push oci://registry/repo[:tag]] [--metrics-file FILE]
//
// Runs the enabled discovery steps in a fixed order, deduplicates targets by
// host, collects every target on a bounded worker pool and writes the rows
// to the enabled exports in the output directory.
//
// users - export user access:
//
//	cmdbinv users [--out azure_users_full.csv] [--workers 8]
//	              [--graph-url URL] [--management-url URL] [--subscription ID]
//
// Lists directory users and writes their security groups, directory roles
// and RBAC roles per subscription to a CSV file.
//
// # Global Flags
//
//	--log-level   Log level: debug, info, warn, error (default: info)
//	--help, -h    Show command help
//	--version, -v Show version information
//
// # Exit Status
//
// Failing discovery steps, unreachable hosts and rejected records are
// logged and do not change the exit status. Invalid configuration, an
// unreadable targets file and export failures exit 1.
package cli
