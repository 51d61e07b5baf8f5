// Package export writes a finished inventory to its configured sinks.
//
// File sinks (JSON, CSV, HTML and the YAML report) land in the output
// directory. SQLite appends the run to a database, ServiceNow creates CMDB
// records over the Table API, ConfigMap stores the YAML report in a
// cluster, and OCI pushes the written files to a registry. Build returns
// the enabled sinks in that order and Write runs them, collecting errors
// rather than stopping at the first one.
package export
