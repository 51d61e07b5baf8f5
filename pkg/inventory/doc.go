// Package inventory defines the records flowing through the pipeline.
//
// A Target is produced by discovery and keyed by its lowercase host. A Row
// is a flat field map seeded from a Target and enriched in place by DNS,
// directory enrichment, backend collection and transforms before it is
// handed to the export sinks.
package inventory
