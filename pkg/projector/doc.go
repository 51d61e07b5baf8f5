// Package projector filters inventory rows down to the requested fields.
//
// Project takes an include list and an exclude list, each resolved by the
// caller from the command line and the config file fields section. An
// empty list disables its filter, and exclude always wins over include.
// Rows are copied and the input is never modified.
package projector
