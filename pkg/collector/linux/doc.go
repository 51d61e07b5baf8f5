// Package linux collects Linux host facts over SSH.
//
// One session per host runs a small shell script whose output is split into
// "@@name" sections and parsed into the common result keys (hostname,
// os_name, os_version, kernel, cpu_count, memory_bytes, DMI vendor, model
// and serial, optionally software). Targets naming the local machine are
// handed to the local collector instead.
package linux
