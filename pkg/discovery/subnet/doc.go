// Package subnet discovers live hosts in address ranges.
//
// Ranges are expanded with go4.org/netipx. Liveness is checked with an nmap
// ping scan (use_nmap) or TCP connects on a bounded ants pool, where a
// refused connection counts as alive. Live hosts can be probed for open
// ports and queried for SNMP sysName and sysDescr.
package subnet
