// Package local collects facts about the machine running the inventory:
// os-release, kernel release, CPU count, systemd unit states over D-Bus and
// optionally the dpkg package list. The linux collector uses it when the
// target is the local host.
package local
