// Package windows collects Windows host facts over WinRM by running a
// PowerShell script that emits one JSON document.
package windows
