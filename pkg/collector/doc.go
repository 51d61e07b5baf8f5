// Package collector defines the backend collector contract used by the
// dispatcher and the helpers shared by every backend.
//
// A Collector connects to one host and returns a flat map of facts. It
// never returns an error; failures are reported under the "error" key:
//
//	type Collector interface {
//	    Collect(ctx context.Context, host string, s Settings) map[string]any
//	}
//
// # Backends
//
//   - collector/linux - SSH (golang.org/x/crypto/ssh), with a local
//     short circuit for the machine running the inventory
//   - collector/windows - WinRM (github.com/masterzen/winrm)
//   - collector/local - facts of the local machine: os-release and
//     systemd unit states over D-Bus
//   - collector/file - key/value file and text parser shared by the above
//
// Every backend bounds its own duration with the timeouts in pkg/defaults;
// the collection engine adds a per-task timeout on top.
package collector
